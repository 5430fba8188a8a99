// ABOUTME: Package documentation for the oto backend
// ABOUTME: Registers itself under the "oto" kind on import

// Package oto plays audio through the oto library, which talks to the
// platform mixer on Linux, macOS, Windows and more. Importing it registers
// the "oto" backend:
//
//	import _ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/oto"
//
// The backend is playback only and asynchronous: oto runs its own output
// thread and pulls frames through an io.Reader, so no device worker loop is
// involved. oto allows one context per process, pinned to the first opened
// device's sample rate and channel count; further devices must match until
// all are closed.
package oto
