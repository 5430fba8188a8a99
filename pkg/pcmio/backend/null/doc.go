// ABOUTME: Package documentation for the null backend
// ABOUTME: Registers itself under the "null" kind on import

// Package null drives a device with no hardware behind it. Importing it
// registers the "null" backend:
//
//	import _ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
//
// The backend accepts whatever stream parameters the device declares, paces
// itself off the monotonic clock at the negotiated period size, discards
// playback data and delivers silence on capture. It is the backend of last
// resort in the default priority order and the one the tests run against.
package null
