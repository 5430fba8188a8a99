// ABOUTME: Package documentation for the portaudio backend
// ABOUTME: Registers itself under the "portaudio" kind on import

// Package portaudio wraps the PortAudio library for hosts where neither the
// raw ALSA path nor oto fits, for example BSDs or JACK setups. It needs cgo
// and a system libportaudio, so the real driver sits behind a build tag:
//
//	go build -tags portaudio ./...
//
// Importing the package always registers the "portaudio" kind:
//
//	import _ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/portaudio"
//
// Without the tag the factory fails and context setup falls through to the
// next backend in priority order. Streams run as native float32 at the
// declared rate and channel count; PortAudio owns the audio thread and the
// backend is asynchronous.
package portaudio
