// ABOUTME: Contract every backend driver implements
// ABOUTME: Covers enumeration, negotiation and the per-device stream operations
package pcmio

import "github.com/Resonate-Protocol/pcmio-go/pkg/audio"

// DeviceType selects the direction of a device.
type DeviceType int

const (
	Playback DeviceType = iota + 1
	Capture
)

func (t DeviceType) String() string {
	switch t {
	case Playback:
		return "playback"
	case Capture:
		return "capture"
	}
	return "unknown"
}

// BackendKind identifies a backend driver, e.g. "alsa" or "null".
type BackendKind string

// DeviceInfo describes one endpoint a backend can open.
type DeviceInfo struct {
	ID   string // backend-specific endpoint identifier
	Name string // human-readable endpoint name
}

// DeviceParams carries the endpoint-native stream parameters a backend
// negotiated during OpenDevice, plus the buffer geometry it settled on.
// A zero BufferSize or Periods means the backend kept what the device
// requested.
type DeviceParams struct {
	Stream     audio.StreamParams
	BufferSize int // frames
	Periods    int
}

// BackendFactory creates a backend, acquiring whatever global handles the
// driver needs. Factories are registered by backend packages in init().
type BackendFactory func(ctx *Context) (Backend, error)

// Backend is the process-level half of a driver: enumeration and device
// construction.
type Backend interface {
	Kind() BackendKind
	Devices(kind DeviceType) ([]DeviceInfo, error)
	OpenDevice(d *Device) (BackendDevice, error)
	Uninit() error
}

// BackendDevice is one open endpoint. Start, Stop and MainLoop are called
// from the device worker goroutine unless Async reports true.
type BackendDevice interface {
	// Params reports the endpoint-native stream parameters together with
	// the adjusted buffer size and period count.
	Params() DeviceParams

	// Async reports whether the endpoint drives itself from its own
	// thread. Async devices run Start and Stop synchronously on the
	// caller's goroutine and never enter MainLoop.
	Async() bool

	// Start begins the stream. Playback backends pre-fill one full
	// buffer from the device before the endpoint emits audio.
	Start() error

	// Stop halts the stream; no data callbacks occur afterwards until
	// the next Start. Must tolerate a stream that never started.
	Stop() error

	// MainLoop blocks moving data until Break is called or a fatal
	// error occurs.
	MainLoop() error

	// Break makes MainLoop return promptly, within one period of audio.
	// Safe to call from any goroutine.
	Break()

	// Close releases all state held for the endpoint.
	Close() error
}
