// ABOUTME: Device configuration value object and callback contracts
// ABOUTME: Zero buffer size and period counts select the library defaults
package pcmio

import "github.com/Resonate-Protocol/pcmio-go/pkg/audio"

// Defaults applied when Config leaves the buffer geometry zero.
const (
	DefaultBufferSizeMS = 25
	DefaultPeriods      = 2
)

// maxClientChunkBytes bounds how much captured data one OnRecv invocation
// sees; larger blocks are split into whole-frame chunks of at most this
// many bytes.
const maxClientChunkBytes = 4096

// SendProc supplies playback frames in the declared format and returns how
// many it wrote. Under-delivery is padded with silence before the DSP
// pipeline runs.
type SendProc func(d *Device, frames int, out []byte) int

// RecvProc consumes captured frames in the declared format. Blocks arrive
// in order and always hold whole frames.
type RecvProc func(d *Device, frames int, in []byte)

// StopProc is invoked exactly once per started-to-stopped transition. It
// runs on the device worker goroutine (or the stopping goroutine for async
// backends) and must not call back into the device lifecycle methods.
type StopProc func(d *Device)

// LogProc receives diagnostic messages for one device.
type LogProc func(d *Device, msg string)

// Config declares the application-side stream parameters and callbacks for
// one device. The declared parameters are what the callbacks see; the DSP
// pipeline adapts them to whatever the endpoint natively accepts.
type Config struct {
	Format     audio.Format
	Channels   int
	SampleRate int
	ChannelMap audio.ChannelMap // nil selects the default map for Channels

	BufferSize int // frames; 0 selects (SampleRate/1000)*DefaultBufferSizeMS
	Periods    int // 0 selects DefaultPeriods

	// DeviceID names the endpoint to open, from Context.Devices. Empty
	// selects the backend's default endpoint.
	DeviceID string

	OnSend SendProc // playback source; required for playback devices
	OnRecv RecvProc // capture sink; required for capture devices
	OnStop StopProc
	OnLog  LogProc
}
