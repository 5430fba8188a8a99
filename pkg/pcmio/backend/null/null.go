// ABOUTME: Silence backend that accepts any stream parameters
// ABOUTME: Paces one period at a time off the monotonic clock
package null

import (
	"time"

	isync "github.com/Resonate-Protocol/pcmio-go/internal/sync"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func init() {
	pcmio.Register("null", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		return &backend{ctx: ctx}, nil
	})
}

type backend struct {
	ctx *pcmio.Context
}

func (b *backend) Kind() pcmio.BackendKind { return "null" }

func (b *backend) Devices(kind pcmio.DeviceType) ([]pcmio.DeviceInfo, error) {
	return []pcmio.DeviceInfo{{ID: "null", Name: "Null Device"}}, nil
}

func (b *backend) OpenDevice(d *pcmio.Device) (pcmio.BackendDevice, error) {
	return &device{dev: d, breakEvt: isync.NewEvent()}, nil
}

func (b *backend) Uninit() error { return nil }

// device burns playback data and delivers silence on capture, at the pace
// a real endpoint with the same geometry would.
type device struct {
	dev      *pcmio.Device
	breakEvt *isync.Event
	buf      []byte
}

func (n *device) Params() pcmio.DeviceParams {
	// The null endpoint accepts whatever was declared, which makes the
	// DSP pipeline a passthrough.
	return pcmio.DeviceParams{Stream: n.dev.Params()}
}

func (n *device) Async() bool { return false }

func (n *device) Start() error {
	// Drop any break posted after the previous session ended.
	n.breakEvt.Reset()

	frameBytes := n.dev.Native().FrameBytes()
	if n.buf == nil {
		n.buf = make([]byte, n.dev.PeriodFrames()*frameBytes)
	}
	if n.dev.Type() == pcmio.Playback {
		// Charge the ring buffer the way a real endpoint would: one
		// full buffer pulled before the stream runs.
		full := make([]byte, n.dev.BufferSize()*frameBytes)
		n.dev.ReadFromClient(n.dev.BufferSize(), full)
	}
	return nil
}

func (n *device) Stop() error { return nil }

func (n *device) MainLoop() error {
	rate := n.dev.Native().SampleRate
	period := time.Duration(n.dev.PeriodFrames()) * time.Second / time.Duration(rate)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	frames := n.dev.PeriodFrames()
	for {
		select {
		case <-n.breakEvt.C():
			return nil
		case <-ticker.C:
			if n.dev.Type() == pcmio.Playback {
				n.dev.ReadFromClient(frames, n.buf)
			} else {
				n.dev.DeliverToClient(frames, n.buf)
			}
		}
	}
}

func (n *device) Break() { n.breakEvt.Signal() }

func (n *device) Close() error { return nil }
