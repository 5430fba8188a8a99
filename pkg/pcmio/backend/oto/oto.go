// ABOUTME: Playback backend on top of the oto library
// ABOUTME: Async driver; oto's own thread pulls frames through an io.Reader
package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func init() {
	pcmio.Register("oto", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		return &backend{ctx: ctx}, nil
	})
}

type backend struct {
	ctx *pcmio.Context
}

func (b *backend) Kind() pcmio.BackendKind { return "oto" }

func (b *backend) Devices(kind pcmio.DeviceType) ([]pcmio.DeviceInfo, error) {
	if kind == pcmio.Capture {
		return nil, nil
	}
	return []pcmio.DeviceInfo{{ID: "default", Name: "System Default Output"}}, nil
}

func (b *backend) OpenDevice(d *pcmio.Device) (pcmio.BackendDevice, error) {
	if d.Type() == pcmio.Capture {
		return nil, fmt.Errorf("oto cannot capture: %w", pcmio.ErrOtoPlaybackOnly)
	}
	if id := d.ID(); id != "" && id != "default" {
		return nil, fmt.Errorf("oto knows no device %q: %w", id, pcmio.ErrNoDevice)
	}

	declared := d.Params()
	otoFmt, native := otoFormat(declared.Format)
	bufDuration := time.Duration(d.BufferSize()) * time.Second / time.Duration(declared.SampleRate)

	otoCtx, err := acquireContext(declared.SampleRate, declared.Channels, otoFmt, bufDuration)
	if err != nil {
		return nil, err
	}

	dev := &device{
		dev:    d,
		otoCtx: otoCtx,
		native: audio.StreamParams{
			Format:     native,
			Channels:   declared.Channels,
			SampleRate: declared.SampleRate,
		},
	}
	b.ctx.Log().Debugf("oto: opened %dch %dHz as %s, buffer %v",
		declared.Channels, declared.SampleRate, native, bufDuration)
	return dev, nil
}

func (b *backend) Uninit() error { return nil }

// otoFormat maps a device format onto what oto can take natively. Formats
// oto has no encoding for are converted to float by the pipeline.
func otoFormat(f audio.Format) (oto.Format, audio.Format) {
	switch f {
	case audio.FormatU8:
		return oto.FormatUnsignedInt8, audio.FormatU8
	case audio.FormatS16:
		return oto.FormatSignedInt16LE, audio.FormatS16
	default:
		return oto.FormatFloat32LE, audio.FormatF32
	}
}

// oto permits a single context per process, so every open device shares one,
// refcounted and suspended whenever the last user goes away. A device whose
// stream parameters disagree with the live context cannot be opened until
// the process-wide context is released everywhere.
var shared struct {
	sync.Mutex
	ctx      *oto.Context
	rate     int
	channels int
	format   oto.Format
	refs     int
}

func acquireContext(rate, channels int, format oto.Format, buffer time.Duration) (*oto.Context, error) {
	shared.Lock()
	defer shared.Unlock()

	if shared.ctx != nil {
		if shared.rate != rate || shared.channels != channels || shared.format != format {
			return nil, fmt.Errorf("oto context pinned to %dch %dHz: %w",
				shared.channels, shared.rate, pcmio.ErrOtoContextFailed)
		}
		if shared.refs == 0 {
			if err := shared.ctx.Resume(); err != nil {
				return nil, fmt.Errorf("resume oto context: %v: %w", err, pcmio.ErrOtoContextFailed)
			}
		}
		shared.refs++
		return shared.ctx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       format,
		BufferSize:   buffer,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("create oto context: %v: %w", err, pcmio.ErrOtoContextFailed)
	}
	<-ready

	shared.ctx = ctx
	shared.rate = rate
	shared.channels = channels
	shared.format = format
	shared.refs = 1
	return ctx, nil
}

func releaseContext() {
	shared.Lock()
	defer shared.Unlock()
	if shared.refs == 0 {
		return
	}
	shared.refs--
	if shared.refs == 0 {
		shared.ctx.Suspend()
	}
}

// device is one playback stream. oto drives its own output thread, so the
// backend is async: Start and Stop run on the caller and MainLoop is unused.
type device struct {
	dev    *pcmio.Device
	otoCtx *oto.Context
	native audio.StreamParams
	player *oto.Player
}

func (o *device) Params() pcmio.DeviceParams {
	return pcmio.DeviceParams{Stream: o.native}
}

func (o *device) Async() bool { return true }

func (o *device) Start() error {
	if o.player == nil {
		r := &pullReader{
			frameBytes: o.native.FrameBytes(),
			pull:       o.dev.ReadFromClient,
		}
		o.player = o.otoCtx.NewPlayer(r)
		o.player.SetBufferSize(o.dev.BufferSize() * o.native.FrameBytes())
	}
	o.player.Play()
	return nil
}

func (o *device) Stop() error {
	if o.player != nil {
		o.player.Pause()
	}
	return nil
}

func (o *device) MainLoop() error { return nil }

func (o *device) Break() {}

func (o *device) Close() error {
	var err error
	if o.player != nil {
		err = o.player.Close()
		o.player = nil
	}
	releaseContext()
	return err
}

// pullReader adapts the frame pull into the io.Reader oto expects. The
// stream never ends; silence padding upstream keeps reads whole.
type pullReader struct {
	frameBytes int
	pull       func(frames int, dst []byte) int
}

func (r *pullReader) Read(p []byte) (int, error) {
	frames := len(p) / r.frameBytes
	if frames == 0 {
		return 0, nil
	}
	n := r.pull(frames, p[:frames*r.frameBytes])
	return n * r.frameBytes, nil
}
