// ABOUTME: ALSA backend speaking the kernel PCM ioctl interface directly
// ABOUTME: Blocking period-at-a-time transfer with xrun recovery
//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	"golang.org/x/sys/unix"
)

func init() {
	pcmio.Register("alsa", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		if _, err := os.Stat("/dev/snd"); err != nil {
			return nil, fmt.Errorf("/dev/snd unavailable: %w", pcmio.ErrAPINotFound)
		}
		return &backend{ctx: ctx}, nil
	})
}

type backend struct {
	ctx *pcmio.Context
}

func (b *backend) Kind() pcmio.BackendKind { return "alsa" }

func (b *backend) Devices(kind pcmio.DeviceType) ([]pcmio.DeviceInfo, error) {
	return enumerate(streamFor(kind))
}

func (b *backend) OpenDevice(d *pcmio.Device) (pcmio.BackendDevice, error) {
	stream := streamFor(d.Type())
	card, devNum, err := resolveDeviceID(d.ID(), stream)
	if err != nil {
		return nil, err
	}
	p, err := openPCM(card, devNum, stream)
	if err != nil {
		return nil, err
	}

	declared := d.Params()
	bufferFrames := d.BufferSize()
	if stream == streamCapture && d.UsingDefaultBufferSize() {
		// Capture gets extra headroom against overruns when the
		// application left the geometry to us.
		bufferFrames *= 2
	}
	cfg, err := p.negotiate(declared.Format, declared.Channels, declared.SampleRate, bufferFrames, d.Periods())
	if err != nil {
		p.close()
		return nil, err
	}
	b.ctx.Log().Debugf("alsa: hw:%d,%d %s opened as %s %dch %dHz, buffer %d frames x%d periods",
		card, devNum, d.Type(), cfg.format, cfg.channels, cfg.rate, cfg.bufferFrames, cfg.periods)
	return &device{dev: d, pcm: p, cfg: cfg}, nil
}

func (b *backend) Uninit() error { return nil }

func streamFor(kind pcmio.DeviceType) int {
	if kind == pcmio.Capture {
		return streamCapture
	}
	return streamPlayback
}

// device is one open PCM endpoint. The transfer loop blocks in the kernel
// for at most one period at a time, which bounds Break latency.
type device struct {
	dev *pcmio.Device
	pcm *pcm
	cfg pcmConfig
	buf []byte
	brk atomic.Bool
}

func (a *device) Params() pcmio.DeviceParams {
	return pcmio.DeviceParams{
		Stream: audio.StreamParams{
			Format:     a.cfg.format,
			Channels:   a.cfg.channels,
			SampleRate: a.cfg.rate,
		},
		BufferSize: a.cfg.bufferFrames,
		Periods:    a.cfg.periods,
	}
}

func (a *device) Async() bool { return false }

func (a *device) Start() error {
	a.brk.Store(false)
	if a.buf == nil {
		a.buf = make([]byte, a.cfg.periodFrames*a.frameBytes())
	}
	if err := a.pcm.prepare(); err != nil {
		return fmt.Errorf("prepare: %v: %w", err, pcmio.ErrALSAPrepareFailed)
	}
	if a.dev.Type() == pcmio.Playback {
		// Charge the whole ring up front; crossing the start threshold
		// sets the hardware running without an explicit trigger.
		if err := a.prefill(); err != nil {
			return err
		}
		return nil
	}
	if err := a.pcm.start(); err != nil {
		return fmt.Errorf("capture start: %v: %w", err, pcmio.ErrFailedToStartBackendDevice)
	}
	return nil
}

func (a *device) prefill() error {
	remaining := a.cfg.bufferFrames
	for remaining > 0 {
		chunk := a.cfg.periodFrames
		if chunk > remaining {
			chunk = remaining
		}
		a.dev.ReadFromClient(chunk, a.buf[:chunk*a.frameBytes()])
		if err := a.pcm.writei(a.buf, chunk); err != nil {
			return fmt.Errorf("prefill writei: %v: %w", err, pcmio.ErrFailedToStartBackendDevice)
		}
		remaining -= chunk
	}
	return nil
}

func (a *device) Stop() error {
	// EBADFD means the stream never left SETUP, which is fine: the first
	// stop a device sees is posted before any start.
	if err := a.pcm.drop(); err != nil && err != unix.EBADFD {
		return fmt.Errorf("drop: %v: %w", err, pcmio.ErrFailedToStopBackendDevice)
	}
	return nil
}

func (a *device) MainLoop() error {
	frames := a.cfg.periodFrames
	frameBytes := a.frameBytes()
	for !a.brk.Load() {
		if a.dev.Type() == pcmio.Playback {
			a.dev.ReadFromClient(frames, a.buf)
			if err := a.pcm.writei(a.buf, frames); err != nil {
				if err == unix.EPIPE {
					if rerr := a.recoverXRun(); rerr != nil {
						return rerr
					}
					continue
				}
				return fmt.Errorf("writei: %v: %w", err, pcmio.ErrGeneric)
			}
		} else {
			n, err := a.pcm.readi(a.buf, frames)
			if err != nil {
				if err == unix.EPIPE {
					if rerr := a.recoverXRun(); rerr != nil {
						return rerr
					}
					continue
				}
				return fmt.Errorf("readi: %v: %w", err, pcmio.ErrGeneric)
			}
			if n > 0 {
				a.dev.DeliverToClient(n, a.buf[:n*frameBytes])
			}
		}
	}
	return nil
}

// recoverXRun re-arms the stream after an under- or overrun. Playback
// refills period by period until the start threshold trips again; capture
// needs its explicit trigger back.
func (a *device) recoverXRun() error {
	if err := a.pcm.prepare(); err != nil {
		return fmt.Errorf("xrun recovery: %v: %w", err, pcmio.ErrALSAXRunRecovery)
	}
	if a.dev.Type() == pcmio.Capture {
		if err := a.pcm.start(); err != nil {
			return fmt.Errorf("xrun restart: %v: %w", err, pcmio.ErrALSAXRunRecovery)
		}
	}
	return nil
}

func (a *device) Break() {
	a.brk.Store(true)
}

func (a *device) Close() error {
	return a.pcm.close()
}

func (a *device) frameBytes() int {
	return a.cfg.format.SampleBytes() * a.cfg.channels
}
