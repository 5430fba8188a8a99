// ABOUTME: PortAudio backend for hosts where ALSA and oto are no fit
// ABOUTME: Callback-driven float32 streams; requires cgo and libportaudio
//go:build portaudio

package portaudio

import (
	"fmt"
	"strconv"

	"github.com/gordonklaus/portaudio"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func init() {
	pcmio.Register("portaudio", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("portaudio init: %v: %w", err, pcmio.ErrPortAudioInitFailed)
		}
		return &backend{ctx: ctx}, nil
	})
}

type backend struct {
	ctx *pcmio.Context
}

func (b *backend) Kind() pcmio.BackendKind { return "portaudio" }

func (b *backend) Devices(kind pcmio.DeviceType) ([]pcmio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio devices: %v: %w", err, pcmio.ErrPortAudioInitFailed)
	}
	var out []pcmio.DeviceInfo
	for i, dev := range devs {
		channels := dev.MaxOutputChannels
		if kind == pcmio.Capture {
			channels = dev.MaxInputChannels
		}
		if channels <= 0 {
			continue
		}
		out = append(out, pcmio.DeviceInfo{ID: strconv.Itoa(i), Name: dev.Name})
	}
	return out, nil
}

func (b *backend) OpenDevice(d *pcmio.Device) (pcmio.BackendDevice, error) {
	info, err := resolveDevice(d.ID(), d.Type())
	if err != nil {
		return nil, err
	}

	declared := d.Params()
	native := audio.StreamParams{
		Format:     audio.FormatF32,
		Channels:   declared.Channels,
		SampleRate: declared.SampleRate,
	}
	period := d.PeriodFrames()

	dev := &device{
		dev:     d,
		native:  native,
		scratch: make([]byte, period*native.FrameBytes()),
	}

	var params portaudio.StreamParameters
	if d.Type() == pcmio.Playback {
		params = portaudio.LowLatencyParameters(nil, info)
		params.Output.Channels = declared.Channels
	} else {
		params = portaudio.LowLatencyParameters(info, nil)
		params.Input.Channels = declared.Channels
	}
	params.SampleRate = float64(declared.SampleRate)
	params.FramesPerBuffer = period

	var stream *portaudio.Stream
	if d.Type() == pcmio.Playback {
		stream, err = portaudio.OpenStream(params, dev.playCallback)
	} else {
		stream, err = portaudio.OpenStream(params, dev.captureCallback)
	}
	if err != nil {
		return nil, fmt.Errorf("open portaudio stream: %v: %w", err, pcmio.ErrPortAudioStreamFailed)
	}
	dev.stream = stream
	b.ctx.Log().Debugf("portaudio: opened %s %q, %dch %dHz, %d frames per callback",
		d.Type(), info.Name, declared.Channels, declared.SampleRate, period)
	return dev, nil
}

func (b *backend) Uninit() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("portaudio terminate: %v: %w", err, pcmio.ErrPortAudioInitFailed)
	}
	return nil
}

// resolveDevice picks the default endpoint or one by enumeration index.
func resolveDevice(id string, kind pcmio.DeviceType) (*portaudio.DeviceInfo, error) {
	if id == "" || id == "default" {
		if kind == pcmio.Capture {
			info, err := portaudio.DefaultInputDevice()
			if err != nil {
				return nil, fmt.Errorf("no default input: %v: %w", err, pcmio.ErrNoDevice)
			}
			return info, nil
		}
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default output: %v: %w", err, pcmio.ErrNoDevice)
		}
		return info, nil
	}
	idx, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("device id %q is not an index: %w", id, pcmio.ErrInvalidArgs)
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio devices: %v: %w", err, pcmio.ErrPortAudioInitFailed)
	}
	if idx < 0 || idx >= len(devs) {
		return nil, fmt.Errorf("device index %d out of range: %w", idx, pcmio.ErrNoDevice)
	}
	return devs[idx], nil
}

// device is one callback-driven stream. PortAudio owns the audio thread, so
// the backend is async and MainLoop is unused.
type device struct {
	dev     *pcmio.Device
	native  audio.StreamParams
	stream  *portaudio.Stream
	scratch []byte
	started bool
}

func (p *device) Params() pcmio.DeviceParams {
	return pcmio.DeviceParams{Stream: p.native}
}

func (p *device) Async() bool { return true }

func (p *device) Start() error {
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("start portaudio stream: %v: %w", err, pcmio.ErrPortAudioStreamFailed)
	}
	p.started = true
	return nil
}

func (p *device) Stop() error {
	if !p.started {
		return nil
	}
	p.started = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("stop portaudio stream: %v: %w", err, pcmio.ErrPortAudioStreamFailed)
	}
	return nil
}

func (p *device) MainLoop() error { return nil }

func (p *device) Break() {}

func (p *device) Close() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	return err
}

func (p *device) playCallback(out []float32) {
	frames := len(out) / p.native.Channels
	need := len(out) * 4
	if need > len(p.scratch) {
		p.scratch = make([]byte, need)
	}
	p.dev.ReadFromClient(frames, p.scratch[:need])
	decodeFloats(p.scratch, out)
}

func (p *device) captureCallback(in []float32) {
	frames := len(in) / p.native.Channels
	need := len(in) * 4
	if need > len(p.scratch) {
		p.scratch = make([]byte, need)
	}
	encodeFloats(in, p.scratch[:need])
	p.dev.DeliverToClient(frames, p.scratch[:need])
}
