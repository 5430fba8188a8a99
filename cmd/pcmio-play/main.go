// ABOUTME: Sine-wave playback tool for exercising a device end to end
// ABOUTME: Synthesises the tone in the declared format via the send callback
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/convert"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/oto"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/portaudio"
)

var (
	freq        = flag.Float64("freq", 440, "Tone frequency in Hz")
	rate        = flag.Int("rate", 48000, "Sample rate")
	channels    = flag.Int("channels", 2, "Channel count")
	formatName  = flag.String("format", "s16", "Sample format (u8, s16, s24, s32, f32)")
	duration    = flag.Duration("duration", 0, "How long to play (0: until Ctrl-C)")
	deviceID    = flag.String("device", "", "Device ID from pcmio-devices (default: backend default)")
	backendName = flag.String("backend", "", "Backend to use")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	flag.Parse()

	format, err := audio.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	log := slog.NewBackend(os.Stderr).Logger("PLAY")
	if *debug {
		log.SetLevel(slog.LevelDebug)
	}

	ctxCfg := &pcmio.ContextConfig{Log: log}
	if *backendName != "" {
		ctxCfg.Backends = []pcmio.BackendKind{pcmio.BackendKind(*backendName)}
	}
	ctx, err := pcmio.NewContext(ctxCfg)
	if err != nil {
		return err
	}
	defer ctx.Uninit()

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, &pcmio.Config{
		Format:     format,
		Channels:   *channels,
		SampleRate: *rate,
		DeviceID:   *deviceID,
		OnSend:     sineSource(*freq, 0.2),
		OnStop: func(d *pcmio.Device) {
			log.Infof("device stopped")
		},
	})
	if err != nil {
		return fmt.Errorf("open playback device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fmt.Printf("Playing %.0fHz on %s (%s %dch %dHz), Ctrl-C to stop\n",
		*freq, ctx.Backend(), format, *channels, *rate)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}
	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %v, stopping\n", sig)
	case <-timeout:
	}

	if err := dev.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// sineSource returns a send callback producing a steady tone on every
// channel. Phase carries across calls so block boundaries stay click-free.
func sineSource(freq, amplitude float64) pcmio.SendProc {
	var phase float64
	var scratch []float32
	return func(d *pcmio.Device, frames int, out []byte) int {
		p := d.Params()
		samples := frames * p.Channels
		if cap(scratch) < samples {
			scratch = make([]float32, samples)
		}
		block := scratch[:samples]

		step := 2 * math.Pi * freq / float64(p.SampleRate)
		for f := 0; f < frames; f++ {
			v := float32(amplitude * math.Sin(phase))
			for c := 0; c < p.Channels; c++ {
				block[f*p.Channels+c] = v
			}
			phase += step
			if phase >= 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
		convert.FromFloat32(out, block, p.Format, samples)
		return frames
	}
}
