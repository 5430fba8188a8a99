// ABOUTME: Captures a device and writes the result to a WAV file
// ABOUTME: Capture worker hands blocks to the writer over a channel
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/decred/slog"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/oto"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/portaudio"
)

var (
	outPath     = flag.String("out", "capture.wav", "Output WAV path")
	rate        = flag.Int("rate", 44100, "Sample rate")
	channels    = flag.Int("channels", 2, "Channel count")
	duration    = flag.Duration("duration", 10*time.Second, "How long to record (0: until Ctrl-C)")
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

	log := slog.NewBackend(os.Stderr).Logger("REC")
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

	// The capture worker must never block on disk I/O, so blocks cross to
	// the writer over a buffered channel and overflow is counted, not waited
	// out.
	blocks := make(chan []byte, 256)
	var dropped atomic.Int64

	dev, err := pcmio.NewDevice(ctx, pcmio.Capture, &pcmio.Config{
		Format:     audio.FormatS16,
		Channels:   *channels,
		SampleRate: *rate,
		DeviceID:   *deviceID,
		OnRecv: func(d *pcmio.Device, frames int, in []byte) {
			block := make([]byte, len(in))
			copy(block, in)
			select {
			case blocks <- block:
			default:
				dropped.Add(1)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	defer dev.Uninit()

	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, *rate, 16, *channels, 1)

	if err := dev.Start(); err != nil {
		f.Close()
		return fmt.Errorf("start: %w", err)
	}
	fmt.Printf("Recording %s %dch %dHz from %s to %s, Ctrl-C to stop\n",
		audio.FormatS16, *channels, *rate, ctx.Backend(), *outPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	frames := 0
loop:
	for {
		select {
		case block := <-blocks:
			n, err := writeBlock(enc, block, *rate, *channels)
			if err != nil {
				dev.Stop()
				f.Close()
				return fmt.Errorf("write wav: %w", err)
			}
			frames += n
		case sig := <-sigChan:
			fmt.Printf("\nReceived %v, stopping\n", sig)
			break loop
		case <-timeout:
			break loop
		}
	}

	if err := dev.Stop(); err != nil {
		log.Warnf("stop: %v", err)
	}

	// Flush whatever the worker queued before it stopped.
	for {
		select {
		case block := <-blocks:
			n, err := writeBlock(enc, block, *rate, *channels)
			if err != nil {
				f.Close()
				return fmt.Errorf("write wav: %w", err)
			}
			frames += n
		default:
			if err := enc.Close(); err != nil {
				f.Close()
				return fmt.Errorf("finalize wav: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Wrote %d frames (%.1fs) to %s\n",
				frames, float64(frames)/float64(*rate), *outPath)
			if n := dropped.Load(); n > 0 {
				fmt.Printf("Dropped %d blocks (writer too slow)\n", n)
			}
			return nil
		}
	}
}

// writeBlock converts one interleaved s16 block and appends it to the
// encoder. Returns the frame count written.
func writeBlock(enc *wav.Encoder, block []byte, rate, channels int) (int, error) {
	ints := make([]int, len(block)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(block[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return 0, err
	}
	return len(ints) / channels, nil
}
