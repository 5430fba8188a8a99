// ABOUTME: Tests for the device state machine and data paths
// ABOUTME: Exercises lifecycle transitions, races, padding and capture chunking
package pcmio_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func silentSend(d *pcmio.Device, frames int, out []byte) int { return frames }

func discardRecv(d *pcmio.Device, frames int, in []byte) {}

func playbackConfig() *pcmio.Config {
	return &pcmio.Config{
		Format:     audio.FormatS16,
		Channels:   2,
		SampleRate: 48000,
		OnSend:     silentSend,
	}
}

func captureConfig() *pcmio.Config {
	return &pcmio.Config{
		Format:     audio.FormatS16,
		Channels:   2,
		SampleRate: 48000,
		OnRecv:     discardRecv,
	}
}

func TestDeviceLifecycle(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	fd := b.lastDevice(t)

	// The worker parks through a synthetic backend stop that must not
	// reach the application.
	assert.Equal(t, pcmio.Stopped, dev.State())
	assert.Equal(t, 1, fd.stopCount())
	assert.Equal(t, int32(0), stops.Load())

	require.NoError(t, dev.Start())
	assert.Equal(t, pcmio.Started, dev.State())
	assert.True(t, fd.isRunning())

	require.NoError(t, dev.Stop())
	assert.Equal(t, pcmio.Stopped, dev.State())
	assert.False(t, fd.isRunning())
	assert.Equal(t, int32(1), stops.Load())

	require.NoError(t, dev.Uninit())
	assert.Equal(t, pcmio.Uninitialized, dev.State())
	assert.True(t, fd.isClosed())
	assert.Equal(t, int32(1), stops.Load())
}

func TestDeviceDefaults(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, playbackConfig())
	require.NoError(t, err)
	defer dev.Uninit()

	assert.Equal(t, (48000/1000)*pcmio.DefaultBufferSizeMS, dev.BufferSize())
	assert.Equal(t, pcmio.DefaultPeriods, dev.Periods())
	assert.Equal(t, dev.BufferSize()/pcmio.DefaultPeriods, dev.PeriodFrames())
	assert.True(t, dev.UsingDefaultBufferSize())
	assert.True(t, dev.UsingDefaultPeriods())
}

func TestDeviceExplicitGeometry(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	cfg := playbackConfig()
	cfg.BufferSize = 2048
	cfg.Periods = 4

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	assert.Equal(t, 2048, dev.BufferSize())
	assert.Equal(t, 4, dev.Periods())
	assert.False(t, dev.UsingDefaultBufferSize())
	assert.False(t, dev.UsingDefaultPeriods())
}

func TestBackendAdjustsGeometry(t *testing.T) {
	b := &fakeBackend{
		negotiate: func(d *pcmio.Device) pcmio.DeviceParams {
			return pcmio.DeviceParams{
				Stream:     d.Params(),
				BufferSize: 4096,
				Periods:    3,
			}
		},
	}
	ctx := newFakeContext(t, b)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, playbackConfig())
	require.NoError(t, err)
	defer dev.Uninit()

	assert.Equal(t, 4096, dev.BufferSize())
	assert.Equal(t, 3, dev.Periods())
}

func TestNewDeviceValidation(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	tests := []struct {
		name string
		typ  pcmio.DeviceType
		cfg  *pcmio.Config
		want pcmio.Code
	}{
		{"nil config", pcmio.Playback, nil, pcmio.ErrInvalidArgs},
		{"bad type", pcmio.DeviceType(9), playbackConfig(), pcmio.ErrInvalidArgs},
		{"playback without OnSend", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, Channels: 2, SampleRate: 48000,
		}, pcmio.ErrInvalidDeviceConfig},
		{"capture without OnRecv", pcmio.Capture, &pcmio.Config{
			Format: audio.FormatS16, Channels: 2, SampleRate: 48000,
		}, pcmio.ErrInvalidDeviceConfig},
		{"unknown format", pcmio.Playback, &pcmio.Config{
			Channels: 2, SampleRate: 48000, OnSend: silentSend,
		}, pcmio.ErrFormatNotSupported},
		{"zero channels", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, SampleRate: 48000, OnSend: silentSend,
		}, pcmio.ErrInvalidDeviceConfig},
		{"too many channels", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, Channels: audio.MaxChannels + 1,
			SampleRate: 48000, OnSend: silentSend,
		}, pcmio.ErrInvalidDeviceConfig},
		{"zero rate", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, Channels: 2, OnSend: silentSend,
		}, pcmio.ErrInvalidDeviceConfig},
		{"map length mismatch", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, Channels: 2, SampleRate: 48000,
			ChannelMap: audio.ChannelMap{audio.ChannelFrontLeft},
			OnSend:     silentSend,
		}, pcmio.ErrInvalidDeviceConfig},
		{"duplicate map entries", pcmio.Playback, &pcmio.Config{
			Format: audio.FormatS16, Channels: 2, SampleRate: 48000,
			ChannelMap: audio.ChannelMap{audio.ChannelFrontLeft, audio.ChannelFrontLeft},
			OnSend:     silentSend,
		}, pcmio.ErrInvalidDeviceConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pcmio.NewDevice(ctx, tt.typ, tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestDoubleStartAndStop(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, playbackConfig())
	require.NoError(t, err)
	defer dev.Uninit()

	// Stopping a device that never started.
	assert.Equal(t, pcmio.ErrDeviceAlreadyStopped, dev.Stop())

	require.NoError(t, dev.Start())
	assert.Equal(t, pcmio.ErrDeviceAlreadyStarted, dev.Start())

	require.NoError(t, dev.Stop())
	assert.Equal(t, pcmio.ErrDeviceAlreadyStopped, dev.Stop())

	// The device restarts cleanly after a full cycle.
	require.NoError(t, dev.Start())
	require.NoError(t, dev.Stop())
}

func TestOnStopExactlyOncePerSession(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	const sessions = 5
	for i := 0; i < sessions; i++ {
		require.NoError(t, dev.Start())
		require.NoError(t, dev.Stop())
	}
	assert.Equal(t, int32(sessions), stops.Load())
}

func TestStartFailureLeavesDeviceStopped(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	fd := b.lastDevice(t)
	startErr := fmt.Errorf("endpoint rejected config: %w", pcmio.ErrFailedToStartBackendDevice)
	fd.setStartErr(startErr)

	err = dev.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pcmio.ErrFailedToStartBackendDevice))
	assert.Equal(t, pcmio.Stopped, dev.State())
	assert.Equal(t, int32(0), stops.Load(), "a session that never began must not fire OnStop")

	// The device recovers once the backend does.
	fd.setStartErr(nil)
	require.NoError(t, dev.Start())
	require.NoError(t, dev.Stop())
	assert.Equal(t, int32(1), stops.Load())
}

func TestFatalMainLoopError(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	require.NoError(t, dev.Start())
	fd := b.lastDevice(t)
	fd.failLoop(errors.New("device unplugged"))

	require.Eventually(t, func() bool {
		return dev.State() == pcmio.Stopped
	}, time.Second, time.Millisecond, "worker should fall back to Stopped")
	assert.Equal(t, int32(1), stops.Load())
	assert.Equal(t, pcmio.ErrDeviceAlreadyStopped, dev.Stop())

	// A new session works after the failure.
	require.NoError(t, dev.Start())
	require.NoError(t, dev.Stop())
	assert.Equal(t, int32(2), stops.Load())
}

func TestUninitWhileStarted(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)

	require.NoError(t, dev.Start())
	require.NoError(t, dev.Uninit())

	assert.Equal(t, pcmio.Uninitialized, dev.State())
	assert.Equal(t, int32(1), stops.Load())
	assert.True(t, b.lastDevice(t).isClosed())

	// Uninit again is a no-op; other calls report the terminal state.
	require.NoError(t, dev.Uninit())
	assert.Equal(t, pcmio.ErrDeviceNotInitialized, dev.Start())
	assert.Equal(t, pcmio.ErrDeviceNotInitialized, dev.Stop())
}

func TestStartStopRace(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, playbackConfig())
	require.NoError(t, err)
	defer dev.Uninit()

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		var errStart, errStop error

		wg.Add(2)
		go func() {
			defer wg.Done()
			errStart = dev.Start()
		}()
		go func() {
			defer wg.Done()
			errStop = dev.Stop()
		}()
		wg.Wait()

		// Start always wins from Stopped; the concurrent Stop either
		// finished the session, lost to the transition in flight, or
		// observed the still-stopped device.
		require.NoError(t, errStart, "iteration %d", i)
		switch {
		case errStop == nil:
			assert.Equal(t, pcmio.Stopped, dev.State(), "iteration %d", i)
		case errors.Is(errStop, pcmio.ErrDeviceAlreadyStopped),
			errors.Is(errStop, pcmio.ErrDeviceBusy):
			assert.Equal(t, pcmio.Started, dev.State(), "iteration %d", i)
		default:
			t.Fatalf("iteration %d: unexpected stop result %v", i, errStop)
		}

		if dev.State() == pcmio.Started {
			require.NoError(t, dev.Stop())
		}
	}
}

func TestPlaybackPrefillBeforeStart(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	var sends atomic.Int32
	cfg := playbackConfig()
	cfg.OnSend = func(d *pcmio.Device, frames int, out []byte) int {
		sends.Add(1)
		for i := 0; i < frames*2; i++ {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(i)))
		}
		return frames
	}

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	assert.Equal(t, int32(0), sends.Load())

	require.NoError(t, dev.Start())
	assert.GreaterOrEqual(t, sends.Load(), int32(1),
		"the first send must be satisfied during start")

	prefill := b.lastDevice(t).prefillData()
	require.Len(t, prefill, dev.BufferSize()*4)
	assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(prefill[0:])))
	assert.Equal(t, int16(1), int16(binary.LittleEndian.Uint16(prefill[2:])))

	require.NoError(t, dev.Stop())
}

func TestSendUnderdeliveryPadsSilence(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	const delivered = 10
	cfg := playbackConfig()
	cfg.OnSend = func(d *pcmio.Device, frames int, out []byte) int {
		n := delivered
		if n > frames {
			n = frames
		}
		for i := 0; i < n*2; i++ {
			binary.LittleEndian.PutUint16(out[i*2:], 0x7FFF)
		}
		return n
	}

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	const ask = 64
	buf := make([]byte, ask*4)
	n := dev.ReadFromClient(ask, buf)
	require.Equal(t, ask, n)

	for i := 0; i < delivered*2; i++ {
		assert.Equal(t, uint16(0x7FFF), binary.LittleEndian.Uint16(buf[i*2:]))
	}
	tail := buf[delivered*4:]
	assert.True(t, bytes.Equal(tail, make([]byte, len(tail))),
		"undelivered frames must be silence")
}

func TestCaptureChunking(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	type chunk struct {
		frames int
		data   []byte
	}
	var chunks []chunk
	cfg := captureConfig()
	cfg.OnRecv = func(d *pcmio.Device, frames int, in []byte) {
		chunks = append(chunks, chunk{frames, bytes.Clone(in)})
	}

	dev, err := pcmio.NewDevice(ctx, pcmio.Capture, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	// 2500 stereo s16 frames: 4 bytes per frame, so the 4096-byte chunk
	// limit is 1024 frames.
	const frames = 2500
	src := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(src[i*4:], uint16(int16(i)))
		binary.LittleEndian.PutUint16(src[i*4+2:], uint16(int16(-i)))
	}

	dev.DeliverToClient(frames, src)

	require.Len(t, chunks, 3)
	assert.Equal(t, 1024, chunks[0].frames)
	assert.Equal(t, 1024, chunks[1].frames)
	assert.Equal(t, 452, chunks[2].frames)

	var total []byte
	for _, c := range chunks {
		assert.Equal(t, c.frames*4, len(c.data), "chunks hold whole frames")
		total = append(total, c.data...)
	}
	assert.True(t, bytes.Equal(src, total), "chunks must concatenate to the input")
}

func TestCaptureConvertsToDeclaredFormat(t *testing.T) {
	b := &fakeBackend{
		negotiate: func(d *pcmio.Device) pcmio.DeviceParams {
			p := d.Params()
			p.Format = audio.FormatS16
			return pcmio.DeviceParams{Stream: p}
		},
	}
	ctx := newFakeContext(t, b)

	var got []float32
	cfg := &pcmio.Config{
		Format:     audio.FormatF32,
		Channels:   1,
		SampleRate: 48000,
		OnRecv: func(d *pcmio.Device, frames int, in []byte) {
			for i := 0; i < frames; i++ {
				got = append(got, math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:])))
			}
		},
	}

	dev, err := pcmio.NewDevice(ctx, pcmio.Capture, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	src := make([]byte, 3*2)
	minS16 := int16(-32768)
	binary.LittleEndian.PutUint16(src[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(src[2:], uint16(int16(16384)))
	binary.LittleEndian.PutUint16(src[4:], uint16(minS16))

	dev.DeliverToClient(3, src)

	require.Len(t, got, 3)
	assert.Equal(t, float32(0), got[0])
	assert.Equal(t, float32(0.5), got[1])
	assert.Equal(t, float32(-1), got[2])
}

func TestAsyncDeviceLifecycle(t *testing.T) {
	b := &fakeBackend{async: true}
	ctx := newFakeContext(t, b)

	var stops atomic.Int32
	cfg := playbackConfig()
	cfg.OnStop = func(d *pcmio.Device) { stops.Add(1) }

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	fd := b.lastDevice(t)

	// No worker means no synthetic stop.
	assert.Equal(t, 0, fd.stopCount())

	require.NoError(t, dev.Start())
	assert.Equal(t, pcmio.Started, dev.State())
	assert.True(t, fd.isRunning())
	assert.Equal(t, 1, fd.startCount())

	require.NoError(t, dev.Stop())
	assert.Equal(t, pcmio.Stopped, dev.State())
	assert.Equal(t, int32(1), stops.Load())

	require.NoError(t, dev.Uninit())
	assert.True(t, fd.isClosed())
}

func TestCallbackSwapWhileOpen(t *testing.T) {
	b := &fakeBackend{}
	ctx := newFakeContext(t, b)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, playbackConfig())
	require.NoError(t, err)
	defer dev.Uninit()

	dev.SetOnSend(func(d *pcmio.Device, frames int, out []byte) int {
		for i := range out[:frames*4] {
			out[i] = 0xAB
		}
		return frames
	})

	buf := make([]byte, 4*4)
	dev.ReadFromClient(4, buf)
	for _, v := range buf {
		require.Equal(t, byte(0xAB), v)
	}

	// A nil callback silences the stream rather than crashing.
	dev.SetOnSend(nil)
	dev.ReadFromClient(4, buf)
	assert.True(t, bytes.Equal(buf, make([]byte, len(buf))))
}

func TestDeviceAccessors(t *testing.T) {
	b := &fakeBackend{
		negotiate: func(d *pcmio.Device) pcmio.DeviceParams {
			return pcmio.DeviceParams{Stream: audio.StreamParams{
				Format:     audio.FormatF32,
				Channels:   2,
				SampleRate: 44100,
				ChannelMap: audio.DefaultChannelMap(2),
			}}
		},
	}
	ctx := newFakeContext(t, b)

	cfg := playbackConfig()
	cfg.DeviceID = "hw:1,0"
	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, cfg)
	require.NoError(t, err)
	defer dev.Uninit()

	assert.Equal(t, pcmio.Playback, dev.Type())
	assert.Equal(t, "hw:1,0", dev.ID())
	assert.Same(t, ctx, dev.Context())

	assert.Equal(t, audio.FormatS16, dev.Params().Format)
	assert.Equal(t, 48000, dev.Params().SampleRate)
	assert.Equal(t, audio.FormatF32, dev.Native().Format)
	assert.Equal(t, 44100, dev.Native().SampleRate)

	// The declared map was defaulted for two channels.
	assert.True(t, dev.Params().ChannelMap.Equal(audio.DefaultChannelMap(2)))
}
