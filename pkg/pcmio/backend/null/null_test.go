// ABOUTME: End-to-end tests driving real devices over the null backend
// ABOUTME: Verifies registration, pacing, silence capture and clean teardown
package null_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"

	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
)

func newNullContext(t *testing.T) *pcmio.Context {
	t.Helper()
	ctx, err := pcmio.NewContext(&pcmio.ContextConfig{
		Backends: []pcmio.BackendKind{"null"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Uninit() })
	return ctx
}

func TestNullBackendRegistered(t *testing.T) {
	ctx := newNullContext(t)
	assert.Equal(t, pcmio.BackendKind("null"), ctx.Backend())

	infos, err := ctx.Devices(pcmio.Playback)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "null", infos[0].ID)
}

func TestNullPlaybackSession(t *testing.T) {
	ctx := newNullContext(t)

	var sends, stops atomic.Int32
	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, &pcmio.Config{
		Format:     audio.FormatS16,
		Channels:   2,
		SampleRate: 48000,
		BufferSize: 480, // 5 ms periods keep the test fast
		OnSend: func(d *pcmio.Device, frames int, out []byte) int {
			sends.Add(1)
			return frames
		},
		OnStop: func(d *pcmio.Device) { stops.Add(1) },
	})
	require.NoError(t, err)
	defer dev.Uninit()

	require.NoError(t, dev.Start())

	// Pre-fill accounts for the first pull; the ticker must keep pulling.
	require.Eventually(t, func() bool { return sends.Load() >= 3 },
		time.Second, time.Millisecond, "device should keep pulling periods")

	require.NoError(t, dev.Stop())
	assert.Equal(t, int32(1), stops.Load())

	pulled := sends.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, pulled, sends.Load(), "no pulls after stop")
}

func TestNullCaptureDeliversSilence(t *testing.T) {
	ctx := newNullContext(t)

	var recvs atomic.Int32
	var dirty atomic.Bool
	dev, err := pcmio.NewDevice(ctx, pcmio.Capture, &pcmio.Config{
		Format:     audio.FormatS16,
		Channels:   1,
		SampleRate: 48000,
		BufferSize: 480,
		OnRecv: func(d *pcmio.Device, frames int, in []byte) {
			recvs.Add(1)
			for _, v := range in {
				if v != 0 {
					dirty.Store(true)
				}
			}
		},
	})
	require.NoError(t, err)
	defer dev.Uninit()

	require.NoError(t, dev.Start())
	require.Eventually(t, func() bool { return recvs.Load() >= 2 },
		time.Second, time.Millisecond)
	require.NoError(t, dev.Stop())

	assert.False(t, dirty.Load(), "null capture must deliver silence")
}

func TestNullUninitWhileRunning(t *testing.T) {
	ctx := newNullContext(t)

	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, &pcmio.Config{
		Format:     audio.FormatF32,
		Channels:   2,
		SampleRate: 44100,
		BufferSize: 441,
		OnSend:     func(d *pcmio.Device, frames int, out []byte) int { return frames },
	})
	require.NoError(t, err)

	require.NoError(t, dev.Start())
	require.NoError(t, dev.Uninit())
	assert.Equal(t, pcmio.Uninitialized, dev.State())
}
