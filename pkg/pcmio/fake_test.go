// ABOUTME: In-test fake backend implementing the backend contract
// ABOUTME: Lets lifecycle tests script negotiation, start failures and fatal loop errors
package pcmio_test

import (
	"errors"
	"sync"
	"testing"

	isync "github.com/Resonate-Protocol/pcmio-go/internal/sync"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

var (
	fakeMu      sync.Mutex
	fakeFactory func(ctx *pcmio.Context) (pcmio.Backend, error)
)

func init() {
	pcmio.Register("fake", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		fakeMu.Lock()
		factory := fakeFactory
		fakeMu.Unlock()
		if factory == nil {
			return nil, errors.New("fake backend not armed")
		}
		return factory(ctx)
	})
	pcmio.Register("failing", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		return nil, errors.New("failing backend always fails")
	})
}

func armFake(t *testing.T, factory func(ctx *pcmio.Context) (pcmio.Backend, error)) {
	fakeMu.Lock()
	fakeFactory = factory
	fakeMu.Unlock()
	t.Cleanup(func() {
		fakeMu.Lock()
		fakeFactory = nil
		fakeMu.Unlock()
	})
}

// fakeBackend satisfies pcmio.Backend. negotiate lets a test pick the
// endpoint-native parameters; identity when nil.
type fakeBackend struct {
	ctx       *pcmio.Context
	async     bool
	devices   []pcmio.DeviceInfo
	negotiate func(d *pcmio.Device) pcmio.DeviceParams
	openErr   error

	mu      sync.Mutex
	opened  []*fakeDevice
	uninits int
}

func (b *fakeBackend) Kind() pcmio.BackendKind { return "fake" }

func (b *fakeBackend) Devices(kind pcmio.DeviceType) ([]pcmio.DeviceInfo, error) {
	return b.devices, nil
}

func (b *fakeBackend) OpenDevice(d *pcmio.Device) (pcmio.BackendDevice, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	params := pcmio.DeviceParams{Stream: d.Params()}
	if b.negotiate != nil {
		params = b.negotiate(d)
	}
	fd := &fakeDevice{
		dev:      d,
		params:   params,
		async:    b.async,
		breakEvt: isync.NewEvent(),
		loopErr:  make(chan error, 1),
	}
	b.mu.Lock()
	b.opened = append(b.opened, fd)
	b.mu.Unlock()
	return fd, nil
}

func (b *fakeBackend) Uninit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uninits++
	return nil
}

func (b *fakeBackend) lastDevice(t *testing.T) *fakeDevice {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.opened) == 0 {
		t.Fatalf("no device was opened")
	}
	return b.opened[len(b.opened)-1]
}

// newFakeContext arms the fake backend and builds a context over it.
func newFakeContext(t *testing.T, b *fakeBackend) *pcmio.Context {
	t.Helper()
	armFake(t, func(ctx *pcmio.Context) (pcmio.Backend, error) {
		b.ctx = ctx
		return b, nil
	})
	ctx, err := pcmio.NewContext(&pcmio.ContextConfig{Backends: []pcmio.BackendKind{"fake"}})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { ctx.Uninit() })
	return ctx
}

type fakeDevice struct {
	dev    *pcmio.Device
	params pcmio.DeviceParams
	async  bool

	mu       sync.Mutex
	startErr error
	running  bool
	starts   int
	stops    int
	closed   bool
	prefill  []byte

	breakEvt *isync.Event
	loopErr  chan error
}

func (f *fakeDevice) Params() pcmio.DeviceParams { return f.params }
func (f *fakeDevice) Async() bool                { return f.async }

func (f *fakeDevice) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	// Drop anything left over from the previous session.
	f.breakEvt.Reset()
	select {
	case <-f.loopErr:
	default:
	}
	if f.dev.Type() == pcmio.Playback {
		buf := make([]byte, f.dev.BufferSize()*f.params.Stream.FrameBytes())
		f.dev.ReadFromClient(f.dev.BufferSize(), buf)
		f.prefill = buf
	}
	f.running = true
	return nil
}

func (f *fakeDevice) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	return nil
}

func (f *fakeDevice) MainLoop() error {
	select {
	case err := <-f.loopErr:
		return err
	case <-f.breakEvt.C():
		return nil
	}
}

func (f *fakeDevice) Break() { f.breakEvt.Signal() }

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// failLoop injects a fatal main-loop error into a running session.
func (f *fakeDevice) failLoop(err error) { f.loopErr <- err }

func (f *fakeDevice) setStartErr(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *fakeDevice) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeDevice) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeDevice) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeDevice) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeDevice) prefillData() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefill
}
