// ABOUTME: Device lifecycle: state machine, worker goroutine and DSP plumbing
// ABOUTME: Transitions serialise on the device mutex; state is one atomic word
package pcmio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	isync "github.com/Resonate-Protocol/pcmio-go/internal/sync"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/pipeline"
)

// State is the lifecycle state of a device.
type State int32

const (
	Uninitialized State = iota
	Stopped
	Starting
	Started
	Stopping
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Device is one open playback or capture endpoint. All public methods are
// safe for concurrent use; the callback setters are lock-free.
type Device struct {
	ctx *Context
	typ DeviceType

	// Declared parameters, what the application callbacks see. Immutable
	// after init.
	declared audio.StreamParams

	// Endpoint-native parameters chosen by the backend. Immutable after
	// init.
	native audio.StreamParams

	bufferSize             int
	periods                int
	usingDefaultBufferSize bool
	usingDefaultPeriods    bool

	deviceID string

	onSend atomic.Pointer[SendProc]
	onRecv atomic.Pointer[RecvProc]
	onStop atomic.Pointer[StopProc]
	onLog  atomic.Pointer[LogProc]

	state atomic.Int32

	mu sync.Mutex // serialises start, stop and uninit

	bd    BackendDevice
	async bool

	pipe *pipeline.Pipeline

	// Block currently being drained by DeliverToClient.
	captureBuf    []byte
	captureOff    int
	captureFrames int
	recvScratch   []byte

	wakeupEvent *isync.Event
	startEvent  *isync.Event
	stopEvent   *isync.Event

	// workResult carries the backend start result from the worker to the
	// goroutine blocked in Start.
	workResult error

	// suppressStop skips the stop callback for the synthetic stop the
	// worker runs right after init. Only the worker touches it once the
	// worker is running.
	suppressStop bool

	workerDone chan struct{}
}

// NewDevice opens one endpoint of the given type through the context's
// backend, builds the DSP pipeline between the declared and the negotiated
// parameters and leaves the device in the Stopped state.
func NewDevice(ctx *Context, typ DeviceType, cfg *Config) (*Device, error) {
	if ctx == nil || ctx.backend == nil {
		return nil, fmt.Errorf("context not initialized: %w", ErrInvalidArgs)
	}
	if cfg == nil {
		return nil, fmt.Errorf("nil device config: %w", ErrInvalidArgs)
	}
	if typ != Playback && typ != Capture {
		return nil, fmt.Errorf("unknown device type %d: %w", int(typ), ErrInvalidArgs)
	}
	if typ == Playback && cfg.OnSend == nil {
		return nil, fmt.Errorf("playback device needs OnSend: %w", ErrInvalidDeviceConfig)
	}
	if typ == Capture && cfg.OnRecv == nil {
		return nil, fmt.Errorf("capture device needs OnRecv: %w", ErrInvalidDeviceConfig)
	}
	if !cfg.Format.Valid() {
		return nil, fmt.Errorf("format %s: %w", cfg.Format, ErrFormatNotSupported)
	}
	if cfg.Channels < 1 || cfg.Channels > audio.MaxChannels {
		return nil, fmt.Errorf("%d channels: %w", cfg.Channels, ErrInvalidDeviceConfig)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d: %w", cfg.SampleRate, ErrInvalidDeviceConfig)
	}

	chmap := cfg.ChannelMap.Clone()
	if len(chmap) == 0 {
		chmap = audio.DefaultChannelMap(cfg.Channels)
	} else {
		if len(chmap) != cfg.Channels {
			return nil, fmt.Errorf("channel map holds %d entries for %d channels: %w",
				len(chmap), cfg.Channels, ErrInvalidDeviceConfig)
		}
		if err := chmap.Validate(); err != nil {
			return nil, fmt.Errorf("channel map: %v: %w", err, ErrInvalidDeviceConfig)
		}
	}

	d := &Device{
		ctx: ctx,
		typ: typ,
		declared: audio.StreamParams{
			Format:     cfg.Format,
			Channels:   cfg.Channels,
			SampleRate: cfg.SampleRate,
			ChannelMap: chmap,
		},
		bufferSize:  cfg.BufferSize,
		periods:     cfg.Periods,
		deviceID:    cfg.DeviceID,
		wakeupEvent: isync.NewEvent(),
		startEvent:  isync.NewEvent(),
		stopEvent:   isync.NewEvent(),
	}
	if d.bufferSize == 0 {
		d.bufferSize = (cfg.SampleRate / 1000) * DefaultBufferSizeMS
		d.usingDefaultBufferSize = true
	}
	if d.periods == 0 {
		d.periods = DefaultPeriods
		d.usingDefaultPeriods = true
	}

	d.SetOnSend(cfg.OnSend)
	d.SetOnRecv(cfg.OnRecv)
	d.SetOnStop(cfg.OnStop)
	d.SetOnLog(cfg.OnLog)

	bd, err := ctx.backend.OpenDevice(d)
	if err != nil {
		return nil, err
	}
	d.bd = bd
	d.async = bd.Async()

	params := bd.Params()
	d.native = params.Stream
	if params.BufferSize > 0 {
		d.bufferSize = params.BufferSize
	}
	if params.Periods > 0 {
		d.periods = params.Periods
	}

	if err := d.buildPipeline(); err != nil {
		bd.Close()
		return nil, err
	}
	if typ == Capture {
		d.recvScratch = make([]byte, maxClientChunkBytes)
	}

	d.setState(Stopped)

	if !d.async {
		d.workerDone = make(chan struct{})
		d.suppressStop = true
		go d.worker()
		// The worker posts a synthetic stop as it parks; consume it so
		// the device is settled before NewDevice returns.
		d.stopEvent.Wait()
	}

	d.logf("initialized %s device: declared %s, native %s, buffer %d frames x%d periods",
		typ, describeParams(d.declared), describeParams(d.native), d.bufferSize, d.periods)
	return d, nil
}

func (d *Device) buildPipeline() error {
	var cfg pipeline.Config
	if d.typ == Playback {
		cfg = pipeline.Config{In: d.declared, Out: d.native, Read: d.clientRead}
	} else {
		cfg = pipeline.Config{In: d.native, Out: d.declared, Read: d.captureRead}
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("pipeline: %v: %w", err, ErrInvalidDeviceConfig)
	}
	d.pipe = p
	return nil
}

// State reports the current lifecycle state. Reads are lock-free.
func (d *Device) State() State {
	return State(d.state.Load())
}

func (d *Device) setState(s State) {
	d.state.Store(int32(s))
}

// setStateUnlessUninit publishes a worker-side state without clobbering a
// concurrent Uninit. Uninitialized is sticky.
func (d *Device) setStateUnlessUninit(s State) {
	for {
		cur := d.state.Load()
		if State(cur) == Uninitialized {
			return
		}
		if d.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Type reports the direction of the device.
func (d *Device) Type() DeviceType { return d.typ }

// Params returns the declared stream parameters, the ones the callbacks
// see. Callers must not modify the channel map.
func (d *Device) Params() audio.StreamParams { return d.declared }

// Native returns the endpoint-native parameters the backend negotiated.
func (d *Device) Native() audio.StreamParams { return d.native }

// BufferSize reports the device buffer size in frames after negotiation.
func (d *Device) BufferSize() int { return d.bufferSize }

// Periods reports how many periods the buffer is divided into.
func (d *Device) Periods() int { return d.periods }

// PeriodFrames reports the frames per period after negotiation.
func (d *Device) PeriodFrames() int { return d.bufferSize / d.periods }

// UsingDefaultBufferSize reports whether the buffer size was defaulted.
// Backends with known-bad latency at the default may scale it up.
func (d *Device) UsingDefaultBufferSize() bool { return d.usingDefaultBufferSize }

// UsingDefaultPeriods reports whether the period count was defaulted.
func (d *Device) UsingDefaultPeriods() bool { return d.usingDefaultPeriods }

// ID returns the endpoint identifier the device was opened with; empty
// means the backend default.
func (d *Device) ID() string { return d.deviceID }

// Context returns the owning context.
func (d *Device) Context() *Context { return d.ctx }

// SetOnSend replaces the playback source callback. Safe while running; the
// data path picks it up on the next period.
func (d *Device) SetOnSend(fn SendProc) {
	if fn == nil {
		d.onSend.Store(nil)
		return
	}
	d.onSend.Store(&fn)
}

// SetOnRecv replaces the capture sink callback.
func (d *Device) SetOnRecv(fn RecvProc) {
	if fn == nil {
		d.onRecv.Store(nil)
		return
	}
	d.onRecv.Store(&fn)
}

// SetOnStop replaces the stop callback.
func (d *Device) SetOnStop(fn StopProc) {
	if fn == nil {
		d.onStop.Store(nil)
		return
	}
	d.onStop.Store(&fn)
}

// SetOnLog replaces the log callback.
func (d *Device) SetOnLog(fn LogProc) {
	if fn == nil {
		d.onLog.Store(nil)
		return
	}
	d.onLog.Store(&fn)
}

// Start begins the stream. For playback the first full buffer is pulled
// from the send callback before audio leaves the endpoint.
func (d *Device) Start() error {
	// Quick racy checks give precise already/busy answers without
	// blocking behind a transition in flight.
	switch d.State() {
	case Uninitialized:
		return ErrDeviceNotInitialized
	case Starting:
		return ErrDeviceAlreadyStarting
	case Started:
		return ErrDeviceAlreadyStarted
	case Stopping:
		return ErrDeviceBusy
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Under the mutex only settled states remain observable.
	switch d.State() {
	case Uninitialized:
		return ErrDeviceNotInitialized
	case Started:
		return ErrDeviceAlreadyStarted
	}

	d.setState(Starting)

	if d.async {
		if err := d.bd.Start(); err != nil {
			d.setState(Stopped)
			return err
		}
		d.setState(Started)
		return nil
	}

	// A fatal main-loop error posts a stop token nobody consumed; clear
	// it while the worker is parked so a later Stop cannot return early.
	d.stopEvent.Reset()
	d.workResult = nil
	d.wakeupEvent.Signal()
	d.startEvent.Wait()
	return d.workResult
}

// Stop halts the stream and fires the stop callback. It returns once the
// device is back in the Stopped state.
func (d *Device) Stop() error {
	switch d.State() {
	case Uninitialized:
		return ErrDeviceNotInitialized
	case Stopping:
		return ErrDeviceAlreadyStopping
	case Stopped:
		return ErrDeviceAlreadyStopped
	case Starting:
		return ErrDeviceBusy
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.State() {
	case Uninitialized:
		return ErrDeviceNotInitialized
	case Stopped:
		return ErrDeviceAlreadyStopped
	}

	d.setState(Stopping)

	if d.async {
		err := d.bd.Stop()
		d.setState(Stopped)
		d.fireOnStop()
		return err
	}

	d.bd.Break()
	d.stopEvent.Wait()
	// A stale token from a worker-initiated stop can wake us before the
	// worker finished this one; wait for the real signal.
	if d.State() == Stopping {
		d.stopEvent.Wait()
	}
	return nil
}

// Uninit stops the device if needed, joins the worker and releases all
// backend state. Calling it on an uninitialized device is a no-op.
func (d *Device) Uninit() error {
	if d.State() == Uninitialized {
		return nil
	}

	// Ride out transient transitions; a concurrent start or stop settles
	// within one period.
	for {
		err := d.Stop()
		if err == ErrDeviceBusy || err == ErrDeviceAlreadyStopping {
			time.Sleep(time.Millisecond)
			continue
		}
		break
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.State() == Uninitialized {
		return nil
	}
	d.setState(Uninitialized)

	if !d.async {
		d.wakeupEvent.Signal()
		<-d.workerDone
	}

	d.logf("device uninitialized")

	var err error
	if d.bd != nil {
		err = d.bd.Close()
		d.bd = nil
	}
	d.pipe = nil
	d.captureBuf = nil
	d.recvScratch = nil
	return err
}

// worker is the device goroutine for blocking backends. It parks on the
// wakeup event between sessions and owns every backend call that must
// happen on the device thread.
func (d *Device) worker() {
	// Some native audio APIs keep per-thread state; pin the goroutine so
	// the backend always sees the same OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.workerDone)

	for {
		// The device is stopped, or about to be. The first pass is the
		// synthetic stop that parks a freshly initialized device.
		if err := d.bd.Stop(); err != nil {
			d.logf("backend stop: %v", err)
		}
		if d.suppressStop {
			d.suppressStop = false
		} else {
			d.fireOnStop()
		}
		d.setStateUnlessUninit(Stopped)
		d.stopEvent.Signal()

		for {
			d.wakeupEvent.Wait()
			if d.State() == Uninitialized {
				return
			}

			err := d.bd.Start()
			d.workResult = err
			if err != nil {
				// The session never began; report through the start
				// event and stay parked. No stop callback fires.
				d.setStateUnlessUninit(Stopped)
				d.startEvent.Signal()
				continue
			}

			d.setStateUnlessUninit(Started)
			d.startEvent.Signal()
			break
		}

		if err := d.bd.MainLoop(); err != nil {
			d.logf("main loop: %v", err)
		}
	}
}

func (d *Device) fireOnStop() {
	if fn := d.onStop.Load(); fn != nil {
		(*fn)(d)
	}
}

// clientRead pulls frames from the send callback in the declared format,
// padding any under-delivery with silence.
func (d *Device) clientRead(frames int, dst []byte) int {
	frameBytes := d.declared.FrameBytes()
	want := frames * frameBytes

	var got int
	if fn := d.onSend.Load(); fn != nil {
		got = (*fn)(d, frames, dst[:want])
	}
	if got < 0 {
		got = 0
	}
	if got > frames {
		got = frames
	}
	if got < frames {
		zeroBytes(dst[got*frameBytes : want])
	}
	return frames
}

// captureRead serves the pipeline from the block the backend handed to
// DeliverToClient.
func (d *Device) captureRead(frames int, dst []byte) int {
	avail := d.captureFrames - d.captureOff
	if frames > avail {
		frames = avail
	}
	if frames <= 0 {
		return 0
	}
	frameBytes := d.native.FrameBytes()
	off := d.captureOff * frameBytes
	copy(dst, d.captureBuf[off:off+frames*frameBytes])
	d.captureOff += frames
	return frames
}

// ReadFromClient fills dst with frames in the endpoint-native format by
// running the send callback through the DSP pipeline. Backends always get
// full buffers; anything the pipeline could not produce is silence.
func (d *Device) ReadFromClient(frames int, dst []byte) int {
	if frames <= 0 || d.pipe == nil {
		return 0
	}
	frameBytes := d.native.FrameBytes()
	n := d.pipe.Read(frames, dst[:frames*frameBytes])
	if n < frames {
		zeroBytes(dst[n*frameBytes : frames*frameBytes])
	}
	return frames
}

// DeliverToClient runs captured endpoint-native frames through the inverse
// pipeline and hands them to the recv callback in chunks of at most 4096
// bytes of whole frames.
func (d *Device) DeliverToClient(frames int, src []byte) {
	if frames <= 0 || d.pipe == nil || d.recvScratch == nil {
		return
	}
	d.captureBuf = src
	d.captureOff = 0
	d.captureFrames = frames

	frameBytes := d.declared.FrameBytes()
	chunkFrames := maxClientChunkBytes / frameBytes
	if chunkFrames < 1 {
		chunkFrames = 1
	}

	fn := d.onRecv.Load()
	for {
		n := d.pipe.Read(chunkFrames, d.recvScratch[:chunkFrames*frameBytes])
		if n == 0 {
			break
		}
		if fn != nil {
			(*fn)(d, n, d.recvScratch[:n*frameBytes])
		}
		if n < chunkFrames {
			break
		}
	}
	d.captureBuf = nil
	d.captureFrames = 0
}

// logf sends a diagnostic line to the context logger and the device's log
// callback.
func (d *Device) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.ctx.log.Debugf("%s: %s", d.typ, msg)
	if fn := d.onLog.Load(); fn != nil {
		(*fn)(d, msg)
	}
}

func describeParams(p audio.StreamParams) string {
	return fmt.Sprintf("%s/%dch/%dHz", p.Format, p.Channels, p.SampleRate)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
