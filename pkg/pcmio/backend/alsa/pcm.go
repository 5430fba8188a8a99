// ABOUTME: One kernel PCM node: open, parameter negotiation, frame transfer
// ABOUTME: Talks to /dev/snd/pcmC*D*{p,c} directly, no alsa-lib involved
//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	"golang.org/x/sys/unix"
)

// alsaFormats maps native sample formats to snd_pcm_format_t values.
var alsaFormats = map[audio.Format]uint32{
	audio.FormatU8:  formatU8,
	audio.FormatS16: formatS16LE,
	audio.FormatS24: formatS243LE,
	audio.FormatS32: formatS32LE,
	audio.FormatF32: formatFloatLE,
}

// formatFallback is the order in which formats are tried when the hardware
// rejects the requested one. The requested format is always tried first.
var formatFallback = []audio.Format{
	audio.FormatS16,
	audio.FormatS32,
	audio.FormatF32,
	audio.FormatS24,
	audio.FormatU8,
}

// pcmConfig is the configuration the hardware actually accepted.
type pcmConfig struct {
	format       audio.Format
	channels     int
	rate         int
	periodFrames int
	periods      int
	bufferFrames int
}

// pcm is an open PCM node.
type pcm struct {
	fd     int
	stream int
}

// openPCM opens the raw device node for one card/device/direction. The node
// is opened non-blocking so a busy device fails fast, then switched to
// blocking mode for paced frame transfer.
func openPCM(card, device int, stream int) (*pcm, error) {
	suffix := byte('p')
	if stream == streamCapture {
		suffix = 'c'
	}
	path := fmt.Sprintf("/dev/snd/pcmC%dD%d%c", card, device, suffix)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if err == unix.EBUSY {
			return nil, fmt.Errorf("%s busy: %w", path, pcmio.ErrDeviceBusy)
		}
		return nil, fmt.Errorf("open %s: %v: %w", path, err, pcmio.ErrNoDevice)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("clear O_NONBLOCK on %s: %v: %w", path, err, pcmio.ErrALSAOpenFailed)
	}
	return &pcm{fd: fd, stream: stream}, nil
}

// negotiate installs hardware and software parameters as close to the
// request as the device allows and returns what was actually configured.
// Rate and channel count are clamped into the device's supported range;
// if the exact geometry is still rejected the buffer constraints and then
// the rate are released so the kernel can choose, and the caller's
// conversion pipeline absorbs the difference.
func (p *pcm) negotiate(format audio.Format, channels, rate, bufferFrames, periods int) (pcmConfig, error) {
	var refined hwParams
	refined.initAny()
	refined.setMask(hwParamAccess, accessRWInterleaved)
	if err := ioctl(p.fd, pcmIoctlHWRefine, unsafe.Pointer(&refined)); err != nil {
		return pcmConfig{}, fmt.Errorf("hw_refine: %v: %w", err, pcmio.ErrALSARefineFailed)
	}

	chosen, ok := pickFormat(&refined, format)
	if !ok {
		return pcmConfig{}, fmt.Errorf("no usable sample format: %w", pcmio.ErrFormatNotSupported)
	}

	chMin, chMax := refined.interval(hwParamChannels)
	rateMin, rateMax := refined.interval(hwParamRate)
	ch := clamp(uint32(channels), chMin, chMax)
	rt := clamp(uint32(rate), rateMin, rateMax)

	attempts := []struct{ pinBuffer, pinRate bool }{
		{true, true},
		{false, true},
		{false, false},
	}
	var hw hwParams
	var err error
	for _, at := range attempts {
		hw.initAny()
		hw.setMask(hwParamAccess, accessRWInterleaved)
		hw.setMask(hwParamFormat, alsaFormats[chosen])
		hw.setInterval(hwParamChannels, ch)
		if at.pinRate {
			hw.setInterval(hwParamRate, rt)
		}
		if at.pinBuffer {
			hw.setInterval(hwParamPeriods, uint32(periods))
			hw.setInterval(hwParamBufferSize, uint32(bufferFrames))
		}
		if err = ioctl(p.fd, pcmIoctlHWParams, unsafe.Pointer(&hw)); err == nil {
			break
		}
	}
	if err != nil {
		return pcmConfig{}, fmt.Errorf("hw_params: %v: %w", err, pcmio.ErrALSAParamsFailed)
	}

	cfg := pcmConfig{
		format:       chosen,
		channels:     int(hw.intervalValue(hwParamChannels)),
		rate:         int(hw.intervalValue(hwParamRate)),
		periodFrames: int(hw.intervalValue(hwParamPeriodSize)),
		periods:      int(hw.intervalValue(hwParamPeriods)),
		bufferFrames: int(hw.intervalValue(hwParamBufferSize)),
	}
	if cfg.periodFrames <= 0 || cfg.bufferFrames <= 0 {
		return pcmConfig{}, fmt.Errorf("degenerate geometry from hw_params: %w", pcmio.ErrALSAParamsFailed)
	}

	if err := p.installSWParams(cfg); err != nil {
		return pcmConfig{}, err
	}
	return cfg, nil
}

// installSWParams arms the stream: playback auto-starts once the buffer is
// full (the pre-fill write triggers it), capture never auto-starts and
// waits for an explicit start call.
func (p *pcm) installSWParams(cfg pcmConfig) error {
	buffer := uint64(cfg.bufferFrames)
	sw := swParams{
		periodStep:     1,
		availMin:       uint64(cfg.periodFrames),
		xferAlign:      1,
		startThreshold: buffer,
		stopThreshold:  buffer,
	}
	if p.stream == streamCapture {
		sw.startThreshold = boundaryFor(buffer)
	}
	if err := ioctl(p.fd, pcmIoctlSWParams, unsafe.Pointer(&sw)); err != nil {
		return fmt.Errorf("sw_params: %v: %w", err, pcmio.ErrALSAParamsFailed)
	}
	return nil
}

// pickFormat returns the first format from the fallback chain that the
// refined configuration space still admits, starting with the requested one.
func pickFormat(refined *hwParams, want audio.Format) (audio.Format, bool) {
	if refined.maskTest(hwParamFormat, alsaFormats[want]) {
		return want, true
	}
	for _, f := range formatFallback {
		if f == want {
			continue
		}
		if refined.maskTest(hwParamFormat, alsaFormats[f]) {
			return f, true
		}
	}
	return 0, false
}

// prepare readies the stream for a (re)start.
func (p *pcm) prepare() error {
	return ioctlBare(p.fd, pcmIoctlPrepare)
}

// start kicks a prepared stream. Only capture needs this; playback starts
// on its own once the pre-fill crosses the start threshold.
func (p *pcm) start() error {
	return ioctlBare(p.fd, pcmIoctlStart)
}

// drop halts the stream immediately, discarding queued frames.
func (p *pcm) drop() error {
	return ioctlBare(p.fd, pcmIoctlDrop)
}

// writei transfers interleaved frames to the device, blocking until the
// hardware has room. buf must hold at least frames full frames.
func (p *pcm) writei(buf []byte, frames int) error {
	x := xferI{buf: unsafe.Pointer(&buf[0]), frames: uint64(frames)}
	err := ioctl(p.fd, pcmIoctlWriteI, unsafe.Pointer(&x))
	runtime.KeepAlive(buf)
	return err
}

// readi fills buf with interleaved frames from the device, blocking until
// the request is satisfied. Returns the number of frames transferred.
func (p *pcm) readi(buf []byte, frames int) (int, error) {
	x := xferI{buf: unsafe.Pointer(&buf[0]), frames: uint64(frames)}
	err := ioctl(p.fd, pcmIoctlReadI, unsafe.Pointer(&x))
	runtime.KeepAlive(buf)
	if err != nil {
		return 0, err
	}
	return int(x.result), nil
}

// close frees the hardware configuration and the descriptor.
func (p *pcm) close() error {
	if p.fd < 0 {
		return nil
	}
	ioctlBare(p.fd, pcmIoctlHWFree)
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
