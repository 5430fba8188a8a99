// ABOUTME: Kernel snd-pcm ABI: ioctl requests, parameter structs, mask helpers
// ABOUTME: Layouts mirror <sound/asound.h> for 64-bit little-endian Linux
//go:build linux && (amd64 || arm64)

package alsa

import "unsafe"

// ioctl request numbers, precomputed from the _IO* macros for the struct
// sizes below. The control node ('U') serves enumeration, the PCM node
// ('A') everything else.
const (
	ctlIoctlCardInfo      = 0x81785501 // _IOR ('U', 0x01, snd_ctl_card_info)
	ctlIoctlPCMNextDevice = 0x80045530 // _IOR ('U', 0x30, int)
	ctlIoctlPCMInfo       = 0xc1205531 // _IOWR('U', 0x31, snd_pcm_info)

	pcmIoctlInfo     = 0x81204101 // _IOR ('A', 0x01, snd_pcm_info)
	pcmIoctlHWRefine = 0xc2604110 // _IOWR('A', 0x10, snd_pcm_hw_params)
	pcmIoctlHWParams = 0xc2604111 // _IOWR('A', 0x11, snd_pcm_hw_params)
	pcmIoctlHWFree   = 0x4112     // _IO  ('A', 0x12)
	pcmIoctlSWParams = 0xc0884113 // _IOWR('A', 0x13, snd_pcm_sw_params)
	pcmIoctlPrepare  = 0x4140     // _IO  ('A', 0x40)
	pcmIoctlStart    = 0x4142     // _IO  ('A', 0x42)
	pcmIoctlDrop     = 0x4143     // _IO  ('A', 0x43)
	pcmIoctlWriteI   = 0x40184150 // _IOW ('A', 0x50, snd_xferi)
	pcmIoctlReadI    = 0x80184151 // _IOR ('A', 0x51, snd_xferi)
)

// Stream directions (snd_pcm_stream_t).
const (
	streamPlayback = 0
	streamCapture  = 1
)

// Sample formats (snd_pcm_format_t), little-endian variants only.
const (
	formatU8      = 1
	formatS16LE   = 2
	formatS32LE   = 10
	formatFloatLE = 14
	formatS243LE  = 32
)

// Access types (snd_pcm_access_t).
const accessRWInterleaved = 3

// Hardware parameter indices. The first three select masks, the rest
// intervals; interval array slots are offset by hwParamFirstInterval.
const (
	hwParamAccess    = 0
	hwParamFormat    = 1
	hwParamSubformat = 2

	hwParamFirstInterval = 8

	hwParamSampleBits  = 8
	hwParamFrameBits   = 9
	hwParamChannels    = 10
	hwParamRate        = 11
	hwParamPeriodTime  = 12
	hwParamPeriodSize  = 13
	hwParamPeriodBytes = 14
	hwParamPeriods     = 15
	hwParamBufferTime  = 16
	hwParamBufferSize  = 17
	hwParamBufferBytes = 18
	hwParamTickTime    = 19
)

// Interval flag bits (openmin, openmax, integer, empty in declaration order).
const (
	intervalOpenMin = 1 << 0
	intervalOpenMax = 1 << 1
	intervalInteger = 1 << 2
	intervalEmpty   = 1 << 3
)

type sndInterval struct {
	min   uint32
	max   uint32
	flags uint32
}

type sndMask struct {
	bits [8]uint32
}

type hwParams struct {
	flags     uint32
	masks     [3]sndMask
	mres      [5]sndMask
	intervals [12]sndInterval
	ires      [9]sndInterval
	rmask     uint32
	cmask     uint32
	info      uint32
	msbits    uint32
	rateNum   uint32
	rateDen   uint32
	fifoSize  uint64
	reserved  [64]byte
}

type swParams struct {
	tstampMode       int32
	periodStep       uint32
	sleepMin         uint32
	_                uint32
	availMin         uint64
	xferAlign        uint64
	startThreshold   uint64
	stopThreshold    uint64
	silenceThreshold uint64
	silenceSize      uint64
	boundary         uint64
	proto            uint32
	tstampType       uint32
	reserved         [56]byte
}

type xferI struct {
	result int64
	buf    unsafe.Pointer
	frames uint64
}

type ctlCardInfo struct {
	card       int32
	_          int32
	id         [16]byte
	driver     [16]byte
	name       [32]byte
	longname   [80]byte
	reserved   [16]byte
	mixername  [80]byte
	components [128]byte
}

type pcmInfo struct {
	device          uint32
	subdevice       uint32
	stream          int32
	card            int32
	id              [64]byte
	name            [80]byte
	subname         [32]byte
	devClass        int32
	devSubclass     int32
	subdevicesCount uint32
	subdevicesAvail uint32
	sync            [16]byte
	reserved        [64]byte
}

// Layout checks against the kernel ABI sizes; a drift here is a compile error.
var (
	_ [608]byte = [unsafe.Sizeof(hwParams{})]byte{}
	_ [136]byte = [unsafe.Sizeof(swParams{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(xferI{})]byte{}
	_ [376]byte = [unsafe.Sizeof(ctlCardInfo{})]byte{}
	_ [288]byte = [unsafe.Sizeof(pcmInfo{})]byte{}
)

// initAny opens the full configuration space: every mask bit set, every
// interval unbounded, all parameters marked for refinement.
func (p *hwParams) initAny() {
	*p = hwParams{}
	for i := range p.masks {
		for j := range p.masks[i].bits {
			p.masks[i].bits[j] = ^uint32(0)
		}
	}
	for i := range p.mres {
		for j := range p.mres[i].bits {
			p.mres[i].bits[j] = ^uint32(0)
		}
	}
	for i := range p.intervals {
		p.intervals[i].min = 0
		p.intervals[i].max = ^uint32(0)
	}
	for i := range p.ires {
		p.ires[i].min = 0
		p.ires[i].max = ^uint32(0)
	}
	p.rmask = ^uint32(0)
	p.cmask = 0
	p.info = ^uint32(0)
}

// setMask narrows a mask parameter to a single value.
func (p *hwParams) setMask(param int, bit uint32) {
	m := &p.masks[param]
	for i := range m.bits {
		m.bits[i] = 0
	}
	m.bits[bit>>5] = 1 << (bit & 31)
}

// maskTest reports whether a mask parameter still admits the given value.
func (p *hwParams) maskTest(param int, bit uint32) bool {
	return p.masks[param].bits[bit>>5]&(1<<(bit&31)) != 0
}

// setInterval pins an interval parameter to a single integer value.
func (p *hwParams) setInterval(param int, val uint32) {
	iv := &p.intervals[param-hwParamFirstInterval]
	iv.min = val
	iv.max = val
	iv.flags = intervalInteger
}

// interval returns the current bounds of an interval parameter.
func (p *hwParams) interval(param int) (min, max uint32) {
	iv := p.intervals[param-hwParamFirstInterval]
	return iv.min, iv.max
}

// intervalValue reads an interval that HW_PARAMS has collapsed to a point.
func (p *hwParams) intervalValue(param int) uint32 {
	iv := p.intervals[param-hwParamFirstInterval]
	return iv.min
}

// clamp forces v into [min, max].
func clamp(v, min, max uint32) uint32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// boundaryFor mirrors the kernel's buffer boundary: the largest power-of-two
// multiple of the buffer size that still fits in a signed frame counter.
func boundaryFor(bufferSize uint64) uint64 {
	if bufferSize == 0 {
		return 0
	}
	b := bufferSize
	for b*2 <= uint64(1)<<62 {
		b *= 2
	}
	return b
}

// cString trims a NUL-terminated byte array.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
