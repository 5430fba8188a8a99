// ABOUTME: Linear interpolation resampler with a sliding two-frame bin
// ABOUTME: Pulls input frames on demand and converts formats on the way out
package resample

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/convert"
)

// DefaultCacheFrames is the size of the input cache and the upper bound a
// caller may configure.
const DefaultCacheFrames = 512

// ReadProc supplies input frames. It fills dst with up to frames frames in
// the configured input format and returns how many it actually produced.
// Returning less than asked means the source is (currently) dry.
type ReadProc func(frames int, dst []byte) int

// Config describes a rate conversion.
type Config struct {
	RateIn      int
	RateOut     int
	Channels    int
	FormatIn    audio.Format
	FormatOut   audio.Format
	CacheFrames int // frames per input refill; 0 or out of range means DefaultCacheFrames
	Read        ReadProc
}

// Resampler converts a pulled stream of PCM frames from one sample rate to
// another. It is not safe for concurrent use.
type Resampler struct {
	rateIn    int
	rateOut   int
	channels  int
	formatIn  audio.Format
	formatOut audio.Format
	read      ReadProc

	ratio     float64   // input frames consumed per output frame
	alpha     float64   // fractional position between bin frames, in [0, 1)
	bin       []float32 // two frames: prev then next
	binLoaded bool

	cache   *cache // staging between the client and the bin
	scratch []byte // passthrough staging in the input format
}

// New validates cfg and builds a Resampler.
func New(cfg Config) (*Resampler, error) {
	if cfg.RateIn <= 0 || cfg.RateOut <= 0 {
		return nil, errors.New("resample: sample rates must be positive")
	}
	if cfg.Channels <= 0 || cfg.Channels > audio.MaxChannels {
		return nil, fmt.Errorf("resample: channel count %d out of range", cfg.Channels)
	}
	if !cfg.FormatIn.Valid() || !cfg.FormatOut.Valid() {
		return nil, errors.New("resample: invalid sample format")
	}
	if cfg.Read == nil {
		return nil, errors.New("resample: a read callback is required")
	}

	cacheFrames := cfg.CacheFrames
	if cacheFrames <= 0 || cacheFrames > DefaultCacheFrames {
		cacheFrames = DefaultCacheFrames
	}

	r := &Resampler{
		rateIn:    cfg.RateIn,
		rateOut:   cfg.RateOut,
		channels:  cfg.Channels,
		formatIn:  cfg.FormatIn,
		formatOut: cfg.FormatOut,
		read:      cfg.Read,
		ratio:     float64(cfg.RateIn) / float64(cfg.RateOut),
	}
	if r.rateIn == r.rateOut {
		if r.formatIn != r.formatOut {
			r.scratch = make([]byte, cacheFrames*cfg.Channels*cfg.FormatIn.SampleBytes())
		}
		return r, nil
	}
	r.bin = make([]float32, 2*cfg.Channels)
	r.cache = newCache(cfg.Read, cfg.FormatIn, cfg.Channels, cacheFrames)
	return r, nil
}

// Read produces up to frames output frames into dst and returns how many it
// produced. A short return means the input source ran dry; calling again
// resumes once the source has more data.
func (r *Resampler) Read(frames int, dst []byte) int {
	if frames <= 0 {
		return 0
	}
	if r.rateIn == r.rateOut {
		return r.readPassthrough(frames, dst)
	}

	ch := r.channels
	outBytes := r.formatOut.SampleBytes() * ch

	if !r.binLoaded {
		if !r.cache.nextFrame(r.bin[:ch]) {
			return 0
		}
		if !r.cache.nextFrame(r.bin[ch:]) {
			// A lone trailing frame is emitted as-is.
			convert.FromFloat32(dst, r.bin[:ch], r.formatOut, ch)
			return 1
		}
		r.binLoaded = true
	}

	var frame [audio.MaxChannels]float32
	prev := r.bin[:ch]
	next := r.bin[ch : 2*ch]
	for i := 0; i < frames; i++ {
		a := float32(r.alpha)
		for c := 0; c < ch; c++ {
			frame[c] = prev[c] + (next[c]-prev[c])*a
		}
		convert.FromFloat32(dst[i*outBytes:], frame[:ch], r.formatOut, ch)

		r.alpha += r.ratio
		if step := int(r.alpha); step > 0 {
			r.alpha -= float64(step)
			for s := 0; s < step; s++ {
				copy(prev, next)
				if !r.cache.nextFrame(next) {
					// Source dry mid-advance: zero the lookahead and
					// reload both bin frames once the source delivers
					// again.
					for c := range next {
						next[c] = 0
					}
					r.binLoaded = false
					return i + 1
				}
			}
		}
	}
	return frames
}

// readPassthrough converts formats without interpolation. With identical
// formats the client writes straight into dst.
func (r *Resampler) readPassthrough(frames int, dst []byte) int {
	if r.formatIn == r.formatOut {
		return r.read(frames, dst)
	}
	inBytes := r.formatIn.SampleBytes() * r.channels
	outBytes := r.formatOut.SampleBytes() * r.channels
	chunk := len(r.scratch) / inBytes

	total := 0
	for total < frames {
		n := frames - total
		if n > chunk {
			n = chunk
		}
		got := r.read(n, r.scratch[:n*inBytes])
		if got <= 0 {
			break
		}
		if got > n {
			got = n
		}
		convert.Convert(dst[total*outBytes:], r.scratch, r.formatOut, r.formatIn, got*r.channels)
		total += got
		if got < n {
			break
		}
	}
	return total
}
