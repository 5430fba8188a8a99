// ABOUTME: DSP pipeline wiring SRC, mixer and rearranger into one pull chain
// ABOUTME: Builds shuffle tables from channel maps and skips unneeded stages
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/convert"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/resample"
)

// stagingFrames bounds how many frames one slow-path iteration processes.
const stagingFrames = 512

// ReadProc supplies input frames in the pipeline's input format. It returns
// how many frames it actually produced; a short count means the source is
// (currently) dry.
type ReadProc func(frames int, dst []byte) int

// Config describes both ends of a conversion.
type Config struct {
	In          audio.StreamParams
	Out         audio.StreamParams
	CacheFrames int // forwarded to the resampler
	Read        ReadProc
}

// Pipeline converts a pulled PCM stream between two parameter sets. It is
// not safe for concurrent use.
type Pipeline struct {
	in   audio.StreamParams
	out  audio.StreamParams
	read ReadProc

	src         *resample.Resampler // nil when rates match
	srcFormat   audio.Format        // format the acquisition stage delivers
	mixRequired bool
	mapRequired bool
	passthrough bool
	shuffle     []uint8

	bbuf  []byte    // acquisition staging
	fbufA []float32 // pre-mix staging
	fbufB []float32 // post-mix staging
}

// New validates cfg and builds a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Read == nil {
		return nil, errors.New("pipeline: a read callback is required")
	}
	for _, p := range []audio.StreamParams{cfg.In, cfg.Out} {
		if !p.Format.Valid() {
			return nil, errors.New("pipeline: invalid sample format")
		}
		if p.Channels <= 0 || p.Channels > audio.MaxChannels {
			return nil, fmt.Errorf("pipeline: channel count %d out of range", p.Channels)
		}
		if p.SampleRate <= 0 {
			return nil, errors.New("pipeline: sample rates must be positive")
		}
		if len(p.ChannelMap) != 0 && len(p.ChannelMap) != p.Channels {
			return nil, fmt.Errorf("pipeline: channel map has %d slots for %d channels", len(p.ChannelMap), p.Channels)
		}
		if err := p.ChannelMap.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	p := &Pipeline{
		in:   cfg.In,
		out:  cfg.Out,
		read: cfg.Read,
	}
	p.mixRequired = cfg.In.Channels != cfg.Out.Channels
	p.buildShuffle()

	srcRequired := cfg.In.SampleRate != cfg.Out.SampleRate
	p.passthrough = !srcRequired && !p.mixRequired && !p.mapRequired &&
		cfg.In.Format == cfg.Out.Format
	if p.passthrough {
		return p, nil
	}

	switch {
	case srcRequired && p.mixRequired:
		p.srcFormat = audio.FormatF32
	case srcRequired:
		p.srcFormat = cfg.Out.Format
	default:
		p.srcFormat = cfg.In.Format
	}
	if srcRequired {
		src, err := resample.New(resample.Config{
			RateIn:      cfg.In.SampleRate,
			RateOut:     cfg.Out.SampleRate,
			Channels:    cfg.In.Channels,
			FormatIn:    cfg.In.Format,
			FormatOut:   p.srcFormat,
			CacheFrames: cfg.CacheFrames,
			Read:        resample.ReadProc(cfg.Read),
		})
		if err != nil {
			return nil, err
		}
		p.src = src
	}

	p.bbuf = make([]byte, stagingFrames*cfg.In.Channels*audio.MaxSampleBytes)
	if p.mixRequired {
		p.fbufA = make([]float32, stagingFrames*cfg.In.Channels)
		p.fbufB = make([]float32, stagingFrames*cfg.Out.Channels)
	}
	return p, nil
}

// buildShuffle derives the routing table from the channel maps. Routing is
// skipped when either side has no usable map or opts out with a leading
// ChannelNone.
func (p *Pipeline) buildShuffle() {
	inMap := p.in.ChannelMap
	outMap := p.out.ChannelMap
	if len(inMap) != p.in.Channels || len(outMap) != p.out.Channels {
		return
	}
	if inMap[0] == audio.ChannelNone || outMap[0] == audio.ChannelNone {
		return
	}

	// The post-mix layout: input slots that survive the mix keep their
	// positions; slots added by an up-mix take the first output speakers
	// not already present.
	postMix := make(audio.ChannelMap, p.out.Channels)
	n := p.in.Channels
	if p.out.Channels < n {
		n = p.out.Channels
	}
	copy(postMix[:n], inMap[:n])
	for i := n; i < p.out.Channels; i++ {
		for _, ch := range outMap {
			if ch == audio.ChannelNone || postMix.Contains(ch) {
				continue
			}
			postMix[i] = ch
			break
		}
	}

	shuffle := make([]uint8, p.out.Channels)
	required := false
	for i, want := range outMap {
		shuffle[i] = uint8(i) // speakers missing post-mix stay put
		for j, have := range postMix {
			if have == want {
				shuffle[i] = uint8(j)
				break
			}
		}
		if postMix[i] != want {
			required = true
		}
	}
	if required {
		p.shuffle = shuffle
		p.mapRequired = true
	}
}

// Passthrough reports whether Read forwards buffers to the source without
// touching the samples.
func (p *Pipeline) Passthrough() bool {
	return p.passthrough
}

// Read produces up to frames output frames into dst and returns how many it
// produced. A short return means the source ran dry.
func (p *Pipeline) Read(frames int, dst []byte) int {
	if frames <= 0 {
		return 0
	}
	if p.passthrough {
		n := p.read(frames, dst)
		if n > frames {
			n = frames
		}
		return n
	}

	outFB := p.out.FrameBytes()
	total := 0
	for total < frames {
		block := frames - total
		if block > stagingFrames {
			block = stagingFrames
		}
		n := p.readBlock(block, dst[total*outFB:])
		total += n
		if n < block {
			break
		}
	}
	return total
}

// readBlock runs one staging iteration of at most stagingFrames frames.
func (p *Pipeline) readBlock(frames int, dst []byte) int {
	outFB := p.out.FrameBytes()

	var n int
	if p.mixRequired {
		// Acquire, expand to f32, mix to the output channel count, then
		// narrow straight into dst.
		if p.src != nil {
			n = p.src.Read(frames, p.bbuf)
		} else {
			n = p.read(frames, p.bbuf)
		}
		if n <= 0 {
			return 0
		}
		if n > frames {
			n = frames
		}
		convert.ToFloat32(p.fbufA, p.bbuf, p.srcFormat, n*p.in.Channels)
		convert.Mix(p.fbufB, p.fbufA, n, p.out.Channels, p.in.Channels, convert.MixModeBlend)
		convert.FromFloat32(dst, p.fbufB[:n*p.out.Channels], p.out.Format, n*p.out.Channels)
	} else {
		switch {
		case p.src != nil:
			// The resampler already emits the output format.
			n = p.src.Read(frames, dst)
		case p.in.Format == p.out.Format:
			n = p.read(frames, dst)
		default:
			n = p.read(frames, p.bbuf)
			if n > frames {
				n = frames
			}
			if n > 0 {
				convert.Convert(dst, p.bbuf, p.out.Format, p.in.Format, n*p.in.Channels)
			}
		}
		if n <= 0 {
			return 0
		}
		if n > frames {
			n = frames
		}
	}

	if p.mapRequired {
		sampleBytes := p.out.Format.SampleBytes()
		for f := 0; f < n; f++ {
			convert.Rearrange(dst[f*outFB:(f+1)*outFB], sampleBytes, p.shuffle)
		}
	}
	return n
}
