// ABOUTME: Channel count conversion for float32 frames
// ABOUTME: Implements basic drop/zero-pad mixing and a blending mode
package convert

// MixMode selects how channel counts are converted.
type MixMode int

const (
	// MixModeBasic drops excess input channels when decreasing the count
	// and zero-pads new channels when increasing it.
	MixModeBasic MixMode = iota

	// MixModeBlend replicates a mono input into every output channel and
	// averages all inputs when mixing down to mono. Every other combination
	// falls back to MixModeBasic.
	MixModeBlend
)

// Mix converts interleaved float32 frames from channelsIn to channelsOut.
// dst and src must not overlap. Equal channel counts copy verbatim.
func Mix(dst, src []float32, frames, channelsOut, channelsIn int, mode MixMode) {
	if frames <= 0 {
		return
	}
	if channelsIn == channelsOut {
		copy(dst[:frames*channelsOut], src[:frames*channelsIn])
		return
	}

	if mode == MixModeBlend {
		switch {
		case channelsIn == 1:
			for f := 0; f < frames; f++ {
				s := src[f]
				out := dst[f*channelsOut : (f+1)*channelsOut]
				for c := range out {
					out[c] = s
				}
			}
			return
		case channelsOut == 1:
			for f := 0; f < frames; f++ {
				in := src[f*channelsIn : (f+1)*channelsIn]
				var sum float32
				for _, s := range in {
					sum += s
				}
				dst[f] = sum / float32(channelsIn)
			}
			return
		}
	}

	keep := channelsIn
	if channelsOut < keep {
		keep = channelsOut
	}
	for f := 0; f < frames; f++ {
		in := src[f*channelsIn:]
		out := dst[f*channelsOut : (f+1)*channelsOut]
		for c := 0; c < keep; c++ {
			out[c] = in[c]
		}
		for c := keep; c < channelsOut; c++ {
			out[c] = 0
		}
	}
}
