// ABOUTME: Sample conversion package for PCM streams
// ABOUTME: Provides format converters, channel mixing and channel rearranging
// Package convert implements the stateless per-sample transforms used by the
// DSP pipeline: PCM format conversion, channel count mixing and channel
// rearranging.
//
// Format conversion is pairwise: every (from, to) pair of u8, s16, s24, s32
// and f32 has a dedicated kernel, so no conversion round-trips through an
// intermediate format or loses precision beyond the target width. Integer
// widening shifts left, integer narrowing shifts right, and float output is
// clamped to [-1, 1] before scaling.
//
// Example:
//
//	in := []byte{0x00, 0x80} // one s16 sample, -32768
//	out := make([]byte, 4)
//	convert.Convert(out, in, audio.FormatF32, audio.FormatS16, 1)
//	// out now holds float32(-1.0) little-endian
package convert
