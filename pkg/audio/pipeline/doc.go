// ABOUTME: Pull-based DSP pipeline package
// ABOUTME: Chains resampling, channel mixing and channel routing stages
// Package pipeline converts a pulled PCM stream between two parameter sets:
// sample format, channel count, sample rate and channel map can all differ
// between the input and output side.
//
// A Pipeline owns no threads. Every Read pulls input frames from the
// configured source callback, routes them through only the stages the two
// parameter sets actually require, and writes output frames to the caller's
// buffer. When the parameter sets match, Read collapses to a passthrough
// that hands the caller's buffer straight to the source.
//
// Stage order on the slow path: sample rate conversion (which also pulls
// from the source), channel count mixing in float32, format conversion to
// the output format, then in-place channel rearrangement.
//
// Example:
//
//	p, err := pipeline.New(pipeline.Config{
//	    In:   audio.StreamParams{Format: audio.FormatS16, Channels: 2, SampleRate: 44100},
//	    Out:  audio.StreamParams{Format: audio.FormatF32, Channels: 2, SampleRate: 48000},
//	    Read: pullFrames,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	buf := make([]byte, 512*8)
//	n := p.Read(512, buf)
package pipeline
