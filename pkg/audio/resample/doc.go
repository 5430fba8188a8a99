// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Pull-based rate converter with a two-frame bin and input cache
// Package resample provides pull-based sample rate conversion using linear
// interpolation.
//
// A Resampler sits between a frame source and its consumer: every Read call
// interpolates between a sliding pair of input frames (the bin) and advances
// through the input at the rate ratio. Input frames are pulled from the
// source through a small float32 cache so the source callback runs in
// bursts rather than once per frame. When input and output rates match, the
// resampler degrades to a format-only passthrough that never interpolates.
//
// Example:
//
//	src, err := resample.New(resample.Config{
//	    RateIn:    48000,
//	    RateOut:   44100,
//	    Channels:  2,
//	    FormatIn:  audio.FormatS16,
//	    FormatOut: audio.FormatF32,
//	    Read:      pullFrames,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n := src.Read(512, out) // up to 512 output frames
package resample
