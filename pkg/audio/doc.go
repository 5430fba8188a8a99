// ABOUTME: Audio fundamentals package providing formats and channel layouts
// ABOUTME: Defines Format, Channel, ChannelMap and StreamParams
// Package audio provides the fundamental types shared by every stage of a
// PCM stream: sample formats, speaker channel identifiers, channel maps and
// the StreamParams bundle that ties them to a sample rate.
//
// All multi-byte sample formats are little-endian and all buffers are
// interleaved: one frame holds one sample per channel, in channel-map order.
//
// Example:
//
//	params := audio.StreamParams{
//	    Format:     audio.FormatS16,
//	    Channels:   2,
//	    SampleRate: 48000,
//	    ChannelMap: audio.DefaultChannelMap(2),
//	}
//	frameBytes := params.FrameBytes() // 4
package audio
