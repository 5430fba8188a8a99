// ABOUTME: Stream parameter bundle shared by devices and pipeline stages
// ABOUTME: Couples sample format, channel count, rate and channel map
package audio

// StreamParams describes one end of a PCM stream.
type StreamParams struct {
	Format     Format
	Channels   int
	SampleRate int
	ChannelMap ChannelMap
}

// FrameBytes returns the size of one interleaved frame in bytes.
func (p StreamParams) FrameBytes() int {
	return p.Format.SampleBytes() * p.Channels
}
