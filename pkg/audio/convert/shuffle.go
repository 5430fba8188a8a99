// ABOUTME: In-place channel rearrangement within a single frame
// ABOUTME: Applies a prebuilt shuffle table through a stack staging copy
package convert

import "github.com/Resonate-Protocol/pcmio-go/pkg/audio"

// Rearrange permutes the samples of one interleaved frame in place.
// shuffle[i] names the source slot whose sample lands in output slot i, so
// the same table can be applied to every frame of a stream. The frame holds
// len(shuffle) samples of sampleBytes bytes each. The frame is staged
// through a stack copy, which keeps the permutation alias-safe.
func Rearrange(frame []byte, sampleBytes int, shuffle []uint8) {
	var tmp [audio.MaxChannels * audio.MaxSampleBytes]byte
	n := len(shuffle) * sampleBytes
	copy(tmp[:n], frame[:n])
	for i, from := range shuffle {
		src := tmp[int(from)*sampleBytes : (int(from)+1)*sampleBytes]
		copy(frame[i*sampleBytes:(i+1)*sampleBytes], src)
	}
}
