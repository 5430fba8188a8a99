// ABOUTME: Input frame cache between the client callback and the bin
// ABOUTME: Pulls client frames in bursts and hands them out one at a time
package resample

import (
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/convert"
)

// cache stages client frames as float32 so the bin can advance one frame at
// a time without invoking the client callback per frame.
type cache struct {
	read     ReadProc
	channels int
	format   audio.Format // client sample format
	capacity int          // frames pulled per refill

	raw    []byte    // client-format staging for one refill
	frames []float32 // converted staging, capacity*channels samples
	length int       // frames currently held
	next   int       // next frame to hand out
}

func newCache(read ReadProc, format audio.Format, channels, capacity int) *cache {
	return &cache{
		read:     read,
		channels: channels,
		format:   format,
		capacity: capacity,
		raw:      make([]byte, capacity*channels*format.SampleBytes()),
		frames:   make([]float32, capacity*channels),
	}
}

// nextFrame copies one input frame into dst, refilling from the client when
// drained. It reports false when the client has nothing more to give.
func (c *cache) nextFrame(dst []float32) bool {
	if c.next >= c.length {
		got := c.read(c.capacity, c.raw)
		if got <= 0 {
			return false
		}
		if got > c.capacity {
			got = c.capacity
		}
		convert.ToFloat32(c.frames, c.raw, c.format, got*c.channels)
		c.length = got
		c.next = 0
	}
	copy(dst, c.frames[c.next*c.channels:(c.next+1)*c.channels])
	c.next++
	return true
}
