// ABOUTME: Interleaved float32 <-> little-endian byte codec
// ABOUTME: Bridges portaudio callback slices and the byte-oriented core
package portaudio

import (
	"encoding/binary"
	"math"
)

// decodeFloats fills dst from little-endian float32 bytes.
func decodeFloats(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// encodeFloats writes samples as little-endian float32 bytes.
func encodeFloats(src []float32, dst []byte) {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}
