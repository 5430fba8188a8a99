// ABOUTME: Float32 conversion kernels and the ToFloat32/FromFloat32 helpers
// ABOUTME: Defines how every PCM format maps into and out of [-1, 1]
package convert

import (
	"encoding/binary"
	"math"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
)

// Scalar helpers. These define the canonical sample mapping; the loop
// kernels and ToFloat32/FromFloat32 both go through them so the two paths
// can never disagree.

func sampleU8ToF32(x byte) float32 {
	return (float32(x)/255)*2 - 1
}

func sampleS16ToF32(x int16) float32 {
	return (float32(int32(x)+32768)/65536)*2 - 1
}

func sampleS24ToF32(v int32) float32 {
	return (float32(v+8388608)/16777215)*2 - 1
}

// sampleS32ToF32 uses an asymmetric divisor so that both extremes of the
// 32-bit range land exactly on -1 and +1.
func sampleS32ToF32(x int32) float32 {
	if x < 0 {
		return float32(x) / 2147483648
	}
	return float32(x) / 2147483647
}

func clampF32(f float32) float32 {
	if f < -1 {
		return -1
	}
	if f > 1 {
		return 1
	}
	return f
}

func sampleF32ToU8(f float32) byte {
	v := int32(clampF32(f) * 128)
	if v > 127 {
		v = 127
	}
	return byte(v + 128)
}

func sampleF32ToS16(f float32) int16 {
	v := int32(clampF32(f) * 32768)
	if v > 32767 {
		v = 32767
	}
	return int16(v)
}

func sampleF32ToS24(f float32) int32 {
	v := int32(clampF32(f) * 8388608)
	if v > 8388607 {
		v = 8388607
	}
	return v
}

func sampleF32ToS32(f float32) int32 {
	// Scale in float64 so the full 32-bit range survives the mantissa.
	v := int64(float64(clampF32(f)) * 2147483648)
	if v > 2147483647 {
		v = 2147483647
	}
	return int32(v)
}

func u8ToF32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(sampleU8ToF32(src[i])))
	}
}

func s16ToF32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int16(binary.LittleEndian.Uint16(src[i*2:]))
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(sampleS16ToF32(x)))
	}
}

func s24ToF32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(sampleS24ToF32(getS24(src, i))))
	}
}

func s32ToF32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int32(binary.LittleEndian.Uint32(src[i*4:]))
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(sampleS32ToF32(x)))
	}
}

func f32ToU8(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		dst[i] = sampleF32ToU8(f)
	}
}

func f32ToS16(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(sampleF32ToS16(f)))
	}
}

func f32ToS24(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		putS24(dst, i, sampleF32ToS24(f))
	}
}

func f32ToS32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(sampleF32ToS32(f)))
	}
}

// ToFloat32 expands PCM samples into float32 values. For FormatF32 input the
// bits are reinterpreted without clamping.
func ToFloat32(dst []float32, src []byte, from audio.Format, samples int) {
	switch from {
	case audio.FormatU8:
		for i := 0; i < samples; i++ {
			dst[i] = sampleU8ToF32(src[i])
		}
	case audio.FormatS16:
		for i := 0; i < samples; i++ {
			dst[i] = sampleS16ToF32(int16(binary.LittleEndian.Uint16(src[i*2:])))
		}
	case audio.FormatS24:
		for i := 0; i < samples; i++ {
			dst[i] = sampleS24ToF32(getS24(src, i))
		}
	case audio.FormatS32:
		for i := 0; i < samples; i++ {
			dst[i] = sampleS32ToF32(int32(binary.LittleEndian.Uint32(src[i*4:])))
		}
	case audio.FormatF32:
		for i := 0; i < samples; i++ {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		}
	}
}

// FromFloat32 narrows float32 samples into the given PCM format. Integer
// targets clamp to [-1, 1] first; FormatF32 writes the bits unmodified.
func FromFloat32(dst []byte, src []float32, to audio.Format, samples int) {
	switch to {
	case audio.FormatU8:
		for i := 0; i < samples; i++ {
			dst[i] = sampleF32ToU8(src[i])
		}
	case audio.FormatS16:
		for i := 0; i < samples; i++ {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(sampleF32ToS16(src[i])))
		}
	case audio.FormatS24:
		for i := 0; i < samples; i++ {
			putS24(dst, i, sampleF32ToS24(src[i]))
		}
	case audio.FormatS32:
		for i := 0; i < samples; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(sampleF32ToS32(src[i])))
		}
	case audio.FormatF32:
		for i := 0; i < samples; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
		}
	}
}
