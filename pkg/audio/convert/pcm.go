// ABOUTME: Pairwise PCM sample format converters
// ABOUTME: Integer kernels shift between widths; float kernels clamp and scale
package convert

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
)

// Convert rewrites samples from one PCM format to another. samples counts
// individual samples, not frames, so interleaved buffers convert in one
// call. dst and src must not overlap unless to == from, in which case the
// data is copied verbatim.
func Convert(dst, src []byte, to, from audio.Format, samples int) {
	if samples <= 0 {
		return
	}
	if to == from {
		copy(dst[:samples*from.SampleBytes()], src[:samples*from.SampleBytes()])
		return
	}

	switch from {
	case audio.FormatU8:
		switch to {
		case audio.FormatS16:
			u8ToS16(dst, src, samples)
		case audio.FormatS24:
			u8ToS24(dst, src, samples)
		case audio.FormatS32:
			u8ToS32(dst, src, samples)
		case audio.FormatF32:
			u8ToF32(dst, src, samples)
		}
	case audio.FormatS16:
		switch to {
		case audio.FormatU8:
			s16ToU8(dst, src, samples)
		case audio.FormatS24:
			s16ToS24(dst, src, samples)
		case audio.FormatS32:
			s16ToS32(dst, src, samples)
		case audio.FormatF32:
			s16ToF32(dst, src, samples)
		}
	case audio.FormatS24:
		switch to {
		case audio.FormatU8:
			s24ToU8(dst, src, samples)
		case audio.FormatS16:
			s24ToS16(dst, src, samples)
		case audio.FormatS32:
			s24ToS32(dst, src, samples)
		case audio.FormatF32:
			s24ToF32(dst, src, samples)
		}
	case audio.FormatS32:
		switch to {
		case audio.FormatU8:
			s32ToU8(dst, src, samples)
		case audio.FormatS16:
			s32ToS16(dst, src, samples)
		case audio.FormatS24:
			s32ToS24(dst, src, samples)
		case audio.FormatF32:
			s32ToF32(dst, src, samples)
		}
	case audio.FormatF32:
		switch to {
		case audio.FormatU8:
			f32ToU8(dst, src, samples)
		case audio.FormatS16:
			f32ToS16(dst, src, samples)
		case audio.FormatS24:
			f32ToS24(dst, src, samples)
		case audio.FormatS32:
			f32ToS32(dst, src, samples)
		}
	}
}

// getS24 reads a packed 24-bit sample and sign-extends it to int32.
func getS24(src []byte, i int) int32 {
	return (int32(src[i*3])<<8 | int32(src[i*3+1])<<16 | int32(src[i*3+2])<<24) >> 8
}

// putS24 writes the low 24 bits of v as a packed little-endian sample.
func putS24(dst []byte, i int, v int32) {
	dst[i*3] = byte(v)
	dst[i*3+1] = byte(v >> 8)
	dst[i*3+2] = byte(v >> 16)
}

func u8ToS16(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		v := (int32(src[i]) - 128) << 8
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
	}
}

func u8ToS24(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		putS24(dst, i, (int32(src[i])-128)<<16)
	}
}

func u8ToS32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32((int32(src[i])-128)<<24))
	}
}

func s16ToU8(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int16(binary.LittleEndian.Uint16(src[i*2:]))
		dst[i] = byte(int32(x)>>8 + 128)
	}
}

func s16ToS24(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int16(binary.LittleEndian.Uint16(src[i*2:]))
		putS24(dst, i, int32(x)<<8)
	}
}

func s16ToS32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int16(binary.LittleEndian.Uint16(src[i*2:]))
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(int32(x)<<16))
	}
}

func s24ToU8(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		dst[i] = byte(getS24(src, i)>>16 + 128)
	}
}

func s24ToS16(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(getS24(src, i)>>8))
	}
}

func s24ToS32(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(getS24(src, i)<<8))
	}
}

func s32ToU8(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int32(binary.LittleEndian.Uint32(src[i*4:]))
		dst[i] = byte(x>>24 + 128)
	}
}

func s32ToS16(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int32(binary.LittleEndian.Uint32(src[i*4:]))
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(x>>16))
	}
}

func s32ToS24(dst, src []byte, samples int) {
	for i := 0; i < samples; i++ {
		x := int32(binary.LittleEndian.Uint32(src[i*4:]))
		putS24(dst, i, x>>8)
	}
}
