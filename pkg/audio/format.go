// ABOUTME: PCM sample format definitions
// ABOUTME: Defines the Format enumeration and per-format sample sizes
package audio

import "fmt"

// Sizing limits for any stream handled by this library. A buffer of
// MaxChannels*MaxSampleBytes bytes can hold one frame of any format this
// library will ever negotiate.
const (
	// MaxChannels is the largest channel count a device or pipeline accepts.
	MaxChannels = 18

	// MaxSampleBytes is the widest sample that will ever flow through a
	// pipeline stage.
	MaxSampleBytes = 8
)

// Format identifies an interleaved PCM sample format.
type Format int

const (
	// FormatUnknown is the zero value. It is never valid for an open stream.
	FormatUnknown Format = iota

	// FormatU8 is unsigned 8-bit with a bias of 128.
	FormatU8

	// FormatS16 is signed 16-bit little-endian.
	FormatS16

	// FormatS24 is signed 24-bit little-endian, tightly packed (3 bytes per
	// sample, no padding byte).
	FormatS24

	// FormatS32 is signed 32-bit little-endian.
	FormatS32

	// FormatF32 is IEEE-754 32-bit float little-endian, nominal range [-1, 1].
	FormatF32
)

// SampleBytes returns the size of one sample in bytes, or 0 for FormatUnknown.
func (f Format) SampleBytes() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// Valid reports whether f is one of the concrete PCM formats.
func (f Format) Valid() bool {
	return f > FormatUnknown && f <= FormatF32
}

// String returns the conventional short name ("s16", "f32", ...).
func (f Format) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// ParseFormat converts a short format name as printed by String back to a
// Format. It is meant for command line flags and config files.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "u8":
		return FormatU8, nil
	case "s16":
		return FormatS16, nil
	case "s24":
		return FormatS24, nil
	case "s32":
		return FormatS32, nil
	case "f32":
		return FormatF32, nil
	}
	return FormatUnknown, fmt.Errorf("unknown sample format %q", s)
}
