// ABOUTME: Tests for the hardware-independent pieces of the oto backend
// ABOUTME: Format mapping and the io.Reader frame adapter
package oto

import (
	"testing"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
)

func TestOtoFormatMapping(t *testing.T) {
	cases := []struct {
		in         audio.Format
		wantOto    oto.Format
		wantNative audio.Format
	}{
		{audio.FormatU8, oto.FormatUnsignedInt8, audio.FormatU8},
		{audio.FormatS16, oto.FormatSignedInt16LE, audio.FormatS16},
		{audio.FormatS24, oto.FormatFloat32LE, audio.FormatF32},
		{audio.FormatS32, oto.FormatFloat32LE, audio.FormatF32},
		{audio.FormatF32, oto.FormatFloat32LE, audio.FormatF32},
	}
	for _, c := range cases {
		gotOto, gotNative := otoFormat(c.in)
		if gotOto != c.wantOto || gotNative != c.wantNative {
			t.Errorf("otoFormat(%s) = (%v, %s), want (%v, %s)",
				c.in, gotOto, gotNative, c.wantOto, c.wantNative)
		}
	}
}

func TestPullReaderWholeFrames(t *testing.T) {
	var pulledFrames, pulledBytes int
	r := &pullReader{
		frameBytes: 4,
		pull: func(frames int, dst []byte) int {
			pulledFrames = frames
			pulledBytes = len(dst)
			for i := range dst {
				dst[i] = 0xAB
			}
			return frames
		},
	}

	p := make([]byte, 10) // two whole frames plus a ragged tail
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read errored: %v", err)
	}
	if n != 8 {
		t.Fatalf("Read = %d bytes, want 8", n)
	}
	if pulledFrames != 2 || pulledBytes != 8 {
		t.Fatalf("pull saw %d frames / %d bytes, want 2 / 8", pulledFrames, pulledBytes)
	}
	for i := 0; i < 8; i++ {
		if p[i] != 0xAB {
			t.Fatalf("byte %d not written", i)
		}
	}
	if p[8] != 0 || p[9] != 0 {
		t.Fatal("ragged tail was touched")
	}
}

func TestPullReaderTinyBuffer(t *testing.T) {
	r := &pullReader{
		frameBytes: 4,
		pull: func(frames int, dst []byte) int {
			t.Fatal("pull called for a sub-frame read")
			return 0
		},
	}
	n, err := r.Read(make([]byte, 3))
	if n != 0 || err != nil {
		t.Fatalf("Read = (%d, %v), want (0, nil)", n, err)
	}
}
