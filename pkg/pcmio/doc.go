// ABOUTME: Package documentation for pcmio
// ABOUTME: Explains contexts, devices, backends and the callback model

// Package pcmio opens a single playback or capture endpoint and drives it
// with an asynchronous callback model. A DSP pipeline adapts the stream
// parameters the application declares (format, channels, channel map,
// sample rate) to whatever the endpoint natively accepts, so callbacks
// always see the declared shape.
//
// Backends are pluggable and register themselves when imported, the same
// way database/sql drivers do:
//
//	import (
//		"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
//
//		_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
//		_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
//	)
//
// Example playback session:
//
//	ctx, err := pcmio.NewContext(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Uninit()
//
//	dev, err := pcmio.NewDevice(ctx, pcmio.Playback, &pcmio.Config{
//		Format:     audio.FormatS16,
//		Channels:   2,
//		SampleRate: 48000,
//		OnSend: func(d *pcmio.Device, frames int, out []byte) int {
//			return synth.Fill(out, frames)
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Uninit()
//
//	dev.Start()
//	time.Sleep(5 * time.Second)
//	dev.Stop()
package pcmio
