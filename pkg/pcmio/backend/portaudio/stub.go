// ABOUTME: Placeholder factory used when the portaudio build tag is off
// ABOUTME: Keeps the import portable on hosts without libportaudio
//go:build !portaudio

package portaudio

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func init() {
	pcmio.Register("portaudio", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		return nil, fmt.Errorf("binary built without the portaudio tag: %w", pcmio.ErrPortAudioNotCompiled)
	})
}
