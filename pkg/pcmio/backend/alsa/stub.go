// ABOUTME: Placeholder factory for platforms without the kernel PCM interface
// ABOUTME: Keeps the alsa import portable; context setup falls through to the next backend
//go:build !linux || (!amd64 && !arm64)

package alsa

import (
	"fmt"

	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
)

func init() {
	pcmio.Register("alsa", func(ctx *pcmio.Context) (pcmio.Backend, error) {
		return nil, fmt.Errorf("alsa backend requires 64-bit linux: %w", pcmio.ErrAPINotFound)
	})
}
