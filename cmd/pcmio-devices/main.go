// ABOUTME: Lists registered backends and the endpoints they can open
// ABOUTME: Prints playback and capture tables for the selected context
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/decred/slog"

	"github.com/Resonate-Protocol/pcmio-go/internal/version"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/oto"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/portaudio"
)

var (
	backendName = flag.String("backend", "", "Backend to use (default: first usable in priority order)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	flag.Parse()

	log := slog.NewBackend(os.Stderr).Logger("PCMIO")
	if *debug {
		log.SetLevel(slog.LevelDebug)
	}

	cfg := &pcmio.ContextConfig{Log: log}
	if *backendName != "" {
		cfg.Backends = []pcmio.BackendKind{pcmio.BackendKind(*backendName)}
	}

	ctx, err := pcmio.NewContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Uninit()

	fmt.Printf("%s\n\n", version.String())
	fmt.Printf("Registered backends: %v\n", pcmio.Backends())
	fmt.Printf("Selected backend:    %s\n", ctx.Backend())

	for _, typ := range []pcmio.DeviceType{pcmio.Playback, pcmio.Capture} {
		devs, err := ctx.Devices(typ)
		if err != nil {
			return fmt.Errorf("enumerate %s devices: %w", typ, err)
		}
		fmt.Printf("\n%s devices:\n", typ)
		if len(devs) == 0 {
			fmt.Println("  (none)")
			continue
		}
		for _, d := range devs {
			fmt.Printf("  %-20s %s\n", d.ID, d.Name)
		}
	}
	return nil
}
