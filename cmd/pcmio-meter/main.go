// ABOUTME: Live RMS and peak level meter over a capture device
// ABOUTME: Bubbletea TUI fed by a sampling goroutine at a fixed refresh rate
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/decred/slog"

	"github.com/Resonate-Protocol/pcmio-go/pkg/audio"
	"github.com/Resonate-Protocol/pcmio-go/pkg/audio/convert"
	"github.com/Resonate-Protocol/pcmio-go/pkg/pcmio"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/alsa"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/null"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/oto"
	_ "github.com/Resonate-Protocol/pcmio-go/pkg/pcmio/backend/portaudio"
)

var (
	rate        = flag.Int("rate", 48000, "Sample rate")
	channels    = flag.Int("channels", 2, "Channel count")
	deviceID    = flag.String("device", "", "Device ID from pcmio-devices (default: backend default)")
	backendName = flag.String("backend", "", "Backend to use")
	refresh     = flag.Duration("refresh", 100*time.Millisecond, "Meter refresh interval")
)

// floorDB is where the meter bottoms out.
const floorDB = -60.0

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	flag.Parse()

	ctxCfg := &pcmio.ContextConfig{Log: slog.Disabled}
	if *backendName != "" {
		ctxCfg.Backends = []pcmio.BackendKind{pcmio.BackendKind(*backendName)}
	}
	ctx, err := pcmio.NewContext(ctxCfg)
	if err != nil {
		return err
	}
	defer ctx.Uninit()

	chans := *channels
	agg := newAggregator(chans)
	var scratch []float32

	dev, err := pcmio.NewDevice(ctx, pcmio.Capture, &pcmio.Config{
		Format:     audio.FormatF32,
		Channels:   chans,
		SampleRate: *rate,
		DeviceID:   *deviceID,
		OnRecv: func(d *pcmio.Device, frames int, in []byte) {
			samples := frames * chans
			if cap(scratch) < samples {
				scratch = make([]float32, samples)
			}
			convert.ToFloat32(scratch[:samples], in, audio.FormatF32, samples)
			agg.accumulate(scratch[:samples])
		},
	})
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer dev.Stop()

	prog := tea.NewProgram(newModel(string(ctx.Backend()), *rate, *channels), tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(*refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rms, peak := agg.snapshot()
				prog.Send(levelMsg{rms: rms, peak: peak})
			case <-done:
				return
			}
		}
	}()

	_, err = prog.Run()
	close(done)
	return err
}

// aggregator collects per-channel level statistics between meter refreshes.
type aggregator struct {
	mu         sync.Mutex
	sumSquares []float64
	peaks      []float64
	frames     int
}

func newAggregator(channels int) *aggregator {
	return &aggregator{
		sumSquares: make([]float64, channels),
		peaks:      make([]float64, channels),
	}
}

func (a *aggregator) accumulate(block []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	channels := len(a.sumSquares)
	frames := len(block) / channels
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			v := float64(block[f*channels+c])
			a.sumSquares[c] += v * v
			if abs := math.Abs(v); abs > a.peaks[c] {
				a.peaks[c] = abs
			}
		}
	}
	a.frames += frames
}

// snapshot returns per-channel RMS and peak in dBFS and resets the window.
func (a *aggregator) snapshot() (rms, peak []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rms = make([]float64, len(a.sumSquares))
	peak = make([]float64, len(a.peaks))
	for c := range a.sumSquares {
		if a.frames > 0 {
			rms[c] = toDB(math.Sqrt(a.sumSquares[c] / float64(a.frames)))
		} else {
			rms[c] = floorDB
		}
		peak[c] = toDB(a.peaks[c])
		a.sumSquares[c] = 0
		a.peaks[c] = 0
	}
	a.frames = 0
	return rms, peak
}

func toDB(v float64) float64 {
	if v <= 0 {
		return floorDB
	}
	db := 20 * math.Log10(v)
	if db < floorDB {
		return floorDB
	}
	return db
}

// levelMsg carries one refresh of meter values into the TUI.
type levelMsg struct {
	rms  []float64
	peak []float64
}

// model is the TUI state.
type model struct {
	backend  string
	rate     int
	channels int
	rms      []float64
	peak     []float64
	width    int
}

func newModel(backend string, rate, channels int) model {
	m := model{
		backend:  backend,
		rate:     rate,
		channels: channels,
		rms:      make([]float64, channels),
		peak:     make([]float64, channels),
	}
	for c := 0; c < channels; c++ {
		m.rms[c] = floorDB
		m.peak[c] = floorDB
	}
	return m
}

// Init initializes the model
func (m model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case levelMsg:
		m.rms = msg.rms
		m.peak = msg.peak
	}
	return m, nil
}

// View renders the meter
func (m model) View() string {
	s := "┌─ pcmio meter ────────────────────────────────────────┐\n"
	s += fmt.Sprintf("│ Backend: %-10s %dHz f32 %dch%-18s │\n", m.backend, m.rate, m.channels, "")
	s += "├──────────────────────────────────────────────────────┤\n"
	for c := 0; c < m.channels && c < len(m.rms); c++ {
		s += fmt.Sprintf("│ ch %d [%s] RMS %6.1fdB Pk %6.1fdB │\n",
			c, renderBar(m.rms[c]), m.rms[c], m.peak[c])
	}
	s += "├──────────────────────────────────────────────────────┤\n"
	s += "│ q:Quit                                               │\n"
	s += "└──────────────────────────────────────────────────────┘\n"
	return s
}

// renderBar maps a dB value onto a fixed-width block bar.
func renderBar(db float64) string {
	const width = 20
	norm := (db - floorDB) / -floorDB
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	filled := int(norm * width)
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
