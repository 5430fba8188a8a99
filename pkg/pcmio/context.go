// ABOUTME: Process-level context selecting and owning one backend
// ABOUTME: Walks a priority list and keeps the first backend that initializes
package pcmio

import (
	"fmt"

	"github.com/decred/slog"
)

// ContextConfig configures backend selection for a context.
type ContextConfig struct {
	// Backends is the priority order to try. Empty selects the default
	// order: alsa, oto, portaudio, null.
	Backends []BackendKind

	// Log receives library diagnostics. Nil disables logging.
	Log slog.Logger
}

// Context selects one backend and dispatches enumeration and device
// construction to it. A context must outlive its devices.
type Context struct {
	backend Backend
	log     slog.Logger
}

// NewContext tries each configured backend in order and keeps the first
// one whose factory succeeds. It returns ErrNoBackend when none does.
func NewContext(cfg *ContextConfig) (*Context, error) {
	var c ContextConfig
	if cfg != nil {
		c = *cfg
	}
	logger := c.Log
	if logger == nil {
		logger = slog.Disabled
	}

	order := c.Backends
	if len(order) == 0 {
		order = defaultPriority
	}

	ctx := &Context{log: logger}
	for _, kind := range order {
		factory, ok := lookupBackend(kind)
		if !ok {
			logger.Debugf("backend %s not registered, skipping", kind)
			continue
		}
		backend, err := factory(ctx)
		if err != nil {
			logger.Debugf("backend %s failed to initialize: %v", kind, err)
			continue
		}
		ctx.backend = backend
		logger.Debugf("using backend %s", backend.Kind())
		return ctx, nil
	}
	return nil, fmt.Errorf("no usable backend in %v: %w", order, ErrNoBackend)
}

// Backend reports the kind of the selected backend.
func (c *Context) Backend() BackendKind {
	if c.backend == nil {
		return ""
	}
	return c.backend.Kind()
}

// Devices enumerates the endpoints the selected backend can open.
func (c *Context) Devices(kind DeviceType) ([]DeviceInfo, error) {
	if c.backend == nil {
		return nil, ErrNoBackend
	}
	return c.backend.Devices(kind)
}

// Log returns the context logger. Never nil.
func (c *Context) Log() slog.Logger {
	return c.log
}

// Uninit releases the backend. All devices created through the context
// must already be uninitialized.
func (c *Context) Uninit() error {
	if c.backend == nil {
		return nil
	}
	err := c.backend.Uninit()
	c.backend = nil
	return err
}
