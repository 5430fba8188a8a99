// ABOUTME: Backend registry and default priority order
// ABOUTME: Backend packages register factories from init, like database/sql drivers
package pcmio

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[BackendKind]BackendFactory)
)

// defaultPriority is the order NewContext tries backends in when the
// caller does not name any.
var defaultPriority = []BackendKind{"alsa", "oto", "portaudio", "null"}

// Register makes a backend available under the given kind. It is intended
// to be called from backend package init functions and panics if the kind
// is already taken.
func Register(kind BackendKind, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("pcmio: Register factory is nil")
	}
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("pcmio: Register called twice for backend %q", kind))
	}
	registry[kind] = factory
}

// Backends returns the kinds of all registered backends, sorted by name.
func Backends() []BackendKind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]BackendKind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func lookupBackend(kind BackendKind) (BackendFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[kind]
	return factory, ok
}
