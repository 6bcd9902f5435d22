// Package handlers holds the Go initializers that manifests can refer to by
// name through the `handler` attribute.
package handlers

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/modgrid/internal/module"
)

// Module is implemented by every compiled-in handler package.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered handlers.
type Handlers struct {
	all map[string]module.Initializer
}

// New creates an empty Handlers set.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]module.Initializer),
	}
}

// Register adds a named handler. Registering a name twice is a wiring bug
// and panics.
func (h *Handlers) Register(name string, fn module.Initializer) {
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	if fn == nil {
		panic(fmt.Sprintf("handler '%s' has a nil initializer", name))
	}
	slog.Debug("Registering handler.", "name", name)
	h.all[name] = fn
}

// Get returns the handler registered under name.
func (h *Handlers) Get(name string) (module.Initializer, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns every registered handler name, sorted.
func (h *Handlers) Names() []string {
	names := make([]string, 0, len(h.all))
	for name := range h.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load creates a Handlers set populated by the given modules.
func Load(modules ...Module) *Handlers {
	h := New()
	for _, m := range modules {
		m.Register(h)
	}
	return h
}
