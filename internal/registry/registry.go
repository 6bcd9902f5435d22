package registry

import (
	"sort"
	"sync"

	"github.com/specialistvlad/modgrid/internal/module"
)

// Registry holds all module records for a single runtime instance.
type Registry struct {
	mu sync.RWMutex
	// modules stores records keyed by name.
	modules map[string]*module.Module
	// order keeps names in registration order.
	order []string
	// known is every name ever listed as a requirement.
	known map[string]struct{}
}

// New creates and initializes an empty Registry.
func New() *Registry {
	return &Registry{
		modules: make(map[string]*module.Module),
		known:   make(map[string]struct{}),
	}
}

// Register stores m. It fails with a DuplicateModuleError if a module with the
// same name exists, in which case the existing record is left untouched.
func (r *Registry) Register(m *module.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[m.Name()]; exists {
		return &DuplicateModuleError{Name: m.Name()}
	}

	r.modules[m.Name()] = m
	r.order = append(r.order, m.Name())
	for _, req := range m.Requirements() {
		r.known[req] = struct{}{}
	}
	return nil
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (*module.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Modules returns all records in registration order.
func (r *Registry) Modules() []*module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mods := make([]*module.Module, 0, len(r.order))
	for _, name := range r.order {
		mods = append(mods, r.modules[name])
	}
	return mods
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// KnownRequirements returns, sorted, every name that any registered module
// has listed as a requirement, whether or not it is registered itself.
func (r *Registry) KnownRequirements() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.known))
	for name := range r.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accessor returns a read-only lookup view suitable for initializers.
func (r *Registry) Accessor() module.Accessor {
	return accessor{r: r}
}

type accessor struct {
	r *Registry
}

func (a accessor) Lookup(name string) (*module.Module, bool) {
	return a.r.Lookup(name)
}
