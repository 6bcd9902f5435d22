// Package module defines the unit of registration and initialization: a named
// module with an ordered list of requirements, an initializer callback and the
// state it moves through while being resolved.
package module

import (
	"context"
	"fmt"
	"sync"
)

// Initializer produces a module's value. It receives a read-only view of the
// registry, the module's own record and the results of its requirements in
// declared order. A requirement that failed contributes nil.
type Initializer func(ctx context.Context, get Accessor, self *Module, args []any) (any, error)

// Accessor is the lookup-by-name capability handed to initializers.
type Accessor interface {
	Lookup(name string) (*Module, bool)
}

// State represents where a module is in its initialization lifecycle.
type State int32

const (
	// Unprocessed is the initial state of every registered module.
	Unprocessed State = iota
	// Waiting means the resolver has started on the module's requirements.
	Waiting
	// Processed means the initializer returned successfully.
	Processed
	// Error means the initializer failed. The failure is kept on the record.
	Error
)

func (s State) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case Waiting:
		return "waiting"
	case Processed:
		return "processed"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == Processed || s == Error
}

// SourceGo marks modules registered directly from Go code.
const SourceGo = "go"

// Module is a single registered unit of deferred initialization. Records are
// created once at registration and never removed.
type Module struct {
	name         string
	requirements []string
	initializer  Initializer
	source       string

	// mu guards the fields below; records are read from status endpoints
	// while the runtime mutates them.
	mu     sync.RWMutex
	state  State
	result any
	err    error
}

// New creates a module record in the Unprocessed state. The requirement list
// is copied so later changes by the caller have no effect.
func New(name string, requirements []string, fn Initializer) *Module {
	reqs := make([]string, len(requirements))
	copy(reqs, requirements)
	return &Module{
		name:         name,
		requirements: reqs,
		initializer:  fn,
		source:       SourceGo,
	}
}

// WithSource records where the module's definition came from.
func (m *Module) WithSource(source string) *Module {
	if source != "" {
		m.source = source
	}
	return m
}

func (m *Module) Name() string   { return m.name }
func (m *Module) Source() string { return m.source }

func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Result returns the initializer's value. It is nil until Processed.
func (m *Module) Result() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.result
}

// Err returns the captured initializer failure, set only in the Error state.
func (m *Module) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Requirements returns a copy of the declared dependency names.
func (m *Module) Requirements() []string {
	reqs := make([]string, len(m.requirements))
	copy(reqs, m.requirements)
	return reqs
}

// Initializer returns the stored callback.
func (m *Module) Initializer() Initializer { return m.initializer }

// MarkWaiting moves the module into Waiting. A module that is already Waiting
// stays there; this happens when an earlier resolution was aborted by a
// missing dependency and is being retried.
func (m *Module) MarkWaiting() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return fmt.Errorf("module %q cannot wait from state %s", m.name, m.state)
	}
	m.state = Waiting
	return nil
}

// Complete stores the initializer's result and moves the module to Processed.
func (m *Module) Complete(result any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return fmt.Errorf("module %q cannot complete from state %s", m.name, m.state)
	}
	m.result = result
	m.state = Processed
	return nil
}

// Fail stores the initializer's failure and moves the module to Error.
func (m *Module) Fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Terminal() {
		return fmt.Errorf("module %q cannot fail from state %s", m.name, m.state)
	}
	m.err = err
	m.state = Error
	return nil
}
