// Package resolver walks a module's requirement graph depth-first and
// left-to-right, making sure every requirement reaches a terminal state before
// the module's own initializer runs.
//
// Cycle detection uses the set of names on the active resolution path. It is
// kept apart from the module state: a module's state only says whether its
// initializer has run, never whether it is currently being walked. Because a
// name is put on the path before its requirements are visited, a cycle is
// reported before the walk can recurse into it a second time.
//
// A name stays on the path while its initializer runs. The context handed to
// the initializer carries the walk, so a Resolve called from inside an
// initializer continues that walk instead of starting a fresh one.
package resolver

import (
	"context"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/module"
)

// Initializer runs a single module's initializer.
type Initializer interface {
	Initialize(ctx context.Context, m *module.Module, args []any) error
}

// Resolver resolves modules by name against a registry view.
type Resolver struct {
	get  module.Accessor
	init Initializer
}

// New creates a Resolver.
func New(get module.Accessor, init Initializer) *Resolver {
	return &Resolver{get: get, init: init}
}

// walk is the resolution path of an initializer that is currently running.
type walk struct {
	owner  *Resolver
	path   []string
	active map[string]struct{}
}

type walkKey struct{}

// Resolve ensures the named module and everything it requires have been
// initialized. A failing initializer does not make Resolve fail; the returned
// module is then in the Error state. Resolve fails only for structural
// problems: an undefined module anywhere on the walk or a cycle.
func (r *Resolver) Resolve(ctx context.Context, name string) (*module.Module, error) {
	if w, ok := ctx.Value(walkKey{}).(*walk); ok && w.owner == r {
		return r.resolve(ctx, name, w.path, w.active)
	}
	return r.resolve(ctx, name, nil, make(map[string]struct{}))
}

func (r *Resolver) resolve(ctx context.Context, name string, path []string, active map[string]struct{}) (*module.Module, error) {
	m, ok := r.get.Lookup(name)
	if !ok {
		return nil, &UndefinedModuleError{Name: name, RequiredBy: clone(path)}
	}

	if _, onPath := active[name]; onPath {
		return nil, &CircularDependencyError{Chain: append(clone(path), name)}
	}

	if m.State().Terminal() {
		return m, nil
	}

	if err := m.MarkWaiting(); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	reqs := m.Requirements()
	logger.Debug("Resolving module requirements.", "module", name, "requirements", reqs, "depth", len(path))

	active[name] = struct{}{}
	defer delete(active, name)
	next := append(clone(path), name)
	args := make([]any, len(reqs))
	for i, req := range reqs {
		dep, err := r.resolve(ctx, req, next, active)
		if err != nil {
			return nil, err
		}
		// A failed requirement contributes nil.
		args[i] = dep.Result()
	}

	initCtx := context.WithValue(ctx, walkKey{}, &walk{owner: r, path: next, active: active})
	if err := r.init.Initialize(initCtx, m, args); err != nil {
		return nil, err
	}
	return m, nil
}

func clone(path []string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return out
}
