package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/fsutil"
	"github.com/specialistvlad/modgrid/internal/module"
)

// LoadManifests reads every manifest under paths, in lexical order across
// formats, and returns their definitions.
func (a *App) LoadManifests(ctx context.Context, paths ...string) ([]*config.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := fsutil.FindAll(paths, a.extensions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover manifests: %w", err)
	}
	logger.Debug("Discovered manifests.", "count", len(files))

	var defs []*config.Definition
	for _, file := range files {
		fileDefs, err := a.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	logger.Info("Manifests loaded.", "files", len(files), "modules", len(defs))
	return defs, nil
}

func (a *App) loadFile(ctx context.Context, file string) ([]*config.Definition, error) {
	for _, l := range a.loaders {
		if fsutil.HasExtension(file, l.Extensions()...) {
			return l.LoadFile(ctx, file)
		}
	}
	return nil, fmt.Errorf("no loader for %s", file)
}

// RegisterDefinitions builds each definition's initializer and registers it
// with the runtime. A definition that fails does not stop the others: it is
// logged, remembered for the run outcome, and its error is returned joined
// with the rest.
func (a *App) RegisterDefinitions(ctx context.Context, defs []*config.Definition) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	reject := func(def *config.Definition, err error) {
		logger.Warn("Module not registered.", "module", def.Name, "source", def.Source, "error", err)
		a.rejected = append(a.rejected, def.Name)
		errs = append(errs, fmt.Errorf("%s: %w", def.Source, err))
	}

	for _, def := range defs {
		fn, err := a.converter.Initializer(ctx, def)
		if err != nil {
			reject(def, err)
			continue
		}
		m := module.New(def.Name, def.Requires, fn).WithSource(def.Source)
		if err := a.runtime.RegisterModule(ctx, m); err != nil {
			reject(def, err)
			continue
		}
		if a.fetcher != nil {
			a.fetcher.Forget(def.Name)
		}
	}
	return errors.Join(errs...)
}
