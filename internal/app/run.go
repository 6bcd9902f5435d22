package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/runtime"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"github.com/specialistvlad/modgrid/internal/watcher"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// UnresolvedError is returned by a one-shot run in which some definitions
// were rejected at registration, or some modules failed or never reached a
// terminal state.
type UnresolvedError struct {
	Rejected []string
	Failed   []string
	Pending  []string
}

func (e *UnresolvedError) Error() string {
	var parts []string
	if len(e.Rejected) > 0 {
		parts = append(parts, fmt.Sprintf("%d definition(s) rejected: %s", len(e.Rejected), strings.Join(e.Rejected, ", ")))
	}
	if len(e.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d module(s) failed: %s", len(e.Failed), strings.Join(e.Failed, ", ")))
	}
	if len(e.Pending) > 0 {
		parts = append(parts, fmt.Sprintf("%d module(s) never resolved: %s", len(e.Pending), strings.Join(e.Pending, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Run executes one application run. Without watch mode it returns once the
// bulk run is over, with an *UnresolvedError if any definition was rejected or
// any module did not end up Processed. With watch mode it returns when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer func() {
		if err := a.tracing.Shutdown(context.Background()); err != nil {
			a.logger.Warn("Failed to flush traces.", "error", err)
		}
	}()

	ctx, span := a.tracing.Tracer().Start(ctx, tracing.SpanRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, a.runID),
	))
	defer span.End()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if a.config.HealthcheckPort > 0 {
		g.Go(func() error { return a.serveHealthcheck(gctx) })
	} else {
		a.logger.Debug("Health check server not started: disabled")
	}

	var outcome error
	g.Go(func() error {
		defer stop()
		if err := a.initialize(gctx); err != nil {
			return err
		}
		if a.config.Watch {
			if err := a.watch(gctx); err != nil {
				return err
			}
		}

		statuses := a.runtime.Snapshot()
		a.printSummary(statuses)
		if !a.config.Watch {
			outcome = checkOutcome(statuses, a.rejected)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return outcome
}

// initialize loads the startup manifests and fires the bulk run.
func (a *App) initialize(ctx context.Context) error {
	defs, err := a.LoadManifests(ctx, a.config.Paths...)
	if err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}
	// Rejected definitions are logged and recorded one by one; the others
	// still initialize.
	_ = a.RegisterDefinitions(ctx, defs)

	if a.config.Autoload {
		if err := a.runtime.Preload(ctx); err != nil {
			a.logger.Warn("Some required modules could not be fetched.", "error", err)
		}
	}

	a.logger.Info("🚀 Initializing modules...", "count", len(defs))
	if err := a.runtime.RunAll(ctx); err != nil {
		a.logger.Warn("Bulk run left modules unresolved.", "error", err)
	}
	a.logger.Info("🏁 Initialization finished.")
	return nil
}

// watch registers modules from new or changed manifests until ctx is done.
// Redefinitions are rejected by the runtime and only logged.
func (a *App) watch(ctx context.Context) error {
	w, err := watcher.New(watcher.Config{
		Paths:      a.config.Paths,
		Extensions: a.extensions(),
		Debounce:   a.config.Debounce,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	changes, err := w.Start(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("👀 Watching manifests for new modules.", "paths", a.config.Paths)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-changes:
			if !ok {
				return nil
			}
			a.applyChanges(ctx, batch)
		}
	}
}

func (a *App) applyChanges(ctx context.Context, files []string) {
	logger := ctxlog.FromContext(ctx)
	for _, file := range files {
		defs, err := a.loadFile(ctx, file)
		if err != nil {
			logger.Warn("Failed to load changed manifest.", "path", file, "error", err)
			continue
		}
		logger.Info("Manifest changed.", "path", file, "modules", len(defs))
		if err := a.RegisterDefinitions(ctx, defs); err != nil {
			logger.Debug("Changed manifest contained modules that were not registered.", "path", file, "error", err)
		}
	}
	if a.config.Autoload {
		if err := a.runtime.Preload(ctx); err != nil {
			logger.Warn("Some required modules could not be fetched.", "error", err)
		}
	}
}

func checkOutcome(statuses []runtime.Status, rejected []string) error {
	var failed, pending []string
	for _, s := range statuses {
		switch s.State {
		case module.Processed.String():
		case module.Error.String():
			failed = append(failed, s.Name)
		default:
			pending = append(pending, s.Name)
		}
	}
	if len(rejected) == 0 && len(failed) == 0 && len(pending) == 0 {
		return nil
	}
	return &UnresolvedError{Rejected: slices.Clone(rejected), Failed: failed, Pending: pending}
}
