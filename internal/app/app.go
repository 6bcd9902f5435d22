package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/fetcher"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/hcl_adapter"
	"github.com/specialistvlad/modgrid/internal/initializer"
	"github.com/specialistvlad/modgrid/internal/runtime"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"github.com/specialistvlad/modgrid/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	runID  string

	handlers  *handlers.Handlers
	loaders   []config.Loader
	converter config.Converter
	runtime   *runtime.Runtime
	fetcher   *fetcher.FileFetcher
	tracing   *tracing.Provider

	// rejected names the definitions that could not be registered.
	rejected []string

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger, handlers and runtime. When
// no handler modules are given, the compiled-in ones are used.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, modules ...handlers.Module) (*App, error) {
	runID := uuid.NewString()
	logger := newLogger(cfg, outW).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter: cfg.TraceExporter,
		Endpoint: cfg.OTLPEndpoint,
		Writer:   outW,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	h := handlers.Load(modules...)
	logger.Debug("All Go handler modules registered.", "count", len(modules), "handlers", h.Names())

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		runID:     runID,
		handlers:  h,
		loaders:   []config.Loader{hcl_adapter.NewLoader(), yaml_adapter.NewLoader()},
		converter: hcl_adapter.NewConverter(h),
		tracing:   tp,
	}

	opts := []runtime.Option{
		runtime.WithErrorSink(initializer.LogSink{}),
		runtime.WithTracer(tp.Tracer()),
	}
	if cfg.Autoload {
		a.fetcher = fetcher.New(fetcher.Config{Dirs: cfg.FetchPaths}, a.RegisterDefinitions, a.loaders...)
		opts = append(opts, runtime.WithFetcher(a.fetcher))
	}
	a.runtime = runtime.New(opts...)

	return a, nil
}

// Runtime returns the application's runtime. This is primarily for testing.
func (a *App) Runtime() *runtime.Runtime {
	return a.runtime
}

// RunID identifies this run in logs and traces.
func (a *App) RunID() string {
	return a.runID
}

// extensions lists every manifest extension understood by the loaders.
func (a *App) extensions() []string {
	var exts []string
	for _, l := range a.loaders {
		exts = append(exts, l.Extensions()...)
	}
	return exts
}
