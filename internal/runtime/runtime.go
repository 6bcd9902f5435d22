// Package runtime is the single owned instance through which modules are
// registered and initialized.
//
// A Runtime composes the registry, the resolver and the initializer, and
// drives the bulk run: until RunAll is called, registrations are only
// recorded. RunAll resolves every known module once, in registration order,
// and from then on every registration triggers its own resolve pass over the
// whole registry.
//
// Resolve passes never overlap, so initializers never run concurrently. The
// lock is not held while initializers run: an initializer may register more
// modules or resolve one by name. A registration that arrives while a pass is
// running is queued, and the running pass loops until the queue is empty.
package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/initializer"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/resolver"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Fetcher makes an as-yet-unregistered module available by name, typically by
// loading its definition and registering it with the runtime.
type Fetcher interface {
	Fetch(ctx context.Context, name string) error
}

// Runtime owns a registry and resolves its modules.
type Runtime struct {
	reg     *registry.Registry
	res     *resolver.Resolver
	fetcher Fetcher
	tracer  trace.Tracer

	mu        sync.Mutex
	idle      *sync.Cond
	bulkDone  bool
	resolving bool
	// queued is set by registrations that arrive while a pass is running.
	queued bool
}

type passKey struct{}

type options struct {
	sink    initializer.ErrorSink
	tracer  trace.Tracer
	fetcher Fetcher
}

// Option configures a Runtime.
type Option func(*options)

// WithErrorSink sets where initializer failures are reported.
func WithErrorSink(sink initializer.ErrorSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithTracer sets the tracer for bulk-run and initializer spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithFetcher enables Preload.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// New creates an empty Runtime.
func New(opts ...Option) *Runtime {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer(tracing.TracerName)
	}

	reg := registry.New()
	in := initializer.New(reg.Accessor(), initializer.WithSink(o.sink), initializer.WithTracer(o.tracer))
	rt := &Runtime{
		reg:     reg,
		res:     resolver.New(reg.Accessor(), in),
		fetcher: o.fetcher,
		tracer:  o.tracer,
	}
	rt.idle = sync.NewCond(&rt.mu)
	return rt
}

// Register records a module. Before the bulk run this is all it does; after
// it, a resolve pass over the whole registry follows. When a pass is already
// running, for example because Register is called from an initializer, the
// module is left to that pass and Register returns at once. Only
// registration errors are returned; problems found by the pass are logged.
func (rt *Runtime) Register(ctx context.Context, name string, requirements []string, fn module.Initializer) error {
	return rt.RegisterModule(ctx, module.New(name, requirements, fn))
}

// RegisterModule is Register for a pre-built record.
func (rt *Runtime) RegisterModule(ctx context.Context, m *module.Module) error {
	if err := rt.reg.Register(m); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Module registered.", "module", m.Name(), "requirements", m.Requirements(), "source", m.Source())

	rt.mu.Lock()
	if !rt.bulkDone {
		rt.mu.Unlock()
		return nil
	}
	rt.queued = true
	if rt.resolving {
		rt.mu.Unlock()
		logger.Debug("Pass in progress, module queued.", "module", m.Name())
		return nil
	}
	rt.resolving = true
	rt.mu.Unlock()

	if err := rt.drain(rt.passContext(ctx)); err != nil {
		logger.Debug("Resolve pass after registration left modules unresolved.", "module", m.Name(), "error", err)
	}
	return nil
}

// Lookup returns the module registered under name.
func (rt *Runtime) Lookup(name string) (*module.Module, bool) {
	return rt.reg.Lookup(name)
}

// ResolveByName resolves a single module and its requirements. Called with
// the context an initializer received, it joins the running walk; otherwise
// it waits for any running pass to finish first.
func (rt *Runtime) ResolveByName(ctx context.Context, name string) error {
	if rt.inPass(ctx) {
		_, err := rt.res.Resolve(ctx, name)
		return err
	}

	rt.acquire()
	ctx = rt.passContext(ctx)
	_, err := rt.res.Resolve(ctx, name)
	if derr := rt.drain(ctx); derr != nil {
		ctxlog.FromContext(ctx).Debug("Queued modules left unresolved.", "error", derr)
	}
	return err
}

// RunAll is the bulk run. It fires once: every registered module is resolved
// in registration order, and a failure to resolve one module does not stop
// the others. Modules registered while it runs are resolved before it
// returns. The joined resolution errors are returned. Later calls do nothing.
func (rt *Runtime) RunAll(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	rt.mu.Lock()
	if rt.bulkDone {
		rt.mu.Unlock()
		logger.Debug("Bulk run already completed, ignoring.")
		return nil
	}
	rt.bulkDone = true
	if rt.inPass(ctx) {
		// The running pass picks everything up before it finishes.
		rt.queued = true
		rt.mu.Unlock()
		logger.Debug("Bulk run requested from an initializer, left to the running pass.")
		return nil
	}
	for rt.resolving {
		rt.idle.Wait()
	}
	rt.resolving = true
	rt.queued = true
	rt.mu.Unlock()

	ctx, span := rt.tracer.Start(ctx, tracing.SpanBulkRun, trace.WithAttributes(
		attribute.Int(tracing.AttrPassSize, rt.reg.Len()),
	))
	defer span.End()

	logger.Info("Starting bulk run.", "modules", rt.reg.Len())
	err := rt.drain(rt.passContext(ctx))
	if err != nil {
		span.RecordError(err)
	}
	logger.Info("Bulk run finished.", "modules", rt.reg.Len())
	return err
}

// BulkDone reports whether RunAll has fired.
func (rt *Runtime) BulkDone() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.bulkDone
}

// acquire waits until no pass is running and claims the right to run one.
func (rt *Runtime) acquire() {
	rt.mu.Lock()
	for rt.resolving {
		rt.idle.Wait()
	}
	rt.resolving = true
	rt.mu.Unlock()
}

// drain runs passes while registrations are queued, then gives up the right
// to run passes. The caller must have claimed it. Errors of the last pass are
// returned; earlier passes only saw a subset of the modules.
func (rt *Runtime) drain(ctx context.Context) error {
	var err error
	for {
		rt.mu.Lock()
		if !rt.queued {
			rt.resolving = false
			rt.idle.Broadcast()
			rt.mu.Unlock()
			return err
		}
		rt.queued = false
		rt.mu.Unlock()

		err = rt.pass(ctx)
	}
}

// passContext marks ctx as belonging to a pass of rt.
func (rt *Runtime) passContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, passKey{}, rt)
}

func (rt *Runtime) inPass(ctx context.Context) bool {
	owner, _ := ctx.Value(passKey{}).(*Runtime)
	return owner == rt
}

// pass resolves every non-terminal module in registration order. Only the
// goroutine that claimed the pass may call it.
func (rt *Runtime) pass(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, m := range rt.reg.Modules() {
		if m.State().Terminal() {
			continue
		}
		if _, err := rt.res.Resolve(ctx, m.Name()); err != nil {
			logger.Warn("Module could not be resolved.", "module", m.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Preload asks the configured Fetcher for every name that some module
// requires but nobody has registered, repeating until no new names turn up.
// Each name is attempted at most once per call. Resolution never fetches on
// its own; this is the only path through which the Fetcher is used.
func (rt *Runtime) Preload(ctx context.Context) error {
	if rt.fetcher == nil {
		return errors.New("preload requires a fetcher")
	}

	logger := ctxlog.FromContext(ctx)
	attempted := make(map[string]struct{})
	var errs []error
	for {
		var pending []string
		for _, name := range rt.reg.KnownRequirements() {
			if _, ok := rt.reg.Lookup(name); ok {
				continue
			}
			if _, ok := attempted[name]; ok {
				continue
			}
			pending = append(pending, name)
		}
		if len(pending) == 0 {
			break
		}

		for _, name := range pending {
			attempted[name] = struct{}{}
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			logger.Debug("Fetching required module.", "module", name)
			if err := rt.fetcher.Fetch(ctx, name); err != nil {
				logger.Warn("Failed to fetch required module.", "module", name, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Status is a point-in-time view of one module.
type Status struct {
	Name         string   `json:"name"`
	State        string   `json:"state"`
	Requirements []string `json:"requirements"`
	Source       string   `json:"source"`
	Error        string   `json:"error,omitempty"`
}

// Snapshot returns the status of every module in registration order. It does
// not wait for a running pass.
func (rt *Runtime) Snapshot() []Status {
	mods := rt.reg.Modules()
	out := make([]Status, 0, len(mods))
	for _, m := range mods {
		st := Status{
			Name:         m.Name(),
			State:        m.State().String(),
			Requirements: m.Requirements(),
			Source:       m.Source(),
		}
		if err := m.Err(); err != nil {
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// KnownRequirements returns every name listed as a requirement so far.
func (rt *Runtime) KnownRequirements() []string {
	return rt.reg.KnownRequirements()
}
