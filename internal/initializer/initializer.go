// Package initializer invokes a single module's initializer exactly once and
// records the outcome on the module.
//
// A failing initializer never aborts the caller: the failure is stored on the
// module, wrapped with the module name and handed to an ErrorSink. Only
// invariant violations (running a module twice) are returned as errors.
package initializer

import (
	"context"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Initializer runs module initializers against a registry view.
type Initializer struct {
	get    module.Accessor
	sink   ErrorSink
	tracer trace.Tracer
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithSink replaces the default LogSink.
func WithSink(sink ErrorSink) Option {
	return func(in *Initializer) {
		if sink != nil {
			in.sink = sink
		}
	}
}

// WithTracer sets the tracer used for initializer spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(in *Initializer) {
		if tracer != nil {
			in.tracer = tracer
		}
	}
}

// New creates an Initializer that hands get to every initializer callback.
func New(get module.Accessor, opts ...Option) *Initializer {
	in := &Initializer{
		get:    get,
		sink:   LogSink{},
		tracer: noop.NewTracerProvider().Tracer(tracing.TracerName),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Initialize runs m's initializer with args. It returns an
// AlreadyProcessedError if m is already Processed or Error; any failure of the
// initializer itself is recorded on m and reported, and nil is returned.
func (in *Initializer) Initialize(ctx context.Context, m *module.Module, args []any) error {
	if m.State().Terminal() {
		return &AlreadyProcessedError{Name: m.Name()}
	}

	ctx, span := in.tracer.Start(ctx, tracing.SpanInitialize, trace.WithAttributes(
		attribute.String(tracing.AttrModuleName, m.Name()),
		attribute.String(tracing.AttrModuleSource, m.Source()),
		attribute.Int(tracing.AttrModuleArgs, len(args)),
	))
	defer span.End()

	ctx = ctxlog.With(ctx, "module", m.Name())
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running module initializer.", "args", len(args))

	result, err := in.call(ctx, m, args)
	if err != nil {
		initErr := &InitError{Module: m.Name(), Err: err}
		if ferr := m.Fail(initErr); ferr != nil {
			return ferr
		}
		span.RecordError(initErr)
		span.SetStatus(codes.Error, initErr.Error())
		span.SetAttributes(attribute.String(tracing.AttrModuleState, m.State().String()))
		in.sink.Report(ctx, initErr)
		return nil
	}

	if cerr := m.Complete(result); cerr != nil {
		return cerr
	}
	span.SetAttributes(attribute.String(tracing.AttrModuleState, m.State().String()))
	logger.Debug("Module initialized.")
	return nil
}

// call invokes the callback, turning a panic into a PanicError.
func (in *Initializer) call(ctx context.Context, m *module.Module, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{Value: r}
		}
	}()

	fn := m.Initializer()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, in.get, m, args)
}
