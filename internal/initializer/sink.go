package initializer

import (
	"context"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// ErrorSink receives initializer failures. Reporting must not fail.
type ErrorSink interface {
	Report(ctx context.Context, err *InitError)
}

// SinkFunc adapts a function to the ErrorSink interface.
type SinkFunc func(ctx context.Context, err *InitError)

func (f SinkFunc) Report(ctx context.Context, err *InitError) {
	f(ctx, err)
}

// LogSink reports failures to the context logger.
type LogSink struct{}

func (LogSink) Report(ctx context.Context, err *InitError) {
	ctxlog.FromContext(ctx).Error("Module initialization failed.", "module", err.Module, "error", err.Error())
}

// MultiSink fans a report out to several sinks in order.
type MultiSink []ErrorSink

func (s MultiSink) Report(ctx context.Context, err *InitError) {
	for _, sink := range s {
		sink.Report(ctx, err)
	}
}
