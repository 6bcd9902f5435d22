package tracing

// Span attribute keys used across the runtime.
const (
	AttrModuleName   = "module.name"
	AttrModuleState  = "module.state"
	AttrModuleSource = "module.source"
	AttrModuleArgs   = "module.args"
	AttrRunID        = "run.id"
	AttrPassSize     = "pass.size"
)

// Span names.
const (
	SpanInitialize = "module.initialize"
	SpanRun        = "app.run"
	SpanBulkRun    = "runtime.bulk_run"
)

// TracerName identifies the runtime's instrumentation scope.
const TracerName = "github.com/specialistvlad/modgrid"
