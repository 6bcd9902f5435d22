package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/modgrid/internal/tracing"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{LogFormatText, LogFormatJSON}
	validTraceExporter = []string{tracing.ExporterNone, tracing.ExporterStdout, tracing.ExporterOTLP}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Paths are manifest files or directories loaded at startup.
	Paths []string
	// FetchPaths are searched for manifests of missing requirements.
	// Defaults to Paths.
	FetchPaths []string
	Autoload   bool
	Watch      bool
	Debounce   time.Duration

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	TraceExporter string
	OTLPEndpoint  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one manifest path is required")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be one of %v", cfg.LogLevel, validLogLevels)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatText
	}
	if !slices.Contains(validLogFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be one of %v", cfg.LogFormat, validLogFormats)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("invalid debounce %s", cfg.Debounce)
	}
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = tracing.ExporterNone
	}
	if !slices.Contains(validTraceExporter, cfg.TraceExporter) {
		return nil, fmt.Errorf("invalid trace-exporter %q: must be one of %v", cfg.TraceExporter, validTraceExporter)
	}
	if len(cfg.FetchPaths) == 0 {
		cfg.FetchPaths = slices.Clone(cfg.Paths)
	}
	return &cfg, nil
}
