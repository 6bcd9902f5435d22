package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/modgrid/internal/app"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"github.com/specialistvlad/modgrid/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read as flag values.
const EnvPrefix = "MODGRID"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var config *app.Config
	cmd := &cobra.Command{
		Use:   "modgrid [flags] PATH...",
		Short: "Lazy, dependency-ordered module initialization.",
		Long: `modgrid - Lazy, dependency-ordered module initialization.

Loads module manifests (.hcl, .yaml, .yml) from every PATH, registers their
modules and initializes each one after everything it requires.

Every flag can also be set through a MODGRID_* environment variable
(e.g. MODGRID_LOG_LEVEL) or a key of the same name in the --config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, paths []string) error {
			if cfgFile := v.GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return &ExitError{Code: 2, Message: fmt.Sprintf("failed to read config file: %v", err)}
				}
				slog.Debug("Config file loaded.", "path", v.ConfigFileUsed())
			}

			if len(paths) == 0 {
				paths = v.GetStringSlice("paths")
			}
			if len(paths) == 0 {
				slog.Debug("No manifest path provided, printing usage and exiting.")
				return cmd.Help()
			}

			c, err := app.NewConfig(app.Config{
				Paths:           paths,
				FetchPaths:      v.GetStringSlice("fetch-path"),
				Autoload:        v.GetBool("autoload"),
				Watch:           v.GetBool("watch"),
				Debounce:        v.GetDuration("debounce"),
				LogFormat:       strings.ToLower(v.GetString("log-format")),
				LogLevel:        strings.ToLower(v.GetString("log-level")),
				HealthcheckPort: v.GetInt("healthcheck-port"),
				TraceExporter:   strings.ToLower(v.GetString("trace-exporter")),
				OTLPEndpoint:    v.GetString("otlp-endpoint"),
			})
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			config = c
			return nil
		},
	}
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.String("log-format", app.LogFormatText, "Log output format. Options: 'text' or 'json'.")
	flags.Int("healthcheck-port", 0, "Port for the HTTP health and status server. 0 is disabled.")
	flags.Bool("watch", false, "Keep running and register modules from new or changed manifests.")
	flags.Bool("autoload", false, "Fetch manifests of missing requirements from the fetch paths.")
	flags.StringSlice("fetch-path", nil, "Directories searched for <name>.hcl|.yaml|.yml (default: the manifest paths).")
	flags.Duration("debounce", watcher.DefaultDebounce, "Quiet period before changed manifests are loaded.")
	flags.String("trace-exporter", tracing.ExporterNone, "Span exporter. Options: 'none', 'stdout', 'otlp'.")
	flags.String("otlp-endpoint", tracing.DefaultOTLPEndpoint, "OTLP/gRPC collector address.")
	flags.StringP("config", "c", "", "Config file (yaml, json or toml).")
	if err := v.BindPFlags(flags); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if config == nil {
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
