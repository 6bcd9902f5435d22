package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/hcl_adapter"
	"github.com/specialistvlad/modgrid/internal/module"
)

// HandlerName is the name manifests use to refer to this handler.
const HandlerName = "env_vars"

// Module implements the handlers.Module interface for this package.
type Module struct{}

// OnInitEnvVars returns the process environment as a map. When the first
// requirement resolves to a string, only variables with that prefix are
// kept and the prefix is stripped from their names.
func OnInitEnvVars(ctx context.Context, _ module.Accessor, self *module.Module, args []any) (any, error) {
	prefix := ""
	if len(args) > 0 {
		native, err := hcl_adapter.ToNative(args[0])
		if err != nil {
			return nil, err
		}
		if s, ok := native.(string); ok {
			prefix = s
		}
	}

	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], prefix) {
			continue
		}
		envMap[strings.TrimPrefix(pair[0], prefix)] = pair[1]
	}

	ctxlog.FromContext(ctx).Debug("Collected environment variables.", "module", self.Name(), "prefix", prefix, "count", len(envMap))
	return envMap, nil
}

// Register registers the handler.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(HandlerName, OnInitEnvVars)
}
