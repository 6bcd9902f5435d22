package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/hcl_adapter"
	"github.com/specialistvlad/modgrid/internal/module"
)

// HandlerName is the name manifests use to refer to this handler.
const HandlerName = "print"

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Out defaults to os.Stdout.
	Out io.Writer
}

// onInit prints the results of every requirement, one per line.
func (m *Module) onInit(ctx context.Context, _ module.Accessor, self *module.Module, args []any) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing module input.", "module", self.Name())

	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	reqs := self.Requirements()
	if len(reqs) == 0 {
		fmt.Fprintln(out, "      (null)")
		return nil, nil
	}
	for i, req := range reqs {
		native, err := hcl_adapter.ToNative(args[i])
		if err != nil {
			return nil, fmt.Errorf("requirement %q: %w", req, err)
		}
		fmt.Fprintf(out, "      %s = %s\n", req, format(native))
	}
	return nil, nil
}

// format renders maps with sorted keys for consistent output.
func format(v any) string {
	switch tv := v.(type) {
	case nil:
		return "(null)"
	case string:
		return fmt.Sprintf("%q", tv)
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "{"
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s = %s", k, format(tv[k]))
		}
		return s + "}"
	default:
		return fmt.Sprintf("%v", tv)
	}
}

// Register registers the handler.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(HandlerName, m.onInit)
}
