package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/hcl_adapter"
	"github.com/specialistvlad/modgrid/internal/module"
)

// HandlerName is the name manifests use to refer to this handler.
const HandlerName = "http_request"

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Client defaults to a client with a 30s timeout.
	Client *http.Client
}

// Input is read from the first requirement: either a URL string or an
// object with url and, optionally, method.
type Input struct {
	URL    string
	Method string
}

func parseInput(arg any) (*Input, error) {
	native, err := hcl_adapter.ToNative(arg)
	if err != nil {
		return nil, err
	}
	in := &Input{Method: http.MethodGet}
	switch v := native.(type) {
	case string:
		in.URL = v
	case map[string]any:
		url, _ := v["url"].(string)
		in.URL = url
		if method, ok := v["method"].(string); ok && method != "" {
			in.Method = method
		}
	default:
		return nil, fmt.Errorf("expected a URL string or an object with url, got %T", native)
	}
	if in.URL == "" {
		return nil, fmt.Errorf("url must not be empty")
	}
	return in, nil
}

// onInit performs the request and returns its status code and body.
func (m *Module) onInit(ctx context.Context, _ module.Accessor, self *module.Module, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("module %q must require the module holding its request", self.Name())
	}
	input, err := parseInput(args[0])
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "module", self.Name(), "method", input.Method, "url", input.URL)

	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, input.Method, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "module", self.Name(), "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(bodyBytes),
	}, nil
}

// Register registers the handler.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(HandlerName, m.onInit)
}
