package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// testModule provides handlers used by app tests.
type testModule struct{}

func (testModule) Register(h *handlers.Handlers) {
	h.Register("boom", func(context.Context, module.Accessor, *module.Module, []any) (any, error) {
		return nil, errors.New("boom")
	})
	h.Register("seven", func(context.Context, module.Accessor, *module.Module, []any) (any, error) {
		return 7, nil
	})
}

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newTestApp builds an App over cfg with the test handlers.
func newTestApp(t *testing.T, cfg Config) (*App, *SafeBuffer) {
	t.Helper()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	a, err := NewApp(context.Background(), out, validated, testModule{})
	require.NoError(t, err)
	return a, out
}
