// Package fetcher locates manifests for modules that are required but not yet
// registered, by name, in a set of search directories.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMissTTL         = 30 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
)

// InvalidNameError is returned for names that cannot be mapped to a file
// inside the search directories.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("module name %q cannot be used as a manifest path", e.Name)
}

// NotFoundError is returned when no manifest exists for a name.
type NotFoundError struct {
	Name string
	Dirs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no manifest for module %q in %s", e.Name, strings.Join(e.Dirs, ", "))
}

// RegisterFunc registers the definitions read from a fetched manifest.
type RegisterFunc func(ctx context.Context, defs []*config.Definition) error

// Config configures a FileFetcher.
type Config struct {
	// Dirs are searched in order.
	Dirs []string
	// MissTTL is how long a failed lookup is remembered.
	MissTTL time.Duration
}

// FileFetcher maps a module name to <dir>/<name><ext> for every search
// directory and every extension of its loaders.
type FileFetcher struct {
	dirs     []string
	loaders  []config.Loader
	register RegisterFunc
	misses   *gocache.Cache
	group    singleflight.Group
}

// New creates a FileFetcher. Loaders are tried in the given order for each
// directory.
func New(cfg Config, register RegisterFunc, loaders ...config.Loader) *FileFetcher {
	ttl := cfg.MissTTL
	if ttl <= 0 {
		ttl = DefaultMissTTL
	}
	return &FileFetcher{
		dirs:     cfg.Dirs,
		loaders:  loaders,
		register: register,
		misses:   gocache.New(ttl, DefaultCleanupInterval),
	}
}

// Find returns the manifest path for name and the loader that reads it.
func (f *FileFetcher) Find(ctx context.Context, name string) (string, config.Loader, error) {
	if err := validateName(name); err != nil {
		return "", nil, err
	}
	logger := ctxlog.FromContext(ctx)

	if _, missed := f.misses.Get(name); missed {
		logger.Debug("Manifest lookup cached as a miss.", "module", name)
		return "", nil, &NotFoundError{Name: name, Dirs: f.dirs}
	}

	for _, dir := range f.dirs {
		for _, loader := range f.loaders {
			for _, ext := range loader.Extensions() {
				path := filepath.Join(dir, filepath.FromSlash(name)+ext)
				info, err := os.Stat(path)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						continue
					}
					return "", nil, fmt.Errorf("checking %s: %w", path, err)
				}
				if info.IsDir() {
					continue
				}
				logger.Debug("Found manifest for module.", "module", name, "path", path)
				return path, loader, nil
			}
		}
	}

	f.misses.SetDefault(name, struct{}{})
	return "", nil, &NotFoundError{Name: name, Dirs: f.dirs}
}

// Fetch loads the manifest for name and registers every definition in it.
// The manifest must define name. Concurrent fetches of one name share a
// single load.
func (f *FileFetcher) Fetch(ctx context.Context, name string) error {
	_, err, _ := f.group.Do(name, func() (any, error) {
		return nil, f.fetch(ctx, name)
	})
	return err
}

func (f *FileFetcher) fetch(ctx context.Context, name string) error {
	path, loader, err := f.Find(ctx, name)
	if err != nil {
		return err
	}

	defs, err := loader.LoadFile(ctx, path)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(defs, func(d *config.Definition) bool { return d.Name == name }) {
		return fmt.Errorf("manifest %s does not define module %q", path, name)
	}

	ctxlog.FromContext(ctx).Info("Fetched module manifest.", "module", name, "path", path, "definitions", len(defs))
	return f.register(ctx, defs)
}

// Forget drops a cached miss, e.g. after a manifest was created.
func (f *FileFetcher) Forget(name string) {
	f.misses.Delete(name)
}

func validateName(name string) error {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return &InvalidNameError{Name: name}
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." || part == "." || part == "" {
			return &InvalidNameError{Name: name}
		}
	}
	return nil
}
