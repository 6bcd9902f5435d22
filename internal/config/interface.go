package config

import (
	"context"

	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// LoadFile reads a single manifest file and returns its definitions in
	// block order. Discovery is left to the caller.
	LoadFile(ctx context.Context, path string) ([]*Definition, error)
	// Extensions lists the file extensions this loader understands.
	Extensions() []string
}

// Converter builds module initializers from definitions and bridges Go
// values into the manifest value space.
type Converter interface {
	// Initializer returns the callback to register for def.
	Initializer(ctx context.Context, def *Definition) (module.Initializer, error)

	// ToCtyValue converts a native Go value (such as a Go module's result)
	// into its cty equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
