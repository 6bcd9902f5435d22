package hcl_adapter

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// translateModule converts a decoded module block into the format-agnostic
// definition and validates it.
func translateModule(ctx context.Context, name string, mb *moduleBlock, file string, rng hcl.Range) (*config.Definition, error) {
	logger := ctxlog.FromContext(ctx).With("module", name)
	logger.Debug("Translating module block.")

	def := &config.Definition{
		Name:     name,
		Requires: mb.Requires,
		Source:   file,
		Range:    rng,
	}
	if mb.Description != nil {
		def.Description = *mb.Description
	}
	if mb.Handler != nil {
		def.Handler = *mb.Handler
	}
	if isExprDefined(ctx, mb.Value, "value") {
		def.Value = mb.Value
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
