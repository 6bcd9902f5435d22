package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/modgrid/internal/config"
)

// Extension is the file extension of HCL manifests.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// rootSchema accepts module blocks only.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "module", LabelNames: []string{"name"}},
	},
}

// moduleBlock is the body of a `module "name" { ... }` block.
type moduleBlock struct {
	Description *string        `hcl:"description,optional"`
	Requires    []string       `hcl:"requires,optional"`
	Handler     *string        `hcl:"handler,optional"`
	Value       hcl.Expression `hcl:"value,optional"`
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{Extension}
}

// LoadFile reads a single .hcl file.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*config.Definition, error) {
	return l.parseFile(ctx, hclparse.NewParser(), path)
}

func (l *Loader) parseFile(ctx context.Context, parser *hclparse.Parser, file string) ([]*config.Definition, error) {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
	}

	content, diags := hclFile.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	defs := make([]*config.Definition, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		var mb moduleBlock
		if diags := gohcl.DecodeBody(block.Body, nil, &mb); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode module %q in %s: %w", block.Labels[0], file, diags)
		}
		def, err := translateModule(ctx, block.Labels[0], &mb, file, block.DefRange)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
