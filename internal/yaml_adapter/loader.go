// Package yaml_adapter reads module manifests written in YAML:
//
//	modules:
//	  - name: b
//	    requires: [a]
//	    value: "module.a + 1"
//
// The value field holds an HCL expression in source form. Definitions are
// evaluated by the same converter as HCL manifests.
package yaml_adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Modules []moduleEntry `yaml:"modules"`
}

type moduleEntry struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Requires    []string  `yaml:"requires"`
	Handler     string    `yaml:"handler"`
	Value       yaml.Node `yaml:"value"`

	line, column int
}

var entryFields = []string{"name", "description", "requires", "handler", "value"}

// UnmarshalYAML rejects unknown keys and records the entry's position.
// Decoding through a Node does not inherit the decoder's KnownFields setting.
func (m *moduleEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !slices.Contains(entryFields, key.Value) {
				return fmt.Errorf("line %d: field %s not found in module entry", key.Line, key.Value)
			}
		}
	}
	type plain moduleEntry
	if err := node.Decode((*plain)(m)); err != nil {
		return err
	}
	m.line, m.column = node.Line, node.Column
	return nil
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// LoadFile reads a single YAML manifest.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*config.Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	var root fileRoot
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	defs := make([]*config.Definition, 0, len(root.Modules))
	for i := range root.Modules {
		def, err := translateEntry(ctx, &root.Modules[i], path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func translateEntry(ctx context.Context, e *moduleEntry, file string) (*config.Definition, error) {
	ctxlog.FromContext(ctx).Debug("Translating YAML module entry.", "module", e.Name, "line", e.line)

	def := &config.Definition{
		Name:        e.Name,
		Description: e.Description,
		Requires:    e.Requires,
		Handler:     e.Handler,
		Source:      file,
		Range: hcl.Range{
			Filename: file,
			Start:    hcl.Pos{Line: e.line, Column: e.column},
			End:      hcl.Pos{Line: e.line, Column: e.column},
		},
	}

	if e.Value.Kind != 0 {
		if e.Value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("module %q: value must be a string holding an expression (line %d)", e.Name, e.Value.Line)
		}
		start := hcl.Pos{Line: e.Value.Line, Column: e.Value.Column}
		expr, diags := hclsyntax.ParseExpression([]byte(e.Value.Value), file, start)
		if diags.HasErrors() {
			return nil, fmt.Errorf("module %q: invalid value expression: %w", e.Name, diags)
		}
		def.Value = expr
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
