package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Scope variable names available to value expressions.
const (
	VarModule = "module"
	VarArgs   = "args"
)

// Definition is the format-agnostic representation of one module block.
type Definition struct {
	Name        string
	Description string
	Requires    []string
	// Handler names a registered Go handler. Mutually exclusive with Value.
	Handler string
	// Value is evaluated to produce the module's result. Nil when absent.
	Value hcl.Expression
	// Source is the file the definition was read from.
	Source string
	Range  hcl.Range
}

// Validate checks the structural rules every definition must follow,
// whatever format it came from.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("module name must not be empty")
	}
	if d.Handler != "" && d.Value != nil {
		return fmt.Errorf("module %q: handler and value are mutually exclusive", d.Name)
	}
	for _, req := range d.Requires {
		if req == "" {
			return fmt.Errorf("module %q: requirement names must not be empty", d.Name)
		}
	}
	if d.Value == nil {
		return nil
	}

	for _, traversal := range d.Value.Variables() {
		root := traversal.RootName()
		switch root {
		case VarArgs:
			continue
		case VarModule:
			ref, ok := moduleReference(traversal)
			if !ok {
				return fmt.Errorf("%s: module %q: references to %q must name a single module, like module.<name>", traversal.SourceRange(), d.Name, VarModule)
			}
			if !slices.Contains(d.Requires, ref) {
				return fmt.Errorf("%s: module %q references module %q, which is not listed in requires", traversal.SourceRange(), d.Name, ref)
			}
		default:
			return fmt.Errorf("%s: module %q: unknown variable %q", traversal.SourceRange(), d.Name, root)
		}
	}
	return nil
}

// moduleReference extracts the module name from module.<name> or
// module["name"].
func moduleReference(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 2 {
		return "", false
	}
	switch step := traversal[1].(type) {
	case hcl.TraverseAttr:
		return step.Name, true
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), true
		}
	}
	return "", false
}
