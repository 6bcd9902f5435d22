package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// UnknownHandlerError is returned when a definition names a handler that was
// never registered.
type UnknownHandlerError struct {
	Module  string
	Handler string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("module %q: no handler named %q is registered", e.Module, e.Handler)
}

// Converter is the HCL-specific implementation of the config.Converter
// interface. Value expressions from YAML manifests go through it as well.
type Converter struct {
	handlers *handlers.Handlers
}

var _ config.Converter = (*Converter)(nil)

// NewConverter creates a Converter resolving handler names against h.
func NewConverter(h *handlers.Handlers) *Converter {
	if h == nil {
		h = handlers.New()
	}
	return &Converter{handlers: h}
}

// Initializer returns the callback for def. A definition with neither a
// handler nor a value gets a nil callback, which yields a nil result.
func (c *Converter) Initializer(ctx context.Context, def *config.Definition) (module.Initializer, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx).With("module", def.Name)
	switch {
	case def.Handler != "":
		fn, ok := c.handlers.Get(def.Handler)
		if !ok {
			return nil, &UnknownHandlerError{Module: def.Name, Handler: def.Handler}
		}
		logger.Debug("Bound module to Go handler.", "handler", def.Handler)
		return fn, nil
	case def.Value != nil:
		logger.Debug("Bound module to value expression.", "range", def.Value.Range().String())
		return c.valueInitializer(def.Value), nil
	default:
		return nil, nil
	}
}

// valueInitializer evaluates expr against the requirement results.
func (c *Converter) valueInitializer(expr hcl.Expression) module.Initializer {
	return func(ctx context.Context, _ module.Accessor, self *module.Module, args []any) (any, error) {
		reqs := self.Requirements()
		modules := make(map[string]cty.Value, len(reqs))
		tuple := make([]cty.Value, len(args))
		for i, arg := range args {
			v, err := c.ToCtyValue(arg)
			if err != nil {
				return nil, fmt.Errorf("result of requirement %q: %w", reqs[i], err)
			}
			tuple[i] = v
			modules[reqs[i]] = v
		}

		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				config.VarModule: cty.ObjectVal(modules),
				config.VarArgs:   cty.TupleVal(tuple),
			},
			Functions: Functions(),
		}
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		ctxlog.FromContext(ctx).Debug("Evaluated module value.", "module", self.Name(), "type", val.Type().FriendlyName())
		return val, nil
	}
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
// cty values pass through unchanged and nil becomes a null of unknown type.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	switch tv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return tv, nil
	case map[string]any:
		if len(tv) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(tv))
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, err := c.ToCtyValue(tv[k])
			if err != nil {
				return cty.NilVal, fmt.Errorf("in key %q: %w", k, err)
			}
			attrs[k] = av
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(tv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(tv))
		for i, e := range tv {
			ev, err := c.ToCtyValue(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type for %T: %w", v, err)
	}
	return gocty.ToCtyValue(v, ty)
}
