package hcl_adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func testHandlers() *handlers.Handlers {
	h := handlers.New()
	h.Register("answer", func(context.Context, module.Accessor, *module.Module, []any) (any, error) {
		return map[string]any{"value": 42, "tags": []any{"x", "y"}}, nil
	})
	return h
}

// evaluate runs def's initializer against the given requirement results.
func evaluate(t *testing.T, def *config.Definition, args ...any) (any, error) {
	t.Helper()
	fn, err := NewConverter(testHandlers()).Initializer(context.Background(), def)
	require.NoError(t, err)
	require.NotNil(t, fn)
	return fn(context.Background(), nil, module.New(def.Name, def.Requires, fn), args)
}

func TestConverter_ValueExpressions(t *testing.T) {
	testCases := []struct {
		name     string
		requires []string
		src      string
		args     []any
		want     cty.Value
	}{
		{
			name:     "arithmetic on module reference",
			requires: []string{"a"},
			src:      `module.a + 1`,
			args:     []any{1},
			want:     cty.NumberIntVal(2),
		},
		{
			name:     "args tuple in declared order",
			requires: []string{"x", "y"},
			src:      `"${args[0]}-${args[1]}"`,
			args:     []any{"left", "right"},
			want:     cty.StringVal("left-right"),
		},
		{
			name:     "stdlib functions",
			requires: []string{"name"},
			src:      `upper(format("hello %s", module.name))`,
			args:     []any{"world"},
			want:     cty.StringVal("HELLO WORLD"),
		},
		{
			name:     "native maps become objects",
			requires: []string{"cfg"},
			src:      `module.cfg.value * length(module.cfg.tags)`,
			args:     []any{map[string]any{"value": 21, "tags": []any{"a", "b"}}},
			want:     cty.NumberIntVal(42),
		},
		{
			name:     "failed requirement is null",
			requires: []string{"broken"},
			src:      `module.broken == null ? "fallback" : "set"`,
			args:     []any{nil},
			want:     cty.StringVal("fallback"),
		},
		{
			name:     "cty results pass through",
			requires: []string{"list"},
			src:      `join(",", module.list)`,
			args:     []any{cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})},
			want:     cty.StringVal("a,b"),
		},
		{
			name: "literal without requirements",
			src:  `jsonencode({ n = max(1, 5, 3) })`,
			want: cty.StringVal(`{"n":5}`),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := &config.Definition{Name: "m", Requires: tc.requires, Value: expr(t, tc.src)}
			got, err := evaluate(t, def, tc.args...)
			require.NoError(t, err)
			v, ok := got.(cty.Value)
			require.True(t, ok, "result is %T", got)
			assert.True(t, v.Equals(tc.want).True(), "got %#v, want %#v", v, tc.want)
		})
	}
}

func TestConverter_EvaluationError(t *testing.T) {
	def := &config.Definition{Name: "m", Requires: []string{"a"}, Value: expr(t, `module.a + 1`)}
	_, err := evaluate(t, def, "not a number")
	require.Error(t, err)
	var diags hcl.Diagnostics
	assert.True(t, errors.As(err, &diags))
}

func TestConverter_Handlers(t *testing.T) {
	c := NewConverter(testHandlers())

	fn, err := c.Initializer(context.Background(), &config.Definition{Name: "m", Handler: "answer"})
	require.NoError(t, err)
	got, err := fn(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, got.(map[string]any)["value"])

	_, err = c.Initializer(context.Background(), &config.Definition{Name: "m", Handler: "nope"})
	var unknown *UnknownHandlerError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Handler)
	assert.EqualError(t, err, `module "m": no handler named "nope" is registered`)

	fn, err = c.Initializer(context.Background(), &config.Definition{Name: "empty"})
	require.NoError(t, err)
	assert.Nil(t, fn)
}

func TestConverter_ToCtyValue(t *testing.T) {
	c := NewConverter(nil)

	v, err := c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	var nilPtr *struct{}
	v, err = c.ToCtyValue(nilPtr)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = c.ToCtyValue(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.True(t, v.Equals(cty.MapVal(map[string]cty.Value{"k": cty.StringVal("v")})).True())

	_, err = c.ToCtyValue(make(chan int))
	assert.ErrorContains(t, err, "unable to infer cty.Type")
}

func TestToNative(t *testing.T) {
	got, err := ToNative(cty.ObjectVal(map[string]cty.Value{
		"n":    cty.NumberIntVal(3),
		"f":    cty.NumberFloatVal(1.5),
		"s":    cty.StringVal("x"),
		"b":    cty.True,
		"l":    cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.NullVal(cty.String)}),
		"null": cty.NullVal(cty.String),
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"f":    1.5,
		"s":    "x",
		"b":    true,
		"l":    []any{"a", nil},
		"null": nil,
	}, got)

	plain, err := ToNative("already native")
	require.NoError(t, err)
	assert.Equal(t, "already native", plain)

	_, err = ToNative(cty.UnknownVal(cty.String))
	assert.Error(t, err)
}

// TestEndToEnd_Manifest loads a manifest and runs it through a runtime.
func TestEndToEnd_Manifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeManifest(t, dir, "modules.hcl", `
module "b" {
  requires = ["a"]
  value    = module.a + 1
}

module "a" {
  value = 1
}

module "report" {
  requires = ["b", "answer"]
  value    = format("%d/%d", module.b, module.answer.value)
}

module "answer" {
  handler = "answer"
}
`)

	defs, err := NewLoader().LoadFile(ctx, path)
	require.NoError(t, err)

	conv := NewConverter(testHandlers())
	rt := runtime.New()
	for _, def := range defs {
		fn, err := conv.Initializer(ctx, def)
		require.NoError(t, err)
		require.NoError(t, rt.RegisterModule(ctx, module.New(def.Name, def.Requires, fn).WithSource(def.Source)))
	}
	require.NoError(t, rt.RunAll(ctx))

	b, ok := rt.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, module.Processed, b.State())
	assert.True(t, b.Result().(cty.Value).Equals(cty.NumberIntVal(2)).True())

	report, _ := rt.Lookup("report")
	assert.Equal(t, module.Processed, report.State())
	assert.Equal(t, "2/42", report.Result().(cty.Value).AsString())
}
