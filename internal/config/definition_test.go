package config

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestDefinitionValidate(t *testing.T) {
	testCases := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name: "no handler no value",
			def:  Definition{Name: "a"},
		},
		{
			name: "handler only",
			def:  Definition{Name: "a", Handler: "env_vars"},
		},
		{
			name: "value referencing requirement",
			def:  Definition{Name: "b", Requires: []string{"a"}, Value: parseExpr(t, `module.a + 1`)},
		},
		{
			name: "index style reference",
			def:  Definition{Name: "b", Requires: []string{"a-b"}, Value: parseExpr(t, `module["a-b"]`)},
		},
		{
			name: "args reference",
			def:  Definition{Name: "b", Requires: []string{"a"}, Value: parseExpr(t, `args[0] * 2`)},
		},
		{
			name:    "empty name",
			def:     Definition{},
			wantErr: "module name must not be empty",
		},
		{
			name:    "handler and value",
			def:     Definition{Name: "a", Handler: "print", Value: parseExpr(t, `1`)},
			wantErr: "mutually exclusive",
		},
		{
			name:    "empty requirement",
			def:     Definition{Name: "a", Requires: []string{""}},
			wantErr: "requirement names must not be empty",
		},
		{
			name:    "undeclared reference",
			def:     Definition{Name: "b", Requires: []string{"a"}, Value: parseExpr(t, `module.c`)},
			wantErr: `references module "c", which is not listed in requires`,
		},
		{
			name:    "bare module object",
			def:     Definition{Name: "b", Requires: []string{"a"}, Value: parseExpr(t, `module`)},
			wantErr: "must name a single module",
		},
		{
			name:    "unknown variable",
			def:     Definition{Name: "b", Value: parseExpr(t, `var.x`)},
			wantErr: `unknown variable "var"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
