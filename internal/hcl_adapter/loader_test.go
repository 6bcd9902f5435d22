package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "b.hcl", `
module "b" {
  description = "One more than a."
  requires    = ["a"]
  value       = module.a + 1
}

module "env" {
  handler = "env_vars"
}

module "c" {}
`)

	defs, err := NewLoader().LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"b", "env", "c"}, names)

	b := defs[0]
	assert.Equal(t, "One more than a.", b.Description)
	assert.Equal(t, []string{"a"}, b.Requires)
	assert.NotNil(t, b.Value)
	assert.Empty(t, b.Handler)
	assert.Equal(t, path, b.Source)
	assert.Equal(t, 2, b.Range.Start.Line)

	env := defs[1]
	assert.Equal(t, "env_vars", env.Handler)
	assert.Nil(t, env.Value)

	c := defs[2]
	assert.Nil(t, c.Value)
	assert.Empty(t, c.Requires)
}

func TestLoader_LoadFileMissing(t *testing.T) {
	_, err := NewLoader().LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "failed to parse HCL file")
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax error",
			content: `module "a" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown top-level block",
			content: `runner "x" {}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "unknown attribute",
			content: `module "a" { colour = "red" }`,
			wantErr: `failed to decode module "a"`,
		},
		{
			name: "handler and value",
			content: `module "a" {
  handler = "print"
  value   = 1
}`,
			wantErr: "handler and value are mutually exclusive",
		},
		{
			name: "undeclared reference",
			content: `module "a" {
  requires = ["x"]
  value    = module.y
}`,
			wantErr: `references module "y", which is not listed in requires`,
		},
		{
			name:    "empty name",
			content: `module "" {}`,
			wantErr: "module name must not be empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), "m.hcl", tc.content)
			_, err := NewLoader().LoadFile(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
