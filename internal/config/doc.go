// Package config defines the format-agnostic model of a module manifest and
// the interfaces implemented by format-specific loaders and converters.
//
// A manifest declares modules by name together with their requirements and
// either a Go handler or a value expression. Loaders (HCL, YAML) produce
// Definitions; a Converter turns a Definition into a module initializer.
package config
