package resolver

import (
	"fmt"
	"strings"
)

// UndefinedModuleError is returned when a name being resolved, either
// directly or as a requirement, has no registered module.
type UndefinedModuleError struct {
	Name string
	// RequiredBy is the active path that led to the missing name.
	RequiredBy []string
}

func (e *UndefinedModuleError) Error() string {
	if len(e.RequiredBy) == 0 {
		return fmt.Sprintf("no %q module defined", e.Name)
	}
	return fmt.Sprintf("no %q module defined (required by %s)", e.Name, FormatChain(e.RequiredBy))
}

// CircularDependencyError is returned when resolution reaches a module that
// is already on the active path.
type CircularDependencyError struct {
	// Chain is the active path followed by the repeated name.
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency! dependency chain: " + FormatChain(e.Chain)
}

// FormatChain renders names as `"a" > "b" > "c"`.
func FormatChain(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return strings.Join(quoted, " > ")
}
