package registry

import "fmt"

// DuplicateModuleError is returned when a name is registered twice.
type DuplicateModuleError struct {
	Name string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q cannot be redefined", e.Name)
}
