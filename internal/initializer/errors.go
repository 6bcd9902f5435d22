package initializer

import "fmt"

// AlreadyProcessedError signals an attempt to run a module's initializer a
// second time. The resolver never does this; seeing it means a caller
// bypassed the resolver.
type AlreadyProcessedError struct {
	Name string
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("module %q has already been processed", e.Name)
}

// InitError wraps a failure raised by a module's own initializer.
type InitError struct {
	Module string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("[Module initialization %s] %v", e.Module, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// PanicError is the failure recorded when an initializer panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("initializer panicked: %v", e.Value)
}
