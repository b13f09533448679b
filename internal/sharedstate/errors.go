package sharedstate

import (
	"errors"
	"fmt"
)

// ErrFatalConfig classifies failures to locate, create or bind the shared
// state. They are not retryable; the process cannot safely keep patching.
var ErrFatalConfig = errors.New("shared patch state misconfigured")

// FatalError is returned by Open when the shared state cannot be used.
type FatalError struct {
	Name string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("shared patch state %q: %v", e.Name, e.Err)
}

// Unwrap exposes both ErrFatalConfig and the underlying cause.
func (e *FatalError) Unwrap() []error {
	return []error{ErrFatalConfig, e.Err}
}

func fatalf(name, format string, args ...any) *FatalError {
	return &FatalError{Name: name, Err: fmt.Errorf(format, args...)}
}
