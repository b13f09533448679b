package patch

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/patchbay/pkg/target"
)

var (
	// ErrGeneratedCallable rejects a runtime-generated callable registered
	// directly. Such callables must be returned from a factory instead.
	ErrGeneratedCallable = errors.New("generated callable cannot be registered directly")
	// ErrNilCallable rejects a missing callable.
	ErrNilCallable = errors.New("patch callable is nil")
)

// Validate reports whether m may back a patch record.
func Validate(m *target.Method) error {
	if m == nil {
		return ErrNilCallable
	}
	if m.IsGenerated() {
		return fmt.Errorf("%q: %w; register a factory that returns it instead", m.Name(), ErrGeneratedCallable)
	}
	return nil
}
