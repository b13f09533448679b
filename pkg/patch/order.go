package patch

import (
	"cmp"
	"slices"

	"github.com/specialistvlad/patchbay/pkg/target"
)

// Ranked is the part of a record the ordering model looks at.
type Ranked interface {
	Priority() int
	Index() int
}

// Compare orders a before b when a has the higher priority, or the same
// priority and the lower index. Index is unique within a list, so Compare
// only returns 0 for a record compared with itself.
func Compare(a, b Ranked) int {
	if c := cmp.Compare(b.Priority(), a.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.Index(), b.Index())
}

// Sort orders records in place by Compare.
func Sort[P Ranked](records []P) {
	slices.SortFunc(records, func(a, b P) int { return Compare(a, b) })
}

// Resolve returns the callable that should run for original when m is
// registered as a patch. Factories are invoked, anything else is returned
// unchanged.
func Resolve(m, original *target.Method) (*target.Method, error) {
	if !target.IsFactory(m) {
		return m, nil
	}
	return target.Produce(m, original)
}

// Find returns the first record in records whose callable is m.
func Find(records []Patch, m *target.Method) (Patch, bool) {
	for _, p := range records {
		if p.Method() == m {
			return p, true
		}
	}
	return nil, false
}
