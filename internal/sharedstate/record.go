package sharedstate

import (
	"slices"

	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
)

// sharedPatch is the canonical patch record. It is immutable once built.
type sharedPatch struct {
	index    int
	owner    string
	priority int
	before   []string
	after    []string
	method   *target.Method
}

func newSharedPatch(m *target.Method, index int, owner string, priority int, before, after []string) (*sharedPatch, error) {
	if err := patch.Validate(m); err != nil {
		return nil, err
	}
	return &sharedPatch{
		index:    index,
		owner:    owner,
		priority: priority,
		before:   slices.Clone(before),
		after:    slices.Clone(after),
		method:   m,
	}, nil
}

func (p *sharedPatch) Index() int             { return p.index }
func (p *sharedPatch) Owner() string          { return p.owner }
func (p *sharedPatch) Priority() int          { return p.priority }
func (p *sharedPatch) Before() []string       { return slices.Clone(p.before) }
func (p *sharedPatch) After() []string        { return slices.Clone(p.after) }
func (p *sharedPatch) Method() *target.Method { return p.method }

func (p *sharedPatch) Resolve(original *target.Method) (*target.Method, error) {
	return patch.Resolve(p.method, original)
}

// Equals accepts any record that exposes its callable, including records of
// other copies of this package.
func (p *sharedPatch) Equals(other any) bool {
	o, ok := other.(interface{ Method() *target.Method })
	return ok && o.Method() == p.method
}

func (p *sharedPatch) CompareTo(other any) int {
	o, ok := other.(patch.Ranked)
	if !ok {
		return -1
	}
	return patch.Compare(p, o)
}

func (p *sharedPatch) Hash() uint64 { return p.method.ID() }
