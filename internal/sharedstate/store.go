package sharedstate

import (
	"sync"

	"github.com/specialistvlad/patchbay/pkg/target"
)

// sharedPatchSets maps targets to their patch sets. Only the instance created
// by the first copy of this package is ever used; it is published in the
// schema descriptor and reached by everyone else through it.
type sharedPatchSets struct {
	sets sync.Map // *target.Method -> *sharedPatchSet
}

// Get returns the patch set of m, or nil if m was never patched.
func (s *sharedPatchSets) Get(m *target.Method) *sharedPatchSet {
	v, ok := s.sets.Load(m)
	if !ok {
		return nil
	}
	return v.(*sharedPatchSet)
}

// GetOrInsert returns the patch set of m, creating an empty one if needed.
func (s *sharedPatchSets) GetOrInsert(m *target.Method) *sharedPatchSet {
	if v, ok := s.sets.Load(m); ok {
		return v.(*sharedPatchSet)
	}
	v, _ := s.sets.LoadOrStore(m, new(sharedPatchSet))
	return v.(*sharedPatchSet)
}

// Keys returns the targets that have a patch set, in no particular order.
func (s *sharedPatchSets) Keys() []*target.Method {
	var keys []*target.Method
	s.sets.Range(func(k, _ any) bool {
		keys = append(keys, k.(*target.Method))
		return true
	})
	return keys
}
