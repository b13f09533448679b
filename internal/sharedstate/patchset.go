package sharedstate

import (
	"slices"
	"sync"

	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
)

// sharedPatchSet is the canonical patch set of one target. Lists are kept in
// insertion order and sorted on every read.
type sharedPatchSet struct {
	mu    sync.Mutex
	lists [4][]*sharedPatch
	// next is the index handed to the next record of each list. It only grows.
	next [4]int
}

func (s *sharedPatchSet) Prefixes() []patch.Patch    { return s.list(patch.Prefix) }
func (s *sharedPatchSet) Postfixes() []patch.Patch   { return s.list(patch.Postfix) }
func (s *sharedPatchSet) Transpilers() []patch.Patch { return s.list(patch.Transpiler) }
func (s *sharedPatchSet) Finalizers() []patch.Patch  { return s.list(patch.Finalizer) }

func (s *sharedPatchSet) AddPrefix(m *target.Method, owner string, priority int, before, after []string) error {
	return s.add(patch.Prefix, m, owner, priority, before, after)
}

func (s *sharedPatchSet) AddPostfix(m *target.Method, owner string, priority int, before, after []string) error {
	return s.add(patch.Postfix, m, owner, priority, before, after)
}

func (s *sharedPatchSet) AddTranspiler(m *target.Method, owner string, priority int, before, after []string) error {
	return s.add(patch.Transpiler, m, owner, priority, before, after)
}

func (s *sharedPatchSet) AddFinalizer(m *target.Method, owner string, priority int, before, after []string) error {
	return s.add(patch.Finalizer, m, owner, priority, before, after)
}

func (s *sharedPatchSet) RemovePrefix(owner string)     { s.remove(patch.Prefix, owner) }
func (s *sharedPatchSet) RemovePostfix(owner string)    { s.remove(patch.Postfix, owner) }
func (s *sharedPatchSet) RemoveTranspiler(owner string) { s.remove(patch.Transpiler, owner) }
func (s *sharedPatchSet) RemoveFinalizer(owner string)  { s.remove(patch.Finalizer, owner) }

// RemovePatch drops the first record whose callable is m, looking at the
// lists in Kind order.
func (s *sharedPatchSet) RemovePatch(m *target.Method) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range patch.Kinds {
		i := slices.IndexFunc(s.lists[k], func(p *sharedPatch) bool { return p.method == m })
		if i >= 0 {
			s.lists[k] = slices.Delete(s.lists[k], i, i+1)
			return
		}
	}
}

func (s *sharedPatchSet) list(k patch.Kind) []patch.Patch {
	s.mu.Lock()
	records := slices.Clone(s.lists[k])
	s.mu.Unlock()

	patch.Sort(records)
	out := make([]patch.Patch, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

func (s *sharedPatchSet) add(k patch.Kind, m *target.Method, owner string, priority int, before, after []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := newSharedPatch(m, s.next[k], owner, priority, before, after)
	if err != nil {
		return err
	}
	s.next[k]++
	s.lists[k] = append(s.lists[k], p)
	return nil
}

func (s *sharedPatchSet) remove(k patch.Kind, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner == patch.AllOwners {
		s.lists[k] = nil
		return
	}
	s.lists[k] = slices.DeleteFunc(s.lists[k], func(p *sharedPatch) bool { return p.owner == owner })
}
