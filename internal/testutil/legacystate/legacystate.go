// Package legacystate is a frozen copy of the version 1 layout of the shared
// patch store. It is what an older build of the registry publishes, and is
// kept so that joiners can be exercised against a store whose concrete types
// they were not compiled with.
//
// Version 1 keeps all records of a target in one slice tagged by kind and
// guards the target map with a RWMutex. Its operation set is the same as the
// current one.
package legacystate

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/specialistvlad/patchbay/pkg/discovery"
	"github.com/specialistvlad/patchbay/pkg/target"
)

// Version is the schema version this layout publishes.
const Version = 1

const (
	kindPrefix = iota
	kindPostfix
	kindTranspiler
	kindFinalizer
)

// Publish creates a version 1 store under name, the way an older build does
// when it is the first to need one.
func Publish(name string) error {
	unlock, err := discovery.Lock(name)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := discovery.Lookup(name); ok {
		return fmt.Errorf("legacy state %q: %w", name, discovery.ErrNameTaken)
	}
	return discovery.Publish(name, map[string]any{
		"version":      Version,
		"patchSetType": reflect.TypeOf((*entry)(nil)),
		"patchType":    reflect.TypeOf((*record)(nil)),
		"patchSets":    &table{entries: make(map[*target.Method]*entry)},
	})
}

type table struct {
	mu      sync.RWMutex
	entries map[*target.Method]*entry
}

func (t *table) Get(m *target.Method) *entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[m]
}

func (t *table) GetOrInsert(m *target.Method) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[m]
	if !ok {
		e = &entry{}
		t.entries[m] = e
	}
	return e
}

func (t *table) Keys() []*target.Method {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]*target.Method, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

type entry struct {
	mu      sync.Mutex
	records []*record
	seq     [4]int
}

func (e *entry) Prefixes() []*record    { return e.of(kindPrefix) }
func (e *entry) Postfixes() []*record   { return e.of(kindPostfix) }
func (e *entry) Transpilers() []*record { return e.of(kindTranspiler) }
func (e *entry) Finalizers() []*record  { return e.of(kindFinalizer) }

func (e *entry) AddPrefix(m *target.Method, owner string, priority int, before, after []string) error {
	return e.add(kindPrefix, m, owner, priority, before, after)
}

func (e *entry) AddPostfix(m *target.Method, owner string, priority int, before, after []string) error {
	return e.add(kindPostfix, m, owner, priority, before, after)
}

func (e *entry) AddTranspiler(m *target.Method, owner string, priority int, before, after []string) error {
	return e.add(kindTranspiler, m, owner, priority, before, after)
}

func (e *entry) AddFinalizer(m *target.Method, owner string, priority int, before, after []string) error {
	return e.add(kindFinalizer, m, owner, priority, before, after)
}

func (e *entry) RemovePrefix(owner string)     { e.drop(kindPrefix, owner) }
func (e *entry) RemovePostfix(owner string)    { e.drop(kindPostfix, owner) }
func (e *entry) RemoveTranspiler(owner string) { e.drop(kindTranspiler, owner) }
func (e *entry) RemoveFinalizer(owner string)  { e.drop(kindFinalizer, owner) }

func (e *entry) RemovePatch(m *target.Method) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for kind := kindPrefix; kind <= kindFinalizer; kind++ {
		for i, r := range e.records {
			if r.kind == kind && r.fn == m {
				e.records = append(e.records[:i:i], e.records[i+1:]...)
				return
			}
		}
	}
}

func (e *entry) of(kind int) []*record {
	e.mu.Lock()
	var out []*record
	for _, r := range e.records {
		if r.kind == kind {
			out = append(out, r)
		}
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CompareTo(out[j]) < 0 })
	return out
}

func (e *entry) add(kind int, m *target.Method, owner string, priority int, before, after []string) error {
	if m == nil {
		return fmt.Errorf("legacy state: nil patch callable")
	}
	if m.IsGenerated() {
		return fmt.Errorf("legacy state: cannot directly reference generated callable %q, use a factory", m.Name())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, &record{
		kind:  kind,
		seq:   e.seq[kind],
		owner: owner,
		prio:  priority,
		hints: hints{before: append([]string(nil), before...), after: append([]string(nil), after...)},
		fn:    m,
	})
	e.seq[kind]++
	return nil
}

func (e *entry) drop(kind int, owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.records[:0]
	for _, r := range e.records {
		if r.kind == kind && (owner == "*" || r.owner == owner) {
			continue
		}
		kept = append(kept, r)
	}
	e.records = kept
}

type hints struct {
	before, after []string
}

type record struct {
	kind  int
	seq   int
	owner string
	prio  int
	hints hints
	fn    *target.Method
}

func (r *record) Index() int             { return r.seq }
func (r *record) Owner() string          { return r.owner }
func (r *record) Priority() int          { return r.prio }
func (r *record) Before() []string       { return append([]string(nil), r.hints.before...) }
func (r *record) After() []string        { return append([]string(nil), r.hints.after...) }
func (r *record) Method() *target.Method { return r.fn }
func (r *record) Hash() uint64           { return r.fn.ID() }

func (r *record) Resolve(original *target.Method) (*target.Method, error) {
	if !target.IsFactory(r.fn) {
		return r.fn, nil
	}
	return target.Produce(r.fn, original)
}

func (r *record) Equals(other any) bool {
	o, ok := other.(interface{ Method() *target.Method })
	return ok && o.Method() == r.fn
}

func (r *record) CompareTo(other any) int {
	o, ok := other.(interface {
		Priority() int
		Index() int
	})
	if !ok {
		return -1
	}
	switch {
	case r.prio > o.Priority():
		return -1
	case r.prio < o.Priority():
		return 1
	case r.seq < o.Index():
		return -1
	case r.seq > o.Index():
		return 1
	}
	return 0
}
