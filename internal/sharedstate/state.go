package sharedstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/pkg/discovery"
	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
)

// DefaultName is the discovery name of the process-wide patch registry.
const DefaultName = "patchbay.SharedState"

// Role tells whether a State created the shared store or joined it.
type Role int

const (
	Creator Role = iota
	Joiner
)

func (r Role) String() string {
	if r == Creator {
		return "creator"
	}
	return "joiner"
}

// Binding tells how a State reaches the shared store.
type Binding int

const (
	// Direct means the store's types are this copy's own types.
	Direct Binding = iota
	// Adapted means calls are forwarded through resolved method tables.
	Adapted
)

func (b Binding) String() string {
	if b == Direct {
		return "direct"
	}
	return "adapted"
}

// backend is what a State needs from the shared store, however it is bound.
type backend interface {
	get(m *target.Method) (patch.PatchSet, bool)
	getOrInsert(m *target.Method) patch.PatchSet
	keys() []*target.Method
}

type directStore struct {
	s *sharedPatchSets
}

func (d directStore) get(m *target.Method) (patch.PatchSet, bool) {
	if set := d.s.Get(m); set != nil {
		return set, true
	}
	return nil, false
}

func (d directStore) getOrInsert(m *target.Method) patch.PatchSet { return d.s.GetOrInsert(m) }
func (d directStore) keys() []*target.Method                      { return d.s.Keys() }

// publish is replaced in tests to simulate a publisher that bypasses the lock.
var publish = discovery.Publish

// State is a handle to the process-wide patch registry. Handles are cheap and
// any number may exist; they all reference the same store.
type State struct {
	name          string
	role          Role
	binding       Binding
	actualVersion int
	backend       backend
}

// Open returns a handle to the registry published under name, creating and
// publishing the registry if nobody has yet. The returned error, if any, is a
// *FatalError.
func Open(ctx context.Context, name string) (*State, error) {
	logger := ctxlog.FromContext(ctx).With("state", name)

	unlock, err := discovery.Lock(name)
	if err != nil {
		return nil, fatalf(name, "cannot acquire creation lock: %w", err)
	}
	defer unlock()

	if published, ok := discovery.Lookup(name); ok {
		return join(logger, name, published)
	}

	store := &sharedPatchSets{}
	if err := publish(name, describe(store)); err != nil {
		if !errors.Is(err, discovery.ErrNameTaken) {
			return nil, fatalf(name, "cannot publish shared state: %w", err)
		}
		// Published by a copy that does not share our lock.
		published, ok := discovery.Lookup(name)
		if !ok {
			return nil, fatalf(name, "cannot find or create shared state")
		}
		return join(logger, name, published)
	}
	if _, ok := discovery.Lookup(name); !ok {
		return nil, fatalf(name, "cannot find or create shared state")
	}

	logger.Debug("Shared patch state created.", "version", InternalVersion)
	return &State{
		name:          name,
		role:          Creator,
		binding:       Direct,
		actualVersion: InternalVersion,
		backend:       directStore{s: store},
	}, nil
}

func join(logger *slog.Logger, name string, published any) (*State, error) {
	d, err := readDescriptor(published)
	if err != nil {
		return nil, &FatalError{Name: name, Err: err}
	}

	st := &State{name: name, role: Joiner, actualVersion: d.version}
	if d.matchesCompiled() {
		st.binding = Direct
		st.backend = directStore{s: d.store.Interface().(*sharedPatchSets)}
		logger.Debug("Joined shared patch state.", "binding", st.binding, "version", d.version)
		return st, nil
	}

	tbl, err := bindStore(d)
	if err != nil {
		return nil, &FatalError{Name: name, Err: err}
	}
	st.binding = Adapted
	st.backend = adaptedStore{t: tbl}
	if d.version != InternalVersion {
		logger.Info("Joined shared patch state of a different version.",
			"internal_version", InternalVersion, "actual_version", d.version)
	}
	logger.Debug("Joined shared patch state.", "binding", st.binding,
		"patch_set_type", d.patchSetType.String(), "patch_type", d.patchType.String())
	return st, nil
}

// MustOpen is Open for process bootstrap: a fatal error panics.
func MustOpen(ctx context.Context, name string) *State {
	st, err := Open(ctx, name)
	if err != nil {
		panic(err)
	}
	return st
}

// Patches returns the patch set of m, or false if m has never been patched.
// A nil target is never patched.
func (s *State) Patches(m *target.Method) (patch.PatchSet, bool) {
	if m == nil {
		return nil, false
	}
	return s.backend.get(m)
}

// GetOrCreatePatches returns the patch set of m, creating it if needed.
// Concurrent callers for the same target receive the same set. It panics if m
// is nil.
func (s *State) GetOrCreatePatches(m *target.Method) patch.PatchSet {
	if m == nil {
		panic(fmt.Sprintf("sharedstate: %q: cannot patch a nil target", s.name))
	}
	return s.backend.getOrInsert(m)
}

// PatchedTargets lists every target that has a patch set, emptied ones
// included. The order is unspecified.
func (s *State) PatchedTargets() []*target.Method {
	return s.backend.keys()
}

// Name returns the discovery name of the registry.
func (s *State) Name() string { return s.name }

// Role reports whether this handle created the registry.
func (s *State) Role() Role { return s.role }

// Binding reports whether calls go straight to the store or through an adapter.
func (s *State) Binding() Binding { return s.binding }

// InternalVersion is the schema version compiled into this copy.
func (s *State) InternalVersion() int { return InternalVersion }

// ActualVersion is the schema version of the store, which differs from
// InternalVersion when the store was created by another version.
func (s *State) ActualVersion() int { return s.actualVersion }
