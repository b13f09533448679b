package config

import (
	"fmt"

	"github.com/specialistvlad/patchbay/pkg/patch"
)

// Model is the unified, format-agnostic representation of every loaded
// manifest. Operations are applied in field order: all patches, then all
// unpatches, then all removals. Within a field the load order is kept.
type Model struct {
	Patches   []*PatchDecl
	Unpatches []*UnpatchDecl
	Removals  []*RemovalDecl
}

// Source locates a declaration for error messages.
type Source struct {
	File string
	Line int
}

func (s Source) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// PatchDecl is the format-agnostic representation of a `patch` block.
type PatchDecl struct {
	Kind     patch.Kind
	Name     string
	Target   string
	Method   string
	Owner    string
	Priority int
	Before   []string
	After    []string
	// Factory marks Method as a factory producing the callable per target.
	Factory bool
	Source  Source
}

// UnpatchDecl is the format-agnostic representation of an `unpatch` block.
// Owner may be patch.AllOwners.
type UnpatchDecl struct {
	Kind   patch.Kind
	Target string
	Owner  string
	Source Source
}

// RemovalDecl is the format-agnostic representation of a `remove_patch` block.
type RemovalDecl struct {
	Target string
	Method string
	Source Source
}

// Merge appends the declarations of other to m, keeping their order.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Patches = append(m.Patches, other.Patches...)
	m.Unpatches = append(m.Unpatches, other.Unpatches...)
	m.Removals = append(m.Removals, other.Removals...)
}

// Targets returns the distinct target names the model touches, in first-seen
// order.
func (m *Model) Targets() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, p := range m.Patches {
		add(p.Target)
	}
	for _, u := range m.Unpatches {
		add(u.Target)
	}
	for _, r := range m.Removals {
		add(r.Target)
	}
	return out
}

// Empty reports whether the model declares nothing.
func (m *Model) Empty() bool {
	return len(m.Patches) == 0 && len(m.Unpatches) == 0 && len(m.Removals) == 0
}
