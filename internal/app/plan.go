package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/specialistvlad/patchbay/internal/sharedstate"
	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
)

// Plan is the run order of every patched target as the shared state reports it.
type Plan struct {
	State   StateInfo    `json:"state"`
	Targets []TargetPlan `json:"targets"`
}

// StateInfo describes the shared state the plan was read from.
type StateInfo struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	Binding         string `json:"binding"`
	InternalVersion int    `json:"internal_version"`
	ActualVersion   int    `json:"actual_version"`
}

// TargetPlan holds the non-empty lists of one target, keyed by kind.
type TargetPlan struct {
	Target string             `json:"target"`
	Lists  map[string][]Entry `json:"lists"`
}

// Entry is one record in run order.
type Entry struct {
	Method   string   `json:"method"`
	Owner    string   `json:"owner"`
	Priority int      `json:"priority"`
	Index    int      `json:"index"`
	Before   []string `json:"before,omitempty"`
	After    []string `json:"after,omitempty"`
	Factory  bool     `json:"factory,omitempty"`
	Resolved string   `json:"resolved,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// BuildPlan reads every patched target of st. Targets are sorted by name.
// With resolve set, factories are invoked for their target.
func BuildPlan(st *sharedstate.State, resolve bool) *Plan {
	targets := st.PatchedTargets()
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Name() != targets[j].Name() {
			return targets[i].Name() < targets[j].Name()
		}
		return targets[i].ID() < targets[j].ID()
	})

	p := &Plan{
		State: StateInfo{
			Name:            st.Name(),
			Role:            st.Role().String(),
			Binding:         st.Binding().String(),
			InternalVersion: st.InternalVersion(),
			ActualVersion:   st.ActualVersion(),
		},
		Targets: make([]TargetPlan, 0, len(targets)),
	}
	for _, tgt := range targets {
		set, ok := st.Patches(tgt)
		if !ok {
			continue
		}
		tp := TargetPlan{Target: tgt.Name(), Lists: make(map[string][]Entry)}
		for _, k := range patch.Kinds {
			records := patch.List(set, k)
			if len(records) == 0 {
				continue
			}
			entries := make([]Entry, len(records))
			for i, r := range records {
				entries[i] = newEntry(r, tgt, resolve)
			}
			tp.Lists[k.String()] = entries
		}
		p.Targets = append(p.Targets, tp)
	}
	return p
}

func newEntry(r patch.Patch, tgt *target.Method, resolve bool) Entry {
	e := Entry{
		Method:   r.Method().Name(),
		Owner:    r.Owner(),
		Priority: r.Priority(),
		Index:    r.Index(),
		Before:   r.Before(),
		After:    r.After(),
		Factory:  target.IsFactory(r.Method()),
	}
	if resolve && e.Factory {
		m, err := r.Resolve(tgt)
		if err != nil {
			e.Error = err.Error()
		} else {
			e.Resolved = m.Name()
		}
	}
	return e
}

// WriteText renders the plan for humans.
func (p *Plan) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Shared state %s (%s, %s binding, version %d)\n",
		p.State.Name, p.State.Role, p.State.Binding, p.State.ActualVersion)
	if len(p.Targets) == 0 {
		b.WriteString("No patched targets.\n")
	}
	for _, tp := range p.Targets {
		fmt.Fprintf(&b, "\n%s\n", tp.Target)
		if len(tp.Lists) == 0 {
			b.WriteString("  (no patches)\n")
			continue
		}
		for _, k := range patch.Kinds {
			entries, ok := tp.Lists[k.String()]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %s:\n", k)
			for i, e := range entries {
				fmt.Fprintf(&b, "    %d. %s owner=%s priority=%d index=%d", i+1, e.Method, e.Owner, e.Priority, e.Index)
				if len(e.Before) > 0 {
					fmt.Fprintf(&b, " before=%s", strings.Join(e.Before, ","))
				}
				if len(e.After) > 0 {
					fmt.Fprintf(&b, " after=%s", strings.Join(e.After, ","))
				}
				switch {
				case e.Resolved != "":
					fmt.Fprintf(&b, " -> %s", e.Resolved)
				case e.Error != "":
					fmt.Fprintf(&b, " error=%q", e.Error)
				case e.Factory:
					b.WriteString(" (factory)")
				}
				b.WriteString("\n")
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
