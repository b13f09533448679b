package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/patchbay/pkg/patch"
)

// Row is the observable content of one patch record.
type Row struct {
	Method   string
	Owner    string
	Priority int
	Index    int
	Before   []string
	After    []string
}

// Snapshot captures the four lists of set, in run order, keyed by kind.
func Snapshot(set patch.PatchSet) map[string][]Row {
	out := make(map[string][]Row, len(patch.Kinds))
	for _, k := range patch.Kinds {
		rows := []Row{}
		for _, p := range patch.List(set, k) {
			rows = append(rows, Row{
				Method:   p.Method().Name(),
				Owner:    p.Owner(),
				Priority: p.Priority(),
				Index:    p.Index(),
				Before:   orNil(p.Before()),
				After:    orNil(p.After()),
			})
		}
		out[k.String()] = rows
	}
	return out
}

// AssertMethods checks that records hold exactly the named callables, in order.
func AssertMethods(t *testing.T, records []patch.Patch, want ...string) {
	t.Helper()
	got := make([]string, 0, len(records))
	for _, p := range records {
		got = append(got, p.Method().Name())
	}
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("patch order mismatch (-want +got):\n%s", diff)
	}
}

func orNil(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
