package patch

import (
	"fmt"

	"github.com/specialistvlad/patchbay/pkg/target"
)

// AllOwners is the owner wildcard accepted by the Remove operations.
const AllOwners = "*"

// Named priority levels. Any integer is a valid priority.
const (
	Last             = 0
	VeryLow          = 100
	Low              = 200
	LowerThanNormal  = 300
	Normal           = 400
	HigherThanNormal = 500
	High             = 600
	VeryHigh         = 700
	First            = 800
)

// Priorities maps the lower-case names of the priority levels to their values.
var Priorities = map[string]int{
	"last":               Last,
	"very_low":           VeryLow,
	"low":                Low,
	"lower_than_normal":  LowerThanNormal,
	"normal":             Normal,
	"higher_than_normal": HigherThanNormal,
	"high":               High,
	"very_high":          VeryHigh,
	"first":              First,
}

// Patch is one interception contributed by one owner.
type Patch interface {
	// Index is the position the record was appended at. It never changes.
	Index() int
	Owner() string
	Priority() int
	Before() []string
	After() []string
	// Method is the registered callable, which may be a factory.
	Method() *target.Method
	// Resolve returns the callable to run for original, invoking the
	// registered callable first if it is a factory.
	Resolve(original *target.Method) (*target.Method, error)
	// Equals reports whether other refers to the same callable.
	Equals(other any) bool
	// CompareTo orders the receiver against other: negative runs first.
	CompareTo(other any) int
	// Hash is consistent with Equals.
	Hash() uint64
}

// PatchSet holds the four patch lists of one target. List accessors return
// sorted copies; mutating them has no effect on the set.
type PatchSet interface {
	Prefixes() []Patch
	Postfixes() []Patch
	Transpilers() []Patch
	Finalizers() []Patch

	AddPrefix(m *target.Method, owner string, priority int, before, after []string) error
	AddPostfix(m *target.Method, owner string, priority int, before, after []string) error
	AddTranspiler(m *target.Method, owner string, priority int, before, after []string) error
	AddFinalizer(m *target.Method, owner string, priority int, before, after []string) error

	// The Remove operations drop every record of owner, or all records of
	// the list when owner is AllOwners.
	RemovePrefix(owner string)
	RemovePostfix(owner string)
	RemoveTranspiler(owner string)
	RemoveFinalizer(owner string)

	// RemovePatch drops the record for m from whichever list holds it.
	RemovePatch(m *target.Method)
}

// Kind names one of the four lists of a PatchSet.
type Kind int

const (
	Prefix Kind = iota
	Postfix
	Transpiler
	Finalizer
)

// Kinds lists every Kind in the order lists are conventionally reported.
var Kinds = []Kind{Prefix, Postfix, Transpiler, Finalizer}

func (k Kind) String() string {
	switch k {
	case Prefix:
		return "prefix"
	case Postfix:
		return "postfix"
	case Transpiler:
		return "transpiler"
	case Finalizer:
		return "finalizer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown patch kind %q: want prefix, postfix, transpiler or finalizer", s)
}

// List returns the sorted list of kind k.
func List(set PatchSet, k Kind) []Patch {
	switch k {
	case Prefix:
		return set.Prefixes()
	case Postfix:
		return set.Postfixes()
	case Transpiler:
		return set.Transpilers()
	case Finalizer:
		return set.Finalizers()
	}
	panic(fmt.Sprintf("patch: invalid kind %d", int(k)))
}

// Add appends m to the list of kind k.
func Add(set PatchSet, k Kind, m *target.Method, owner string, priority int, before, after []string) error {
	switch k {
	case Prefix:
		return set.AddPrefix(m, owner, priority, before, after)
	case Postfix:
		return set.AddPostfix(m, owner, priority, before, after)
	case Transpiler:
		return set.AddTranspiler(m, owner, priority, before, after)
	case Finalizer:
		return set.AddFinalizer(m, owner, priority, before, after)
	}
	panic(fmt.Sprintf("patch: invalid kind %d", int(k)))
}

// Remove drops the records of owner from the list of kind k.
func Remove(set PatchSet, k Kind, owner string) {
	switch k {
	case Prefix:
		set.RemovePrefix(owner)
	case Postfix:
		set.RemovePostfix(owner)
	case Transpiler:
		set.RemoveTranspiler(owner)
	case Finalizer:
		set.RemoveFinalizer(owner)
	default:
		panic(fmt.Sprintf("patch: invalid kind %d", int(k)))
	}
}

// Empty reports whether all four lists of set are empty.
func Empty(set PatchSet) bool {
	for _, k := range Kinds {
		if len(List(set, k)) > 0 {
			return false
		}
	}
	return true
}
