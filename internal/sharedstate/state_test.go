package sharedstate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/testutil"
	"github.com/specialistvlad/patchbay/internal/testutil/legacystate"
	"github.com/specialistvlad/patchbay/pkg/discovery"
	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) (context.Context, *testutil.SafeBuffer) {
	t.Helper()
	logger, buf := testutil.NewLogger()
	return ctxlog.WithLogger(context.Background(), logger), buf
}

func TestOpen_FirstCreatesLaterJoins(t *testing.T) {
	ctx, logs := testContext(t)
	name := testutil.UniqueName(t)

	first, err := Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, Creator, first.Role())
	assert.Equal(t, Direct, first.Binding())
	assert.Equal(t, InternalVersion, first.ActualVersion())
	assert.Contains(t, logs.String(), "Shared patch state created.")

	second, err := Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, Joiner, second.Role())
	assert.Equal(t, Direct, second.Binding())
	assert.Equal(t, name, second.Name())

	tgt := target.Declare("pkg.Target", nil)
	fn := target.Declare("pkg.Prefix", func() {})
	require.NoError(t, first.GetOrCreatePatches(tgt).AddPrefix(fn, "a", 0, nil, nil))

	set, ok := second.Patches(tgt)
	require.True(t, ok)
	testutil.AssertMethods(t, set.Prefixes(), "pkg.Prefix")
	assert.Equal(t, []*target.Method{tgt}, second.PatchedTargets())
}

func TestOpen_PatchesOfUnknownTargetIsAbsent(t *testing.T) {
	ctx, _ := testContext(t)
	st, err := Open(ctx, testutil.UniqueName(t))
	require.NoError(t, err)

	set, ok := st.Patches(target.Declare("pkg.Untouched", nil))
	assert.False(t, ok)
	assert.Nil(t, set)
	assert.Empty(t, st.PatchedTargets())
}

func TestOpen_EmptiedSetStaysRegistered(t *testing.T) {
	ctx, _ := testContext(t)
	st, err := Open(ctx, testutil.UniqueName(t))
	require.NoError(t, err)

	tgt := target.Declare("pkg.Target", nil)
	fn := target.Declare("pkg.Postfix", func() {})
	set := st.GetOrCreatePatches(tgt)
	require.NoError(t, set.AddPostfix(fn, "a", 0, nil, nil))
	set.RemovePatch(fn)

	again, ok := st.Patches(tgt)
	require.True(t, ok)
	assert.True(t, patch.Empty(again))
	assert.Equal(t, []*target.Method{tgt}, st.PatchedTargets())
}

func TestState_NilTargetIsRejected(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	st, err := Open(ctx, name)
	require.NoError(t, err)

	set, ok := st.Patches(nil)
	assert.False(t, ok)
	assert.Nil(t, set)

	assert.PanicsWithValue(t, `sharedstate: "`+name+`": cannot patch a nil target`, func() {
		st.GetOrCreatePatches(nil)
	})
	assert.Empty(t, st.PatchedTargets())
}

func TestState_NilTargetIsRejectedWhenAdapted(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, legacystate.Publish(name))
	st, err := Open(ctx, name)
	require.NoError(t, err)
	require.Equal(t, Adapted, st.Binding())

	_, ok := st.Patches(nil)
	assert.False(t, ok)
	assert.Panics(t, func() { st.GetOrCreatePatches(nil) })
	assert.Empty(t, st.PatchedTargets())
}

func TestOpen_JoinsWhenPublisherBypassesLock(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)

	// Another copy publishes between our lookup and our publish.
	winner := &sharedPatchSets{}
	publish = func(n string, v any) error {
		require.NoError(t, discovery.Publish(n, describe(winner)))
		return discovery.Publish(n, v)
	}
	t.Cleanup(func() { publish = discovery.Publish })

	st, err := Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, Joiner, st.Role())
	assert.Equal(t, Direct, st.Binding())

	tgt := target.Declare("pkg.Target", nil)
	fn := target.Declare("pkg.Prefix", func() {})
	require.NoError(t, st.GetOrCreatePatches(tgt).AddPrefix(fn, "a", 0, nil, nil))
	require.NotNil(t, winner.Get(tgt))
	testutil.AssertMethods(t, winner.Get(tgt).Prefixes(), "pkg.Prefix")
}

func TestOpen_PublishFailureIsFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	publish = func(string, any) error { return errors.New("table is read-only") }
	t.Cleanup(func() { publish = discovery.Publish })

	st, err := Open(ctx, name)
	require.ErrorIs(t, err, ErrFatalConfig)
	assert.Nil(t, st)
	assert.Contains(t, err.Error(), "cannot publish shared state: table is read-only")
}

func TestOpen_ConcurrentCreationHasOneCreator(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)

	const n = 16
	states := make([]*State, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			states[i], errs[i] = Open(ctx, name)
		}(i)
	}
	wg.Wait()

	creators := 0
	for i := range states {
		require.NoError(t, errs[i])
		if states[i].Role() == Creator {
			creators++
		}
	}
	assert.Equal(t, 1, creators)

	tgt := target.Declare("pkg.Target", nil)
	want := states[0].GetOrCreatePatches(tgt)
	for _, st := range states[1:] {
		assert.Same(t, want, st.GetOrCreatePatches(tgt))
	}
}

func TestOpen_ConcurrentGetOrCreateAcrossHandles(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	a := MustOpen(ctx, name)
	b := MustOpen(ctx, name)
	tgt := target.Declare("pkg.Target", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var fromA, fromB patch.PatchSet
	go func() { defer wg.Done(); fromA = a.GetOrCreatePatches(tgt) }()
	go func() { defer wg.Done(); fromB = b.GetOrCreatePatches(tgt) }()
	wg.Wait()

	assert.Same(t, fromA, fromB)
}

// scenario drives the same sequence of mutations through any State and
// returns what an observer sees afterwards.
func scenario(t *testing.T, st *State) (map[string][]testutil.Row, []string) {
	t.Helper()
	tgt := target.Declare("net/http.(*Client).Do", nil)
	other := target.Declare("net/http.(*Transport).RoundTrip", nil)
	m := declare("trace.Before", "metrics.Before", "auth.Before", "trace.After", "trace.Rewrite", "auth.Finally")

	set := st.GetOrCreatePatches(tgt)
	require.NoError(t, set.AddPrefix(m["trace.Before"], "com.example.trace", patch.Normal, nil, []string{"com.example.auth"}))
	require.NoError(t, set.AddPrefix(m["metrics.Before"], "com.example.metrics", patch.High, []string{"com.example.trace"}, nil))
	require.NoError(t, set.AddPrefix(m["auth.Before"], "com.example.auth", patch.Normal, nil, nil))
	require.NoError(t, set.AddPostfix(m["trace.After"], "com.example.trace", patch.Last, nil, nil))
	require.NoError(t, set.AddTranspiler(m["trace.Rewrite"], "com.example.trace", patch.First, nil, nil))
	require.NoError(t, set.AddFinalizer(m["auth.Finally"], "com.example.auth", patch.Normal, nil, nil))

	err := set.AddPostfix(target.Generate("dyn", func() {}).Method(), "com.example.trace", 0, nil, nil)
	require.Error(t, err)

	set.RemovePrefix("com.example.metrics")
	set.RemovePatch(m["auth.Finally"])
	set.RemoveTranspiler(patch.AllOwners)
	require.NoError(t, set.AddTranspiler(m["trace.Rewrite"], "com.example.trace", patch.Low, nil, nil))

	_, found := st.Patches(other)
	require.False(t, found)
	st.GetOrCreatePatches(other)

	var keys []string
	for _, k := range st.PatchedTargets() {
		keys = append(keys, k.Name())
	}
	again, ok := st.Patches(tgt)
	require.True(t, ok)
	return testutil.Snapshot(again), keys
}

func TestOpen_JoinerOfLegacyStoreBehavesLikeCreator(t *testing.T) {
	ctx, logs := testContext(t)

	creator, err := Open(ctx, testutil.UniqueName(t))
	require.NoError(t, err)
	wantRows, wantKeys := scenario(t, creator)

	legacyName := testutil.UniqueName(t)
	require.NoError(t, legacystate.Publish(legacyName))
	joiner, err := Open(ctx, legacyName)
	require.NoError(t, err)
	assert.Equal(t, Joiner, joiner.Role())
	assert.Equal(t, Adapted, joiner.Binding())
	assert.Equal(t, InternalVersion, joiner.InternalVersion())
	assert.Equal(t, legacystate.Version, joiner.ActualVersion())
	assert.Contains(t, logs.String(), "Joined shared patch state of a different version.")

	gotRows, gotKeys := scenario(t, joiner)
	if diff := cmp.Diff(wantRows, gotRows); diff != "" {
		t.Errorf("adapted lists differ from canonical (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, wantKeys, gotKeys)
}

func TestOpen_AdaptedRecordsForwardEveryOperation(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, legacystate.Publish(name))
	st, err := Open(ctx, name)
	require.NoError(t, err)

	original := target.Declare("pkg.Target", nil)
	gen := target.Generate("pkg.Target.generated", func() {})
	factory := target.Declare("pkg.Factory", func(m *target.Method) *target.Generated { return gen })
	plain := target.Declare("pkg.Plain", func() {})

	set := st.GetOrCreatePatches(original)
	require.NoError(t, set.AddPrefix(factory, "a", 5, []string{"b"}, []string{"c"}))
	require.NoError(t, set.AddPrefix(plain, "b", 5, nil, nil))
	require.ErrorContains(t, set.AddPrefix(gen.Method(), "a", 0, nil, nil), "generated")

	prefixes := set.Prefixes()
	require.Len(t, prefixes, 2)
	p, q := prefixes[0], prefixes[1]

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, "a", p.Owner())
	assert.Equal(t, 5, p.Priority())
	assert.Equal(t, []string{"b"}, p.Before())
	assert.Equal(t, []string{"c"}, p.After())
	assert.Same(t, factory, p.Method())
	assert.Equal(t, factory.ID(), p.Hash())

	resolved, err := p.Resolve(original)
	require.NoError(t, err)
	assert.Same(t, gen.Method(), resolved)
	resolved, err = q.Resolve(original)
	require.NoError(t, err)
	assert.Same(t, plain, resolved)

	assert.True(t, p.Equals(set.Prefixes()[0]))
	assert.False(t, p.Equals(q))
	assert.Negative(t, p.CompareTo(q))
	assert.Positive(t, q.CompareTo(p))

	canonical, err := newSharedPatch(factory, 9, "z", 0, nil, nil)
	require.NoError(t, err)
	assert.True(t, p.Equals(canonical), "records of different copies compare by callable")
}

func TestBindStore_AdaptsCurrentLayout(t *testing.T) {
	store := &sharedPatchSets{}
	d, err := readDescriptor(describe(store))
	require.NoError(t, err)
	require.True(t, d.matchesCompiled())

	tbl, err := bindStore(d)
	require.NoError(t, err)
	adapted := adaptedStore{t: tbl}

	tgt := target.Declare("pkg.Target", nil)
	m := declare("x", "y")
	set := adapted.getOrInsert(tgt)
	require.NoError(t, set.AddFinalizer(m["x"], "a", 0, nil, nil))
	require.NoError(t, set.AddFinalizer(m["y"], "a", 1, nil, nil))

	testutil.AssertMethods(t, store.Get(tgt).Finalizers(), "y", "x")
	testutil.AssertMethods(t, set.Finalizers(), "y", "x")
	_, ok := adapted.get(target.Declare("pkg.Other", nil))
	assert.False(t, ok)
	assert.Equal(t, []*target.Method{tgt}, adapted.keys())
}

func TestOpen_DescriptorMissingFieldIsFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, map[string]any{
		FieldVersion:   1,
		FieldPatchSets: &sharedPatchSets{},
	}))

	st, err := Open(ctx, name)
	require.Error(t, err)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrFatalConfig)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, name, fatal.Name)
	assert.Contains(t, err.Error(), `"patchSetType" is missing`)
	assert.Contains(t, err.Error(), `"patchType" is missing`)
}

func TestOpen_DescriptorOfWrongShapeIsFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, "not a descriptor"))

	_, err := Open(ctx, name)
	require.ErrorIs(t, err, ErrFatalConfig)
	assert.Contains(t, err.Error(), "want map[string]any")
}

// halfSet has the list accessors of a patch set but none of its mutators.
type halfSet struct{}

func (halfSet) Prefixes() []*sharedPatch    { return nil }
func (halfSet) Postfixes() []*sharedPatch   { return nil }
func (halfSet) Transpilers() []*sharedPatch { return nil }
func (halfSet) Finalizers() []*sharedPatch  { return nil }

type halfStore struct{}

func (halfStore) Get(*target.Method) halfSet         { return halfSet{} }
func (halfStore) GetOrInsert(*target.Method) halfSet { return halfSet{} }
func (halfStore) Keys() []*target.Method             { return nil }

func TestOpen_MissingOperationsAreFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, map[string]any{
		FieldVersion:      InternalVersion,
		FieldPatchSetType: reflect.TypeOf(halfSet{}),
		FieldPatchType:    reflect.TypeOf((*sharedPatch)(nil)),
		FieldPatchSets:    halfStore{},
	}))

	_, err := Open(ctx, name)
	require.ErrorIs(t, err, ErrFatalConfig)
	msg := err.Error()
	for _, op := range []string{"AddPrefix", "RemoveFinalizer", "RemovePatch"} {
		assert.True(t, strings.Contains(msg, "operation "+op+" is missing"), "error should name %s: %s", op, msg)
	}
}

// nilRecordSet is a foreign patch set whose prefix list holds a nil record.
type nilRecordSet struct{ *sharedPatchSet }

func (nilRecordSet) Prefixes() []patch.Patch { return []patch.Patch{nil} }

type nilRecordStore struct{ set nilRecordSet }

func (s nilRecordStore) Get(*target.Method) nilRecordSet         { return s.set }
func (s nilRecordStore) GetOrInsert(*target.Method) nilRecordSet { return s.set }
func (nilRecordStore) Keys() []*target.Method                    { return nil }

func TestOpen_NilForeignRecordIsFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, map[string]any{
		FieldVersion:      InternalVersion,
		FieldPatchSetType: reflect.TypeOf(nilRecordSet{}),
		FieldPatchType:    reflect.TypeOf((*sharedPatch)(nil)),
		FieldPatchSets:    nilRecordStore{set: nilRecordSet{&sharedPatchSet{}}},
	}))
	st, err := Open(ctx, name)
	require.NoError(t, err)
	require.Equal(t, Adapted, st.Binding())

	set := st.GetOrCreatePatches(target.Declare("pkg.Target", nil))
	assert.Empty(t, set.Postfixes())

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		set.Prefixes()
	}()
	err, ok := recovered.(error)
	require.True(t, ok, "panic value should be an error, got %T", recovered)
	assert.ErrorIs(t, err, ErrFatalConfig)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Contains(t, err.Error(), "Prefixes returned a nil record at position 0")
}

func TestOpen_IncompatibleSignatureIsFatal(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, map[string]any{
		FieldVersion:      InternalVersion,
		FieldPatchSetType: reflect.TypeOf((*sharedPatchSet)(nil)),
		FieldPatchType:    reflect.TypeOf((*sharedPatchSet)(nil)),
		FieldPatchSets:    &sharedPatchSets{},
	}))

	_, err := Open(ctx, name)
	require.ErrorIs(t, err, ErrFatalConfig)
	assert.Contains(t, err.Error(), "operation Index is missing")
	assert.Contains(t, err.Error(), "want a slice of")
}

func TestMustOpen_PanicsOnFatalError(t *testing.T) {
	ctx, _ := testContext(t)
	name := testutil.UniqueName(t)
	require.NoError(t, discovery.Publish(name, map[string]any{}))

	assert.PanicsWithError(t, (&FatalError{Name: name, Err: errors.Join(
		errors.New(`descriptor field "version" is missing`),
		errors.New(`descriptor field "patchSetType" is missing`),
		errors.New(`descriptor field "patchType" is missing`),
		errors.New(`descriptor field "patchSets" is missing`),
	)}).Error(), func() { MustOpen(ctx, name) })
}

func TestRoleAndBindingStrings(t *testing.T) {
	assert.Equal(t, "creator", Creator.String())
	assert.Equal(t, "joiner", Joiner.String())
	assert.Equal(t, "direct", Direct.String())
	assert.Equal(t, "adapted", Adapted.String())
}
