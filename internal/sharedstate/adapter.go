package sharedstate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/specialistvlad/patchbay/pkg/patch"
	"github.com/specialistvlad/patchbay/pkg/target"
)

var (
	methodType  = reflect.TypeOf((*target.Method)(nil))
	methodsType = reflect.TypeOf([]*target.Method(nil))
	stringType  = reflect.TypeOf("")
	stringsType = reflect.TypeOf([]string(nil))
	intType     = reflect.TypeOf(0)
	boolType    = reflect.TypeOf(false)
	uint64Type  = reflect.TypeOf(uint64(0))
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

var (
	listMethods   = [4]string{"Prefixes", "Postfixes", "Transpilers", "Finalizers"}
	addMethods    = [4]string{"AddPrefix", "AddPostfix", "AddTranspiler", "AddFinalizer"}
	removeMethods = [4]string{"RemovePrefix", "RemovePostfix", "RemoveTranspiler", "RemoveFinalizer"}
)

// binder collects every mismatch found while resolving a type's methods so
// that a fatal error reports all of them at once.
type binder struct {
	errs []error
}

// method resolves name on t and checks its signature, receiver excluded. A nil
// entry in out accepts any type at that position; the caller checks it.
func (b *binder) method(t reflect.Type, name string, in, out []reflect.Type) reflect.Value {
	m, ok := t.MethodByName(name)
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("%s: operation %s is missing", t, name))
		return reflect.Value{}
	}
	ft := m.Type
	if ft.NumIn() != len(in)+1 || ft.NumOut() != len(out) {
		b.errs = append(b.errs, fmt.Errorf("%s: operation %s has signature %s", t, name, ft))
		return reflect.Value{}
	}
	for i, want := range in {
		if ft.In(i+1) != want {
			b.errs = append(b.errs, fmt.Errorf("%s: operation %s parameter %d is %s, want %s", t, name, i, ft.In(i+1), want))
			return reflect.Value{}
		}
	}
	for i, want := range out {
		if want != nil && ft.Out(i) != want {
			b.errs = append(b.errs, fmt.Errorf("%s: operation %s result %d is %s, want %s", t, name, i, ft.Out(i), want))
			return reflect.Value{}
		}
	}
	return m.Func
}

func (b *binder) err() error {
	return errors.Join(b.errs...)
}

// patchTable holds the resolved operations of a foreign patch record type.
type patchTable struct {
	typ                      reflect.Type
	index, owner, priority   reflect.Value
	before, after, method    reflect.Value
	resolve, equals, compare reflect.Value
	hash                     reflect.Value
}

func bindPatch(b *binder, t reflect.Type) *patchTable {
	return &patchTable{
		typ:      t,
		index:    b.method(t, "Index", nil, []reflect.Type{intType}),
		owner:    b.method(t, "Owner", nil, []reflect.Type{stringType}),
		priority: b.method(t, "Priority", nil, []reflect.Type{intType}),
		before:   b.method(t, "Before", nil, []reflect.Type{stringsType}),
		after:    b.method(t, "After", nil, []reflect.Type{stringsType}),
		method:   b.method(t, "Method", nil, []reflect.Type{methodType}),
		resolve:  b.method(t, "Resolve", []reflect.Type{methodType}, []reflect.Type{methodType, errorType}),
		equals:   b.method(t, "Equals", []reflect.Type{anyType}, []reflect.Type{boolType}),
		compare:  b.method(t, "CompareTo", []reflect.Type{anyType}, []reflect.Type{intType}),
		hash:     b.method(t, "Hash", nil, []reflect.Type{uint64Type}),
	}
}

// patchSetTable holds the resolved operations of a foreign patch set type.
type patchSetTable struct {
	typ         reflect.Type
	lists       [4]reflect.Value
	adds        [4]reflect.Value
	removes     [4]reflect.Value
	removePatch reflect.Value
	patches     *patchTable
}

func bindPatchSet(b *binder, t reflect.Type, patches *patchTable) *patchSetTable {
	addIn := []reflect.Type{methodType, stringType, intType, stringsType, stringsType}
	tbl := &patchSetTable{typ: t, patches: patches}
	for k := range listMethods {
		tbl.lists[k] = b.method(t, listMethods[k], nil, []reflect.Type{nil})
		if tbl.lists[k].IsValid() {
			b.checkList(t, listMethods[k], tbl.lists[k].Type().Out(0), patches.typ)
		}
		tbl.adds[k] = b.method(t, addMethods[k], addIn, []reflect.Type{errorType})
		tbl.removes[k] = b.method(t, removeMethods[k], []reflect.Type{stringType}, nil)
	}
	tbl.removePatch = b.method(t, "RemovePatch", []reflect.Type{methodType}, nil)
	return tbl
}

// checkList accepts a slice of the patch type itself or of an interface the
// patch type implements.
func (b *binder) checkList(t reflect.Type, name string, got, patchType reflect.Type) {
	if got.Kind() == reflect.Slice {
		elem := got.Elem()
		if elem == patchType {
			return
		}
		if elem.Kind() == reflect.Interface && patchType.Implements(elem) {
			return
		}
	}
	b.errs = append(b.errs, fmt.Errorf("%s: operation %s returns %s, want a slice of %s", t, name, got, patchType))
}

// storeTable holds the resolved operations of a foreign store.
type storeTable struct {
	store                  reflect.Value
	get, getOrInsert, keys reflect.Value
	sets                   *patchSetTable
}

// bindStore resolves every operation the capability contract needs from d.
func bindStore(d *descriptor) (*storeTable, error) {
	b := &binder{}
	patches := bindPatch(b, d.patchType)
	sets := bindPatchSet(b, d.patchSetType, patches)
	st := d.store.Type()
	tbl := &storeTable{
		store:       d.store,
		get:         b.method(st, "Get", []reflect.Type{methodType}, []reflect.Type{d.patchSetType}),
		getOrInsert: b.method(st, "GetOrInsert", []reflect.Type{methodType}, []reflect.Type{d.patchSetType}),
		keys:        b.method(st, "Keys", nil, []reflect.Type{methodsType}),
		sets:        sets,
	}
	if err := b.err(); err != nil {
		return nil, err
	}
	return tbl, nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return !v.IsValid()
}

func anyValue(x any) reflect.Value {
	v := reflect.New(anyType).Elem()
	if x != nil {
		v.Set(reflect.ValueOf(x))
	}
	return v
}

// adaptedStore forwards the backend operations to a foreign store.
type adaptedStore struct {
	t *storeTable
}

func (a adaptedStore) get(m *target.Method) (patch.PatchSet, bool) {
	v := a.t.get.Call([]reflect.Value{a.t.store, reflect.ValueOf(m)})[0]
	if isNil(v) {
		return nil, false
	}
	return &patchSetAdapter{v: v, t: a.t.sets}, true
}

func (a adaptedStore) getOrInsert(m *target.Method) patch.PatchSet {
	v := a.t.getOrInsert.Call([]reflect.Value{a.t.store, reflect.ValueOf(m)})[0]
	return &patchSetAdapter{v: v, t: a.t.sets}
}

func (a adaptedStore) keys() []*target.Method {
	return a.t.keys.Call([]reflect.Value{a.t.store})[0].Interface().([]*target.Method)
}

// patchSetAdapter implements patch.PatchSet over a foreign patch set.
type patchSetAdapter struct {
	v reflect.Value
	t *patchSetTable
}

func (a *patchSetAdapter) Prefixes() []patch.Patch    { return a.list(patch.Prefix) }
func (a *patchSetAdapter) Postfixes() []patch.Patch   { return a.list(patch.Postfix) }
func (a *patchSetAdapter) Transpilers() []patch.Patch { return a.list(patch.Transpiler) }
func (a *patchSetAdapter) Finalizers() []patch.Patch  { return a.list(patch.Finalizer) }

func (a *patchSetAdapter) AddPrefix(m *target.Method, owner string, priority int, before, after []string) error {
	return a.add(patch.Prefix, m, owner, priority, before, after)
}

func (a *patchSetAdapter) AddPostfix(m *target.Method, owner string, priority int, before, after []string) error {
	return a.add(patch.Postfix, m, owner, priority, before, after)
}

func (a *patchSetAdapter) AddTranspiler(m *target.Method, owner string, priority int, before, after []string) error {
	return a.add(patch.Transpiler, m, owner, priority, before, after)
}

func (a *patchSetAdapter) AddFinalizer(m *target.Method, owner string, priority int, before, after []string) error {
	return a.add(patch.Finalizer, m, owner, priority, before, after)
}

func (a *patchSetAdapter) RemovePrefix(owner string)     { a.remove(patch.Prefix, owner) }
func (a *patchSetAdapter) RemovePostfix(owner string)    { a.remove(patch.Postfix, owner) }
func (a *patchSetAdapter) RemoveTranspiler(owner string) { a.remove(patch.Transpiler, owner) }
func (a *patchSetAdapter) RemoveFinalizer(owner string)  { a.remove(patch.Finalizer, owner) }

func (a *patchSetAdapter) RemovePatch(m *target.Method) {
	a.t.removePatch.Call([]reflect.Value{a.v, reflect.ValueOf(m)})
}

func (a *patchSetAdapter) list(k patch.Kind) []patch.Patch {
	out := a.t.lists[k].Call([]reflect.Value{a.v})[0]
	records := make([]patch.Patch, 0, out.Len())
	for i := 0; i < out.Len(); i++ {
		e := out.Index(i)
		if e.Kind() == reflect.Interface {
			e = e.Elem()
		}
		if isNil(e) {
			panic(&FatalError{Name: a.t.typ.String(), Err: fmt.Errorf("%s returned a nil record at position %d", listMethods[k], i)})
		}
		if e.Type() != a.t.patches.typ {
			panic(&FatalError{Name: a.t.typ.String(), Err: fmt.Errorf("%s returned a %s record, want %s", listMethods[k], e.Type(), a.t.patches.typ)})
		}
		records = append(records, &patchAdapter{v: e, t: a.t.patches})
	}
	patch.Sort(records)
	return records
}

func (a *patchSetAdapter) add(k patch.Kind, m *target.Method, owner string, priority int, before, after []string) error {
	out := a.t.adds[k].Call([]reflect.Value{
		a.v,
		reflect.ValueOf(m),
		reflect.ValueOf(owner),
		reflect.ValueOf(priority),
		reflect.ValueOf(before),
		reflect.ValueOf(after),
	})
	if isNil(out[0]) {
		return nil
	}
	return out[0].Interface().(error)
}

func (a *patchSetAdapter) remove(k patch.Kind, owner string) {
	a.t.removes[k].Call([]reflect.Value{a.v, reflect.ValueOf(owner)})
}

// patchAdapter implements patch.Patch over a foreign patch record.
type patchAdapter struct {
	v reflect.Value
	t *patchTable
}

func (a *patchAdapter) call(fn reflect.Value, args ...reflect.Value) []reflect.Value {
	return fn.Call(append([]reflect.Value{a.v}, args...))
}

func (a *patchAdapter) Index() int       { return a.call(a.t.index)[0].Interface().(int) }
func (a *patchAdapter) Owner() string    { return a.call(a.t.owner)[0].Interface().(string) }
func (a *patchAdapter) Priority() int    { return a.call(a.t.priority)[0].Interface().(int) }
func (a *patchAdapter) Before() []string { return a.call(a.t.before)[0].Interface().([]string) }
func (a *patchAdapter) After() []string  { return a.call(a.t.after)[0].Interface().([]string) }
func (a *patchAdapter) Hash() uint64     { return a.call(a.t.hash)[0].Interface().(uint64) }

func (a *patchAdapter) Method() *target.Method {
	return a.call(a.t.method)[0].Interface().(*target.Method)
}

func (a *patchAdapter) Resolve(original *target.Method) (*target.Method, error) {
	out := a.call(a.t.resolve, reflect.ValueOf(original))
	m, _ := out[0].Interface().(*target.Method)
	if isNil(out[1]) {
		return m, nil
	}
	return m, out[1].Interface().(error)
}

func (a *patchAdapter) Equals(other any) bool {
	return a.call(a.t.equals, anyValue(unwrap(other)))[0].Bool()
}

func (a *patchAdapter) CompareTo(other any) int {
	return int(a.call(a.t.compare, anyValue(unwrap(other)))[0].Int())
}

// unwrap hands the foreign record behind an adapter to the foreign side, which
// only recognizes its own values.
func unwrap(x any) any {
	if a, ok := x.(*patchAdapter); ok {
		return a.v.Interface()
	}
	return x
}
