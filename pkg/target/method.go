// Package target defines the handles shared by every participant of the patch
// registry: the identifier of an intercepted callable, the reference to an
// interception callable and the marker for callables generated at runtime.
//
// These types belong to the surrounding interception framework. All copies of
// the registry code in a process must agree on them, which is why they carry no
// registry logic of their own.
package target

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

var nextID atomic.Uint64

// Method is a process-stable handle to one callable. It serves both as the
// identifier of a patched target and as the reference to an interception
// callable. Two handles are equal only if they are the same pointer.
type Method struct {
	id        uint64
	name      string
	fn        reflect.Value
	static    bool
	generated bool
}

// Declare returns a handle for a declared, static callable such as a package
// level function. fn may be nil for declarations whose body lives elsewhere.
func Declare(name string, fn any) *Method {
	return newMethod(name, fn, true, false)
}

// DeclareBound returns a handle for a declared callable bound to a receiver.
// Bound callables are never treated as factories.
func DeclareBound(name string, fn any) *Method {
	return newMethod(name, fn, false, false)
}

func newMethod(name string, fn any, static, generated bool) *Method {
	m := &Method{
		id:        nextID.Add(1),
		name:      name,
		static:    static,
		generated: generated,
	}
	if fn != nil {
		v := reflect.ValueOf(fn)
		if v.Kind() != reflect.Func {
			panic(fmt.Sprintf("target: %q must be a func, got %T", name, fn))
		}
		m.fn = v
	}
	return m
}

// ID returns a number unique to this handle for the life of the process, or
// zero for a nil handle.
func (m *Method) ID() uint64 {
	if m == nil {
		return 0
	}
	return m.id
}

// Name returns the declared name, or "<nil>" for a nil handle.
func (m *Method) Name() string {
	if m == nil {
		return "<nil>"
	}
	return m.name
}

// Func returns the underlying func value, or nil for a body-less declaration.
func (m *Method) Func() any {
	if !m.fn.IsValid() {
		return nil
	}
	return m.fn.Interface()
}

// Type returns the func type of the callable, or nil if it has no body.
func (m *Method) Type() reflect.Type {
	if !m.fn.IsValid() {
		return nil
	}
	return m.fn.Type()
}

// IsStatic reports whether the callable is not bound to a receiver.
func (m *Method) IsStatic() bool { return m.static }

// IsGenerated reports whether the callable was produced at runtime and has no
// stable declaration behind it.
func (m *Method) IsGenerated() bool { return m.generated }

func (m *Method) String() string {
	if m == nil {
		return "<nil>"
	}
	if m.generated {
		return m.name + " (generated)"
	}
	return m.name
}
