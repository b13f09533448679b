package target

import (
	"errors"
	"fmt"
	"reflect"
)

// Generated marks a callable synthesized at runtime. A func whose declared
// return type is *Generated is a candidate factory.
type Generated struct {
	method *Method
}

// Generate wraps fn as a transient callable. The result can be returned from
// a factory but cannot be registered as a patch on its own.
func Generate(name string, fn any) *Generated {
	return &Generated{method: newMethod(name, fn, true, true)}
}

// Method returns the handle of the generated callable.
func (g *Generated) Method() *Method { return g.method }

var (
	// ErrNotFactory is returned by Produce for callables that fail IsFactory.
	ErrNotFactory = errors.New("callable is not a factory")
	// ErrNilProduct is returned when a factory produced nothing.
	ErrNilProduct = errors.New("factory returned no callable")
)

var (
	methodType    = reflect.TypeOf((*Method)(nil))
	generatedType = reflect.TypeOf((*Generated)(nil))
)

// IsFactory reports whether m must be invoked with a target to obtain the
// actual interception callable. The checks run in order and any failure means
// m is used as-is: the return type is *Generated, m is static, it takes one
// parameter and that parameter is *Method.
func IsFactory(m *Method) bool {
	t := m.Type()
	if t == nil || t.NumOut() != 1 || t.Out(0) != generatedType {
		return false
	}
	if !m.IsStatic() {
		return false
	}
	if t.NumIn() != 1 {
		return false
	}
	return t.In(0) == methodType
}

// Produce invokes the factory m with original and returns the handle of the
// callable it generated.
func Produce(m *Method, original *Method) (*Method, error) {
	if !IsFactory(m) {
		return nil, fmt.Errorf("%s: %w", m, ErrNotFactory)
	}
	out := m.fn.Call([]reflect.Value{reflect.ValueOf(original)})
	g, _ := out[0].Interface().(*Generated)
	if g == nil || g.method == nil {
		return nil, fmt.Errorf("factory %s for %s: %w", m, original, ErrNilProduct)
	}
	return g.method, nil
}
