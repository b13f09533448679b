package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFactory(t *testing.T) {
	gen := Generate("gen", func() {})
	factoryFn := func(*Method) *Generated { return gen }

	tests := []struct {
		name string
		m    *Method
		want bool
	}{
		{"static factory", Declare("f", factoryFn), true},
		{"no body", Declare("f", nil), false},
		{"plain func", Declare("f", func(*Method) {}), false},
		{"wrong return type", Declare("f", func(*Method) *Method { return nil }), false},
		{"bound to receiver", DeclareBound("f", factoryFn), false},
		{"no parameters", Declare("f", func() *Generated { return gen }), false},
		{"two parameters", Declare("f", func(*Method, int) *Generated { return gen }), false},
		{"wrong parameter type", Declare("f", func(string) *Generated { return gen }), false},
		{"two results", Declare("f", func(*Method) (*Generated, error) { return gen, nil }), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFactory(tc.m))
		})
	}
}

func TestProduce(t *testing.T) {
	original := Declare("pkg.Target", nil)
	gen := Generate("pkg.Target.generated", func() {})
	var got *Method
	factory := Declare("pkg.Factory", func(m *Method) *Generated {
		got = m
		return gen
	})

	m, err := Produce(factory, original)
	require.NoError(t, err)
	assert.Same(t, gen.Method(), m)
	assert.Same(t, original, got)
	assert.True(t, m.IsGenerated())
	assert.Equal(t, "pkg.Target.generated (generated)", m.String())
}

func TestProduce_Errors(t *testing.T) {
	original := Declare("pkg.Target", nil)

	_, err := Produce(Declare("pkg.Plain", func() {}), original)
	require.ErrorIs(t, err, ErrNotFactory)

	empty := Declare("pkg.Empty", func(*Method) *Generated { return nil })
	_, err = Produce(empty, original)
	require.ErrorIs(t, err, ErrNilProduct)
	assert.Contains(t, err.Error(), "pkg.Empty")
}

func TestMethodIdentity(t *testing.T) {
	a := Declare("same", nil)
	b := Declare("same", nil)
	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Nil(t, a.Func())
	assert.Nil(t, a.Type())
	assert.True(t, a.IsStatic())
	assert.False(t, DeclareBound("bound", nil).IsStatic())

	fn := Declare("fn", func(int) string { return "" })
	require.NotNil(t, fn.Type())
	assert.Equal(t, "func(int) string", fn.Type().String())
	assert.NotNil(t, fn.Func())
}

func TestMethod_NilHandle(t *testing.T) {
	var m *Method
	assert.Equal(t, "<nil>", m.Name())
	assert.Equal(t, "<nil>", m.String())
	assert.Zero(t, m.ID())
}

func TestDeclare_PanicsOnNonFunc(t *testing.T) {
	assert.PanicsWithValue(t, `target: "bad" must be a func, got int`, func() { Declare("bad", 42) })
}
