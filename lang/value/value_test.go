package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/value"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		desc string
		v    value.Value
		want bool
	}{
		{"nil", value.Nil, false},
		{"false", value.Bool(false), false},
		{"true", value.Bool(true), true},
		{"zero number", value.Number(0), true},
		{"negative number", value.Number(-1), true},
		{"char", value.Char('a'), true},
	}
	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Truthy())
		})
	}
}

func TestEqual(t *testing.T) {
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.Number(2)))
	require.False(t, value.Equal(value.Number(1), value.Bool(true)))
	require.True(t, value.Equal(value.Nil, value.Nil))
}

func TestStringObjEquality(t *testing.T) {
	a := value.FromObj(value.NewStringObj("hi"))
	b := value.FromObj(value.NewStringObj("hi"))
	c := value.FromObj(value.NewStringObj("bye"))

	require.True(t, value.Equal(a, b), "equal content, even across distinct Obj allocations")
	require.False(t, value.Equal(a, c))
}

func TestTypeName(t *testing.T) {
	require.Equal(t, "nil", value.Nil.TypeName())
	require.Equal(t, "number", value.Number(1).TypeName())
	require.Equal(t, "string", value.FromObj(value.NewStringObj("x")).TypeName())
	require.Equal(t, "table", value.FromObj(value.NewTableObj(value.NewTable(0))).TypeName())
}

func TestNumberString(t *testing.T) {
	cases := []struct {
		n    float64
		want string
	}{
		{0, "0"},
		{3, "3"},
		{-5, "-5"},
		{3.5, "3.5"},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, value.Number(tt.n).String())
	}
}

func TestFromObjPanicsOnNil(t *testing.T) {
	require.Panics(t, func() { value.FromObj(nil) })
}
