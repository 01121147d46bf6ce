package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/internal/stdlib"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
	"github.com/cpunch/gavelscript/lang/vm"
)

func run(t *testing.T, src string) *vm.State {
	t.Helper()
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, src)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	stdlib.Install(st)

	_, err = st.RunFunction(fp, nil)
	if err != nil && st.Status() == vm.StatusRaised {
		t.Fatalf("unexpected objection: %s", vm.FormatObjection(st.LastObjection()))
	}
	require.NoError(t, err)
	return st
}

func TestTypeOf(t *testing.T) {
	st := run(t, `
global a = type(1)
global b = type("x")
global c = type(nil)
global d = type(true)
`)
	for name, want := range map[string]string{"a": "number", "b": "string", "c": "nil", "d": "boolean"} {
		v, ok := st.GetGlobal(name)
		require.True(t, ok)
		require.Equal(t, want, v.AsObj().Str())
	}
}

func TestLenOfStringAndTable(t *testing.T) {
	st := run(t, `
global s = len("hello")
global t = len({1, 2, 3})
`)
	s, _ := st.GetGlobal("s")
	require.Equal(t, float64(5), s.AsNumber())
	tv, _ := st.GetGlobal("t")
	require.Equal(t, float64(3), tv.AsNumber())
}

func TestToStringAndToNumber(t *testing.T) {
	st := run(t, `
global s = tostring(42)
global n = tonumber("3.5")
global bad = tonumber("not-a-number")
`)
	s, _ := st.GetGlobal("s")
	require.Equal(t, "42", s.AsObj().Str())
	n, _ := st.GetGlobal("n")
	require.Equal(t, 3.5, n.AsNumber())
	bad, _ := st.GetGlobal("bad")
	require.Equal(t, value.KNil, bad.Kind())
}

func TestTableInsertAppendsAtNextIndex(t *testing.T) {
	st := run(t, `
global t = {10, 20}
table_insert(t, 30)
global third = t[2]
global n = len(t)
`)
	third, _ := st.GetGlobal("third")
	require.Equal(t, float64(30), third.AsNumber())
	n, _ := st.GetGlobal("n")
	require.Equal(t, float64(3), n.AsNumber())
}

func TestTableRemoveReturnsRemovedValue(t *testing.T) {
	st := run(t, `
global t = {a: 1, b: 2}
global removed = table_remove(t, "a")
global after = len(t)
`)
	removed, _ := st.GetGlobal("removed")
	require.Equal(t, float64(1), removed.AsNumber())
	after, _ := st.GetGlobal("after")
	require.Equal(t, float64(1), after.AsNumber())
}

func TestTableKeysCollectsEveryKey(t *testing.T) {
	st := run(t, `
global t = {a: 1, b: 2}
global keys = table_keys(t)
global n = len(keys)
`)
	n, _ := st.GetGlobal("n")
	require.Equal(t, float64(2), n.AsNumber())
}

func TestLenOfNumberRaisesObjection(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `len(1)`)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	stdlib.Install(st)

	_, err = st.RunFunction(fp, nil)
	require.Error(t, err)
	require.Equal(t, vm.StatusRaised, st.Status())
	require.Contains(t, vm.FormatObjection(st.LastObjection()), "attempt to get length of a number value")
}
