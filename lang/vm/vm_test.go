package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
	"github.com/cpunch/gavelscript/lang/vm"
)

// run compiles src and executes it as a top-level program, failing the test
// on a compile error or an uncaught runtime Objection.
func run(t *testing.T, src string) *vm.State {
	t.Helper()
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, src)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	_, err = st.RunFunction(fp, nil)
	if err != nil && st.Status() == vm.StatusRaised {
		t.Fatalf("unexpected objection: %s", vm.FormatObjection(st.LastObjection()))
	}
	require.NoError(t, err)
	return st
}

func globalNumber(t *testing.T, st *vm.State, name string) float64 {
	t.Helper()
	v, ok := st.GetGlobal(name)
	require.True(t, ok, "global %q not set", name)
	require.Equal(t, value.KNumber, v.Kind())
	return v.AsNumber()
}

func TestWhileLoopCountsToZero(t *testing.T) {
	st := run(t, `
global n = 3
while (n > 0) do
  n = n - 1
end
`)
	require.Equal(t, float64(0), globalNumber(t, st, "n"))
}

func TestClosureCounterCapturesUpvalue(t *testing.T) {
	st := run(t, `
function make()
  local count = 0
  local inc = function()
    count = count + 1
    return count
  end
  return inc
end

global counter = make()
global a = counter()
global b = counter()
global other = make()
global c = other()
`)
	require.Equal(t, float64(1), globalNumber(t, st, "a"))
	require.Equal(t, float64(2), globalNumber(t, st, "b"))
	require.Equal(t, float64(1), globalNumber(t, st, "c"), "a fresh make() call gets its own upvalue")
}

func TestTableIndexAndAssignment(t *testing.T) {
	st := run(t, `
global t = {a: 1, b: 2}
t.a = 99
global readBack = t.a
global viaBracket = t["b"]
`)
	require.Equal(t, float64(99), globalNumber(t, st, "readBack"))
	require.Equal(t, float64(2), globalNumber(t, st, "viaBracket"))
}

func TestForEachOverTable(t *testing.T) {
	st := run(t, `
global t = {10, 20, 30}
global sum = 0
for (k, v in t) do
  sum = sum + v
end
`)
	require.Equal(t, float64(60), globalNumber(t, st, "sum"))
}

func TestUncaughtObjectionCarriesCallTrace(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `
function h()
  return undefined_name
end
function g()
  return h()
end
function f()
  return g()
end
f()
`)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	_, err = st.RunFunction(fp, nil)
	require.Error(t, err)
	require.Equal(t, vm.StatusRaised, st.Status())

	trace := st.LastObjection().AsObj().Objection().Trace
	var names []string
	for _, fr := range trace {
		names = append(names, fr.FuncName)
	}
	require.Equal(t, []string{"h", "g", "f", "_MAIN"}, names)
}

func TestArityMismatchRaisesObjection(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `
function needsOne(x)
  return x
end
needsOne()
`)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	_, err = st.RunFunction(fp, nil)
	require.Error(t, err)
	require.Equal(t, vm.StatusRaised, st.Status())
	require.Contains(t, vm.FormatObjection(st.LastObjection()), "expected 1 arguments, got 0")
}

func TestStringInterningIdentityAcrossConstants(t *testing.T) {
	heap := gc.New(gc.Options{InternStrings: true})
	fp, err := compiler.Compile(heap, `
global a = "shared"
global b = "shared"
`)
	require.NoError(t, err)

	st := vm.New(heap, vm.Limits{})
	_, err = st.RunFunction(fp, nil)
	require.NoError(t, err)

	a, _ := st.GetGlobal("a")
	b, _ := st.GetGlobal("b")
	require.Same(t, a.AsObj(), b.AsObj())
}

func TestGCSoundnessAfterExecution(t *testing.T) {
	// A forced collection once the program has run (globals, the root set
	// a State always exposes, now holds every value the program produced)
	// must leave every surviving binding exactly as it was.
	st := run(t, `
global n = 3
while (n > 0) do
  n = n - 1
end
global t = {a: 1, b: 2}
`)
	st.Heap.Collect()

	require.Equal(t, float64(0), globalNumber(t, st, "n"))
	tv, ok := st.GetGlobal("t")
	require.True(t, ok)
	a, ok := tv.AsObj().Table().Get(st.Heap.NewString("a"))
	require.True(t, ok)
	require.Equal(t, value.Number(1), a)
}
