package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/bytecode"
	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
	"github.com/cpunch/gavelscript/lang/vm"
)

func compileProgram(t *testing.T, heap *gc.Heap, src string) *value.FunctionProto {
	t.Helper()
	fp, err := compiler.Compile(heap, src)
	require.NoError(t, err)
	return fp
}

func TestDumpUndumpRoundTrip(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `
function add(a, b)
  return a + b
end
global result = add(1, 2)
global s = "hello"
`)

	data, err := bytecode.Dump(fp)
	require.NoError(t, err)

	heap2 := gc.New(gc.Options{})
	loaded, err := bytecode.Undump(heap2, data)
	require.NoError(t, err)

	st := vm.New(heap2, vm.Limits{})
	_, err = st.RunFunction(loaded, nil)
	require.NoError(t, err)

	v, ok := st.GetGlobal("result")
	require.True(t, ok)
	require.Equal(t, float64(3), v.AsNumber())

	s, ok := st.GetGlobal("s")
	require.True(t, ok)
	require.Equal(t, "hello", s.AsObj().Str())
}

func TestUndumpRejectsBadMagic(t *testing.T) {
	heap := gc.New(gc.Options{})
	_, err := bytecode.Undump(heap, []byte("not a gavelscript dump at all"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad magic")
}

func TestUndumpRejectsUnsupportedVersion(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `local x = 1`)
	data, err := bytecode.Dump(fp)
	require.NoError(t, err)

	tampered := append([]byte(nil), data...)
	tampered[5] = 0x7F // version byte
	_, err = bytecode.Undump(heap, tampered)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported version")
}

func TestUndumpRejectsTruncatedStream(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `local x = 1`)
	data, err := bytecode.Dump(fp)
	require.NoError(t, err)

	_, err = bytecode.Undump(heap, data[:len(data)-2])
	require.Error(t, err)
}

// TestDumpEndianByteIsStable checks that the header's endian byte (byte
// index 6, after the 5-byte magic and the version byte) reflects this host
// consistently across independent dumps of the same program, the property
// Undump's swap decision on a foreign host depends on.
func TestDumpEndianByteIsStable(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `global n = 42`)

	data1, err := bytecode.Dump(fp)
	require.NoError(t, err)
	data2, err := bytecode.Dump(fp)
	require.NoError(t, err)

	require.Equal(t, data1[6], data2[6])
	require.Contains(t, []byte{0, 1}, data1[6])
}

func TestDumpRejectsUnserializableConstant(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `local x = 1`)

	ch := fp.Chunk.(*chunk.Chunk)
	ch.AddConstant(heap.NewCFunction(func(h value.Heap, args []value.Value) (value.Value, error) {
		return value.Nil, nil
	}))

	_, err := bytecode.Dump(fp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not serializable")
}

func TestNestedFunctionConstantsRoundTrip(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp := compileProgram(t, heap, `
function outer()
  local x = 1
  return function()
    return x
  end
end
global f = outer()
global v = f()
`)
	data, err := bytecode.Dump(fp)
	require.NoError(t, err)

	heap2 := gc.New(gc.Options{})
	loaded, err := bytecode.Undump(heap2, data)
	require.NoError(t, err)

	st := vm.New(heap2, vm.Limits{})
	_, err = st.RunFunction(loaded, nil)
	require.NoError(t, err)

	v, ok := st.GetGlobal("v")
	require.True(t, ok)
	require.Equal(t, float64(1), v.AsNumber())
}
