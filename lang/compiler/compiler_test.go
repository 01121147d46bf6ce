package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/compiler"
	"github.com/cpunch/gavelscript/lang/gc"
	"github.com/cpunch/gavelscript/lang/value"
)

func TestCompileValidPrograms(t *testing.T) {
	cases := []struct {
		desc string
		src  string
	}{
		{"empty program", ``},
		{"local declaration", `local x = 1`},
		{"local without initializer", `local x`},
		{"global declaration", `global x = 1`},
		{"var at top level is global", `var x = 1`},
		{"var inside a function is local", `
function f()
  var x = 1
  return x
end`},
		{"if/elseif/else", `
if (true)
elseif (false)
else
end`},
		{"while loop", `while (false) do end`},
		{"for-each loop", `for (k, v in {1, 2}) do end`},
		{"function declaration and call", `
function add(a, b)
  return a + b
end
add(1, 2)`},
		{"anonymous function literal", `local f = function(x) return x end`},
		{"nested closures", `
function outer()
  local x = 1
  return function()
    return x
  end
end`},
		{"table literal mixed keys", `local t = {1, 2, x: 3}`},
		{"string concat", `local s = "a" .. "b"`},
		{"comparisons", `local b = (1 < 2) and (2 <= 2) and (3 > 2) and (3 >= 3) and (1 != 2)`},
		{"prefix and postfix increment", `
local x = 1
++x
x++
`},
		{"do block scoping", `
do
  local x = 1
end`},
	}

	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			heap := gc.New(gc.Options{})
			_, err := compiler.Compile(heap, tt.src)
			require.NoError(t, err)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want string
	}{
		{"unterminated expression", `local x = `, "expression expected"},
		{"self-referencing initializer", `local x = x`, "cannot reference x in its own initializer"},
		{"missing end", `if (true) do`, "expected 'end'"},
		{"missing paren", `while true) do end`, "expected '('"},
	}

	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			heap := gc.New(gc.Options{})
			_, err := compiler.Compile(heap, tt.src)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestMainChunkEndsWithEnd verifies every compiled program terminates its
// top-level chunk with an end opcode, the marker run() relies on to stop
// cleanly when control falls off the bottom of a program.
func TestMainChunkEndsWithEnd(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `local x = 1`)
	require.NoError(t, err)

	ch := fp.Chunk.(*chunk.Chunk)
	require.NotEmpty(t, ch.Code)
	require.Equal(t, chunk.OpEnd, ch.Code[len(ch.Code)-1].Op())
}

// TestLocalDeclarationDoesNotEmitExtraPop checks that a local declaration's
// initializer becomes the local's permanent slot: compiling a lone local
// declaration emits no pop instruction.
func TestLocalDeclarationDoesNotEmitExtraPop(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `local x = 1`)
	require.NoError(t, err)

	ch := fp.Chunk.(*chunk.Chunk)
	for _, ins := range ch.Code {
		require.NotEqual(t, chunk.OpPop, ins.Op(), "a lone local declaration must not pop its own slot")
	}
}

func TestFunctionProtoArityAndUpvalues(t *testing.T) {
	heap := gc.New(gc.Options{})
	fp, err := compiler.Compile(heap, `
function outer()
  local x = 1
  local y = 2
  return function()
    return x + y
  end
end
`)
	require.NoError(t, err)

	ch := fp.Chunk.(*chunk.Chunk)
	var inner *value.FunctionProto
	for _, k := range ch.Constants {
		if k.Kind() == value.KObject && k.AsObj().Kind == value.OFunction {
			outer := k.AsObj().Function()
			require.Equal(t, 0, outer.Arity)
			innerCh := outer.Chunk.(*chunk.Chunk)
			for _, ik := range innerCh.Constants {
				if ik.Kind() == value.KObject && ik.AsObj().Kind == value.OFunction {
					inner = ik.AsObj().Function()
				}
			}
		}
	}
	require.NotNil(t, inner, "nested function literal must appear as a constant")
	require.Equal(t, 2, inner.NumUpvals, "closure captures both x and y")
}
