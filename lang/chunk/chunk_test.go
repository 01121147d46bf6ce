package chunk_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/chunk"
	"github.com/cpunch/gavelscript/lang/value"
)

func TestChunkEmitAndPatch(t *testing.T) {
	c := chunk.New()
	addr := c.Emit(chunk.EncodeIAxs(chunk.OpJump, 0), 1)
	require.Equal(t, 0, addr)
	require.Equal(t, 1, c.LineAt(addr))

	c.Patch(addr, chunk.EncodeIAxs(chunk.OpJump, 5))
	require.Equal(t, int32(5), c.Code[addr].Axs())
}

func TestChunkConstantAndIdentifierPools(t *testing.T) {
	c := chunk.New()
	idx := c.AddConstant(value.Number(7))
	require.Equal(t, 0, idx)
	require.Equal(t, value.Number(7), c.Constants[idx])

	name := value.FromObj(value.NewStringObj("x"))
	iidx := c.AddIdentifier(name)
	require.Equal(t, 0, iidx)
	require.Len(t, c.ChunkRoots(), 2)
}

func TestLineAtOutOfRange(t *testing.T) {
	c := chunk.New()
	require.Equal(t, 0, c.LineAt(-1))
	require.Equal(t, 0, c.LineAt(99))
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	c := chunk.New()
	idx := c.AddConstant(value.Number(1))
	c.Emit(chunk.EncodeIAx(chunk.OpLoadConstant, uint32(idx)), 1)
	c.Emit(chunk.EncodeIAx(chunk.OpPop, 1), 1)
	c.Emit(chunk.EncodeI(chunk.OpEnd), 2)

	var buf bytes.Buffer
	chunk.Disassemble(&buf, "test", c)
	require.Contains(t, buf.String(), "load-constant")
	require.Contains(t, buf.String(), "== test ==")
}
