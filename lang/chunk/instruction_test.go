package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/chunk"
)

func TestEncodeIRoundTrip(t *testing.T) {
	ins := chunk.EncodeI(chunk.OpEnd)
	require.Equal(t, chunk.OpEnd, ins.Op())
	require.Equal(t, uint32(0), ins.Ax())
}

func TestEncodeIAxRoundTrip(t *testing.T) {
	ins := chunk.EncodeIAx(chunk.OpLoadConstant, 12345)
	require.Equal(t, chunk.OpLoadConstant, ins.Op())
	require.Equal(t, uint32(12345), ins.Ax())
}

func TestEncodeIAxsRoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 1000, -1000}
	for _, want := range cases {
		ins := chunk.EncodeIAxs(chunk.OpJump, want)
		require.Equal(t, want, ins.Axs(), "signed argument %d", want)
	}
}

func TestSwapEndian(t *testing.T) {
	ins := chunk.EncodeIAx(chunk.OpLoadConstant, 1)
	swapped := ins.SwapEndian()
	require.NotEqual(t, ins, swapped)
	require.Equal(t, ins, swapped.SwapEndian(), "swap must be its own inverse")
}
