package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpunch/gavelscript/lang/value"
)

func TestTableSetGetDelete(t *testing.T) {
	tbl := value.NewTable(0)

	k := value.FromObj(value.NewStringObj("key"))
	_, ok := tbl.Get(k)
	require.False(t, ok)

	tbl.Set(k, value.Number(42))
	got, ok := tbl.Get(k)
	require.True(t, ok)
	require.Equal(t, value.Number(42), got)
	require.Equal(t, 1, tbl.Len())

	tbl.Delete(k)
	_, ok = tbl.Get(k)
	require.False(t, ok)
	require.Equal(t, 0, tbl.Len())
}

func TestTableEntriesSnapshot(t *testing.T) {
	tbl := value.NewTable(0)
	for i := 0; i < 5; i++ {
		tbl.Set(value.Number(float64(i)), value.Number(float64(i*i)))
	}

	entries := tbl.Entries()
	require.Len(t, entries, 5)

	seen := make(map[float64]float64)
	for _, e := range entries {
		seen[e.Key.AsNumber()] = e.Value.AsNumber()
	}
	for i := 0; i < 5; i++ {
		require.Equal(t, float64(i*i), seen[float64(i)])
	}
}
