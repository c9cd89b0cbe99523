package rgsw

import (
	"testing"

	"github.com/Pro7ech/spiralpir/ring"
	"github.com/stretchr/testify/require"
)

func TestSetColumnPair(t *testing.T) {
	r, err := ring.NewRing(16, []uint64{65537})
	require.NoError(t, err)

	c := New(r, 3)
	require.Equal(t, 2, c.Rows)
	require.Equal(t, 6, c.Cols)

	value := ring.NewMatrixRaw(r, 2, 1)
	value.Data[0] = 7
	skValue := ring.NewMatrixRaw(r, 2, 1)
	skValue.Data[0] = 9

	c.SetColumnPair(1, value, skValue)
	require.Equal(t, uint64(7), c.GetPoly(0, 3)[0])
	require.Equal(t, uint64(9), c.GetPoly(0, 2)[0])
}
