package gadget

import (
	"testing"

	"github.com/Pro7ech/spiralpir/ring"
	"github.com/stretchr/testify/require"
)

func TestBuildShape(t *testing.T) {
	r, err := ring.NewRing(16, []uint64{65537})
	require.NoError(t, err)

	m := Build(r, 2, 6)
	require.Equal(t, 2, m.Rows)
	require.Equal(t, 6, m.Cols)

	bitsPer := BitsPer(r, 3)
	for col := 0; col < 6; col++ {
		row := col % 2
		digit := col / 2
		for r2 := 0; r2 < 2; r2++ {
			poly := m.GetPoly(r2, col)
			if r2 == row {
				require.Equal(t, uint64(1)<<uint(bitsPer*digit), poly[0])
			} else {
				require.Equal(t, uint64(0), poly[0])
			}
		}
	}
}

func TestAutomorphismIdentity(t *testing.T) {
	r, err := ring.NewRing(16, []uint64{65537})
	require.NoError(t, err)

	m := ring.NewMatrixRaw(r, 1, 1)
	for i := range m.Data {
		m.Data[i] = uint64(i + 1)
	}
	out := Automorphism(m, 1)
	require.Equal(t, m.Data, out.Data)
}
