package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T, dbDim2 int) *Params {
	t.Helper()
	p, err := New(Params{
		PolyLen:    2048,
		N:          2,
		PtModulus:  256,
		Q2Bits:     28,
		TConv:      4,
		TExpLeft:   4,
		TExpRight:  4,
		TGsw:       4,
		Instances:  1,
		DbDim1:     3,
		DbDim2:     dbDim2,
		DbItemSize: 256,
	})
	require.NoError(t, err)
	return p
}

func TestNewValidates(t *testing.T) {
	_, err := New(Params{PtModulus: 256, TConv: 1, TExpLeft: 1, TExpRight: 1, TGsw: 1, Instances: 1})
	require.Error(t, err, "n=0 must be rejected")
}

func TestGAndStopRound(t *testing.T) {
	withSecond := testParams(t, 4)
	require.Equal(t, withSecond.DbDim1+1, withSecond.G())
	require.Greater(t, withSecond.StopRound(), 0)

	noSecond := testParams(t, 0)
	require.Equal(t, noSecond.DbDim1, noSecond.G())
	require.Equal(t, 0, noSecond.StopRound())
}

func TestPBitsAndModPWordsPerChunk(t *testing.T) {
	p := testParams(t, 0)
	require.Equal(t, 8, p.PBits())
	require.Equal(t, 64/8, p.ModPWordsPerChunk())
}

func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"n": 2, "nu_1": 3, "nu_2": 4, "p": 256, "q2_bits": 28,
		"s_e": 6.4, "t_gsw": 4, "t_conv": 4, "t_exp_left": 4, "t_exp_right": 4,
		"instances": 1, "db_item_size": 256, "poly_len": 2048
	}`)
	p, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, 2, p.N)
	require.Equal(t, 3, p.DbDim1)
	require.Equal(t, 4, p.DbDim2)
	require.True(t, p.ExpandQueries)
}

func TestQ2ValueDeterministic(t *testing.T) {
	a, err := Q2Value(28, 2048)
	require.NoError(t, err)
	b, err := Q2Value(28, 2048)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Less(t, a, uint64(1)<<28)
}

func TestDecodedByteLen(t *testing.T) {
	p := testParams(t, 0)
	count := p.Instances * p.N * p.N * p.PolyLen
	chunks := (count + p.ModPWordsPerChunk() - 1) / p.ModPWordsPerChunk()
	require.Equal(t, chunks*8, p.DecodedByteLen())
}

func TestWithModuli(t *testing.T) {
	p := testParams(t, 0)
	moduli, err := DefaultModuli(p.PolyLen)
	require.NoError(t, err)
	q2, err := p.WithModuli(moduli)
	require.NoError(t, err)
	require.Equal(t, moduli, q2.Moduli)
}
