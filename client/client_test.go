package client

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/Pro7ech/spiralpir/params"
	"github.com/Pro7ech/spiralpir/ring"
	"github.com/stretchr/testify/require"
)

// deterministicSource cycles a fixed byte pattern forever, standing in for
// crypto/rand in tests that need reproducible client state across runs.
type deterministicSource struct {
	pattern []byte
	pos     int
}

func (d *deterministicSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = d.pattern[d.pos%len(d.pattern)]
		d.pos++
	}
	return len(p), nil
}

func newDeterministicSource(seedByte byte) *ring.Source {
	pattern := make([]byte, 64)
	for i := range pattern {
		pattern[i] = seedByte + byte(i)
	}
	return ring.NewSource(&deterministicSource{pattern: pattern})
}

func testParamsExpanded(t *testing.T, expand bool, dbDim2 int) *params.Params {
	t.Helper()
	p, err := params.New(params.Params{
		PolyLen:       16,
		Moduli:        []uint64{65537},
		N:             2,
		PtModulus:     2,
		Q2Bits:        12,
		TConv:         2,
		TExpLeft:      2,
		TExpRight:     2,
		TGsw:          2,
		ExpandQueries: expand,
		DbDim1:        2,
		DbDim2:        dbDim2,
		Instances:     1,
		DbItemSize:    2,
	})
	require.NoError(t, err)
	return p
}

func TestGenerateKeysShape(t *testing.T) {
	for _, dbDim2 := range []int{0, 1} {
		p := testParamsExpanded(t, true, dbDim2)
		c, err := Init(p, newDeterministicSource(1))
		require.NoError(t, err)

		pp, err := c.GenerateKeys()
		require.NoError(t, err)
		require.Len(t, pp.VPacking, p.N)
		for _, m := range pp.VPacking {
			require.Equal(t, p.N+1, m.Rows)
			require.Equal(t, p.TConv, m.Cols)
		}
		require.Len(t, pp.VExpansionLeft, p.G())
		require.Len(t, pp.VExpansionRight, p.StopRound()+1)
		require.Len(t, pp.VConversion, 1)
	}
}

func TestGenerateKeysNonExpandedHasNoExpansionParams(t *testing.T) {
	p := testParamsExpanded(t, false, 1)
	c, err := Init(p, newDeterministicSource(2))
	require.NoError(t, err)

	pp, err := c.GenerateKeys()
	require.NoError(t, err)
	require.Nil(t, pp.VExpansionLeft)
	require.Nil(t, pp.VExpansionRight)
	require.Nil(t, pp.VConversion)
}

func TestPublicParametersCodecRoundTrip(t *testing.T) {
	for _, expand := range []bool{true, false} {
		p := testParamsExpanded(t, expand, 1)
		c, err := Init(p, newDeterministicSource(3))
		require.NoError(t, err)
		pp, err := c.GenerateKeys()
		require.NoError(t, err)

		data := pp.Serialize()
		got, err := DeserializePublicParameters(p, data)
		require.NoError(t, err)

		require.Equal(t, len(pp.VPacking), len(got.VPacking))
		for i := range pp.VPacking {
			if diff := cmp.Diff(pp.VPacking[i].Raw().Data, got.VPacking[i].Raw().Data); diff != "" {
				t.Errorf("v_packing[%d] round trip mismatch (-want +got):\n%s", i, diff)
			}
		}
		require.Equal(t, data, got.Serialize())
	}
}

func TestQueryCodecRoundTripExpanded(t *testing.T) {
	p := testParamsExpanded(t, true, 1)
	c, err := Init(p, newDeterministicSource(4))
	require.NoError(t, err)
	_, err = c.GenerateKeys()
	require.NoError(t, err)

	q, err := c.GenerateQuery(3)
	require.NoError(t, err)
	require.NotNil(t, q.Expanded)

	data := q.Serialize()
	got, err := DeserializeQuery(p, data)
	require.NoError(t, err)
	require.Equal(t, q.Expanded.CT.Data, got.Expanded.CT.Data)
	require.Equal(t, data, got.Serialize())
}

func TestQueryCodecRoundTripPrepacked(t *testing.T) {
	p := testParamsExpanded(t, false, 1)
	c, err := Init(p, newDeterministicSource(5))
	require.NoError(t, err)
	_, err = c.GenerateKeys()
	require.NoError(t, err)

	q, err := c.GenerateQuery(2)
	require.NoError(t, err)
	require.NotNil(t, q.Prepacked)

	data := q.Serialize()
	got, err := DeserializeQuery(p, data)
	require.NoError(t, err)
	require.Equal(t, q.Prepacked.VBuf, got.Prepacked.VBuf)
	require.Len(t, got.Prepacked.VCt, len(q.Prepacked.VCt))
	for i := range q.Prepacked.VCt {
		require.Equal(t, q.Prepacked.VCt[i].Data, got.Prepacked.VCt[i].Data)
	}
}

func TestGenerateQueryRejectsOutOfRange(t *testing.T) {
	p := testParamsExpanded(t, true, 1)
	c, err := Init(p, newDeterministicSource(6))
	require.NoError(t, err)
	_, err = c.GenerateKeys()
	require.NoError(t, err)

	total := 1 << uint(p.DbDim1+p.DbDim2)
	_, err = c.GenerateQuery(total)
	require.Error(t, err)
	_, err = c.GenerateQuery(-1)
	require.Error(t, err)
}

func TestKeyGenerationIsDeterministicGivenSeed(t *testing.T) {
	p := testParamsExpanded(t, true, 0)

	c1, err := Init(p, newDeterministicSource(42))
	require.NoError(t, err)
	pp1, err := c1.GenerateKeys()
	require.NoError(t, err)

	c2, err := Init(p, newDeterministicSource(42))
	require.NoError(t, err)
	pp2, err := c2.GenerateKeys()
	require.NoError(t, err)

	require.Equal(t, pp1.Serialize(), pp2.Serialize())
	require.Equal(t, c1.PublicSeed(), c2.PublicSeed())

	q1, err := c1.GenerateQuery(1)
	require.NoError(t, err)
	q2, err := c2.GenerateQuery(1)
	require.NoError(t, err)
	require.Equal(t, q1.Serialize(), q2.Serialize())
}

// TestDecodeResponseRecoversPlaintext builds a response byte stream
// directly (a mock server answer) rather than exercising the absent
// server-side evaluator. first_row is all-zero, so sk_prod (step 4) is
// zero everywhere and the two-modulus rounding law (step 5) reduces to
// recovering val_rest/scale, where scale = q1/p. This exercises the real
// bit-unpacking, NTT multiply, and rounding-law combination step, just
// with a first_row chosen to isolate the rest_rows channel.
func TestDecodeResponseRecoversPlaintext(t *testing.T) {
	p, err := params.New(params.Params{
		PolyLen:       16,
		Moduli:        []uint64{65537},
		N:             2,
		PtModulus:     2,
		Q2Bits:        12,
		TConv:         2,
		TExpLeft:      2,
		TExpRight:     2,
		TGsw:          2,
		ExpandQueries: true,
		DbDim1:        2,
		Instances:     1,
		DbItemSize:    8,
	})
	require.NoError(t, err)
	c, err := Init(p, newDeterministicSource(7))
	require.NoError(t, err)
	_, err = c.GenerateKeys()
	require.NoError(t, err)

	n := p.N
	N := p.PolyLen
	q1 := p.Q1()
	q1Bits := p.Q1Bits()
	q2Bits := p.Q2Bits
	scale := q1 / p.PtModulus

	count := n * n * N
	expectedSymbols := make([]uint64, count)

	var data []byte
	bitOffs := 0
	for i := 0; i < n*N; i++ {
		data = ring.WriteArbitraryBits(data, bitOffs, q2Bits, 0)
		bitOffs += q2Bits
	}
	for i := 0; i < count; i++ {
		s := uint64(i % int(p.PtModulus))
		expectedSymbols[i] = s
		data = ring.WriteArbitraryBits(data, bitOffs, q1Bits, (s*scale)%q1)
		bitOffs += q1Bits
	}

	out, err := c.DecodeResponse(data)
	require.NoError(t, err)
	require.Len(t, out, p.DbItemSize)

	pBits := p.PBits()
	wordsPerChunk := p.ModPWordsPerChunk()
	for i, want := range expectedSymbols {
		chunk := i / wordsPerChunk
		pos := i % wordsPerChunk
		word := binary.LittleEndian.Uint64(out[chunk*8 : chunk*8+8])
		got := (word >> uint(pos*pBits)) & ((1 << uint(pBits)) - 1)
		require.Equalf(t, want, got, "symbol %d", i)
	}
}
