package client

import (
	"fmt"

	"github.com/Pro7ech/spiralpir/params"
	"github.com/Pro7ech/spiralpir/ring"
)

// Serialize encodes pp as the flat byte sequence spec.md §4.I describes:
// v_packing (n matrices of (n+1) x t_conv), then, if expand_queries,
// v_expansion_left, v_expansion_right, and v_conversion, each written
// matrix-by-matrix via [ring.WriteMatrixRaw].
func (pp *PublicParameters) Serialize() []byte {
	var buf []byte
	for _, m := range pp.VPacking {
		buf = ring.WriteMatrixRaw(buf, m.Raw())
	}
	for _, m := range pp.VExpansionLeft {
		buf = ring.WriteMatrixRaw(buf, m.Raw())
	}
	for _, m := range pp.VExpansionRight {
		buf = ring.WriteMatrixRaw(buf, m.Raw())
	}
	for _, m := range pp.VConversion {
		buf = ring.WriteMatrixRaw(buf, m.Raw())
	}
	return buf
}

// DeserializePublicParameters decodes the byte sequence [PublicParameters.Serialize]
// produces, given the parameter bundle that shaped it.
func DeserializePublicParameters(p *params.Params, data []byte) (*PublicParameters, error) {
	r := p.Ring()
	off := 0

	readMany := func(count, rows, cols int) ([]*ring.MatrixNTT, error) {
		out := make([]*ring.MatrixNTT, count)
		for i := 0; i < count; i++ {
			need := ring.MatrixRawByteLen(r, rows, cols)
			if off+need > len(data) {
				return nil, fmt.Errorf("client: public parameters truncated at matrix %d", i)
			}
			m := ring.NewMatrixRaw(r, rows, cols)
			off += ring.ReadMatrixRaw(m, data[off:])
			out[i] = m.Ntt()
		}
		return out, nil
	}

	vPacking, err := readMany(p.N, p.N+1, p.TConv)
	if err != nil {
		return nil, err
	}
	pp := &PublicParameters{VPacking: vPacking}
	if !p.ExpandQueries {
		return pp, nil
	}

	pp.VExpansionLeft, err = readMany(p.G(), 2, p.TExpLeft)
	if err != nil {
		return nil, err
	}
	pp.VExpansionRight, err = readMany(p.StopRound()+1, 2, p.TExpRight)
	if err != nil {
		return nil, err
	}
	pp.VConversion, err = readMany(1, 2, 2*p.TConv)
	if err != nil {
		return nil, err
	}
	return pp, nil
}

// Serialize encodes q as its wire form: the single packed ciphertext in
// expanded-query mode, or v_buf followed by v_ct's raw words in
// non-expanded mode.
func (q *Query) Serialize() []byte {
	var buf []byte
	if q.Expanded != nil {
		return ring.WriteMatrixRaw(buf, q.Expanded.CT)
	}
	for _, v := range q.Prepacked.VBuf {
		buf = appendUint64(buf, v)
	}
	for _, m := range q.Prepacked.VCt {
		buf = ring.WriteMatrixRaw(buf, m)
	}
	return buf
}

// DeserializeQuery decodes the byte sequence [Query.Serialize] produces,
// given the parameter bundle that shaped it.
func DeserializeQuery(p *params.Params, data []byte) (*Query, error) {
	r := p.Ring()
	if p.ExpandQueries {
		ct := ring.NewMatrixRaw(r, 2, 1)
		if ring.MatrixRawByteLen(r, 2, 1) > len(data) {
			return nil, fmt.Errorf("client: expanded query truncated")
		}
		ring.ReadMatrixRaw(ct, data)
		return &Query{Expanded: &Expanded{CT: ct}}, nil
	}

	numExpanded := 1 << uint(p.DbDim1)
	vBufWords := numExpanded * 2 * p.PolyLen
	need := vBufWords * 8
	if need > len(data) {
		return nil, fmt.Errorf("client: prepacked query v_buf truncated")
	}
	vBuf := make([]uint64, vBufWords)
	off := 0
	for i := range vBuf {
		vBuf[i] = readUint64(data[off : off+8])
		off += 8
	}

	vCt := make([]*ring.MatrixRaw, p.DbDim2)
	for i := 0; i < p.DbDim2; i++ {
		m := ring.NewMatrixRaw(r, 2, 2*p.TGsw)
		need := ring.MatrixRawByteLen(r, 2, 2*p.TGsw)
		if off+need > len(data) {
			return nil, fmt.Errorf("client: prepacked query v_ct[%d] truncated", i)
		}
		off += ring.ReadMatrixRaw(m, data[off:])
		vCt[i] = m
	}

	return &Query{Prepacked: &Prepacked{VBuf: vBuf, VCt: vCt}}, nil
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return append(dst, b[:]...)
}

func readUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
