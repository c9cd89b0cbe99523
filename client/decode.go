package client

import (
	"fmt"
	"math/big"

	"github.com/Pro7ech/spiralpir/ring"
)

// DecodeResponse recovers the plaintext bytes selected by the Query that
// produced data (client.rs's decode_response). data is the server's raw
// answer: per instance, a 1 x n "first row" of polynomials packed at q2_bits
// per coefficient followed by an n x n "rest_rows" block packed at q1_bits per
// coefficient (q1 = 4*PtModulus), both bit-packed MSB-first with no padding
// between values or instances.
//
//  0. NTT over q2 the GSW secret key.
//  1. Read first_row in q2_bits chunks.
//  2. Read rest_rows in q1_bits chunks.
//  3. NTT over q2 the first row.
//  4. Multiply the results of (0) and (3): sk_prod = sk_gsw_q2_ntt * first_row_q2.
//  5. Combine sk_prod and rest_rows via the two-modulus rounding law and
//     round to a PtModulus-valued symbol.
//
// The returned slice has exactly Params.DbItemSize bytes.
func (c *Client) DecodeResponse(data []byte) ([]byte, error) {
	p := c.Params
	n := p.N
	N := p.PolyLen

	q1 := p.Q1()
	q1Bits := p.Q1Bits()
	q2 := p.Q2()
	q2Bits := p.Q2Bits

	bitsPerInstance := n*N*q2Bits + n*n*N*q1Bits
	needBits := p.Instances * bitsPerInstance
	if len(data)*8 < needBits {
		return nil, fmt.Errorf("client: response has %d bytes, want at least %d", len(data), (needBits+7)/8)
	}

	q2Ring, err := ring.AtModuli(N, []uint64{q2})
	if err != nil {
		return nil, fmt.Errorf("client: building q2 ring: %w", err)
	}

	skGswQ2 := ring.NewMatrixRaw(q2Ring, n, 1)
	Q := p.Modulus()
	for row := 0; row < n; row++ {
		src := c.skGsw.GetPoly(row, 0)
		dst := skGswQ2.GetPoly(row, 0)
		for i, v := range src {
			dst[i] = ring.Recenter(v, Q, q2)
		}
	}
	skGswQ2Ntt := skGswQ2.Ntt()

	values := make([]uint64, 0, p.DecodedValueCount())
	bitOffs := 0

	for instance := 0; instance < p.Instances; instance++ {
		firstRow := ring.NewMatrixRaw(q2Ring, 1, n)
		for i := 0; i < n*N; i++ {
			firstRow.Data[i] = ring.ReadArbitraryBits(data, bitOffs, q2Bits)
			bitOffs += q2Bits
		}

		restRows := ring.NewMatrixRaw(p.Ring(), n, n)
		for i := 0; i < n*n*N; i++ {
			restRows.Data[i] = ring.ReadArbitraryBits(data, bitOffs, q1Bits)
			bitOffs += q1Bits
		}

		firstRowQ2Ntt := firstRow.Ntt()
		skProd := skGswQ2Ntt.Multiply(firstRowQ2Ntt).Raw()

		for i := 0; i < n*n*N; i++ {
			values = append(values, combineRoundingLaw(skProd.Data[i], restRows.Data[i], q1, q2, p.PtModulus))
		}
	}

	out := ring.WriteModPWords(values, p.PBits(), p.ModPWordsPerChunk())
	if len(out) < p.DbItemSize {
		return nil, fmt.Errorf("client: decoded %d bytes, want at least %d", len(out), p.DbItemSize)
	}
	return out[:p.DbItemSize], nil
}

// combineRoundingLaw applies the two-modulus rounding law of client.rs's
// decode_response: valFirst (mod q2) and valRest (mod q1) are recentered
// to signed residues, combined as r = valFirst*q1 + valRest*q2, then
// divided by denom = q2*(q1/p) with round-to-nearest, and finally reduced
// into [0, p). Wide (big.Int) intermediates avoid overflow for large q2.
func combineRoundingLaw(rawFirst, rawRest, q1, q2, p uint64) uint64 {
	valFirst := recenterSigned(rawFirst, q2)
	valRest := recenterSigned(rawRest, q1)

	q1B := new(big.Int).SetUint64(q1)
	q2B := new(big.Int).SetUint64(q2)
	pB := new(big.Int).SetUint64(p)

	denom := new(big.Int).Quo(q1B, pB)
	denom.Mul(denom, q2B)

	r := new(big.Int).Mul(valFirst, q1B)
	r.Add(r, new(big.Int).Mul(valRest, q2B))

	half := new(big.Int).Quo(denom, big.NewInt(2))
	if r.Sign() >= 0 {
		r.Add(r, half)
	} else {
		r.Sub(r, half)
	}
	res := new(big.Int).Quo(r, denom)

	denomOverP := new(big.Int).Quo(denom, pB)
	adjust := new(big.Int).Mul(denomOverP, pB)
	adjust.Add(adjust, new(big.Int).Mul(big.NewInt(2), pB))
	res.Add(res, adjust)
	res.Mod(res, pB)

	return res.Uint64()
}

// recenterSigned interprets x (taken mod q) as a signed residue, returned
// as a big.Int: x - q when x >= q/2 (integer division), else x.
func recenterSigned(x, q uint64) *big.Int {
	signed := int64(x)
	if signed >= int64(q/2) {
		signed -= int64(q)
	}
	return big.NewInt(signed)
}
