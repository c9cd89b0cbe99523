// Package rgsw holds the GSW ciphertext shape used by the PIR client's
// non-expanded-mode query (spec.md §3, §4.G): db_dim_2 further-dimension
// selector bits, each carried as a 2x(2*t_gsw) raw matrix of interleaved
// Regev column pairs. It narrows Pro7ech/lattigo's rgsw package (which
// targets a general homomorphic-multiplication-capable GSW ciphertext) to
// the construction-only, never-evaluated shape this client needs: the
// client builds these ciphertexts and ships them to the server, which
// alone performs the homomorphic external product (out of scope, §1).
package rgsw

import "github.com/Pro7ech/spiralpir/ring"

// Ciphertext is a 2x(2*TGsw) raw matrix: for gadget digit j, column 2j+1
// carries a Regev encryption of a scalar value and column 2j carries a
// Regev encryption of sk_reg times that same value (client.rs's
// generate_query, non-expanded-mode GSW loop).
type Ciphertext struct {
	*ring.MatrixRaw
	TGsw int
}

// New allocates a zero 2x(2*tGsw) GSW ciphertext container.
func New(r *ring.Ring, tGsw int) *Ciphertext {
	return &Ciphertext{MatrixRaw: ring.NewMatrixRaw(r, 2, 2*tGsw), TGsw: tGsw}
}

// SetColumnPair installs the Regev ciphertexts for gadget digit j: valueCt
// into column 2j+1 and skTimesValueCt into column 2j. Both must be 2x1 raw
// matrices (single-column Regev ciphertexts).
func (c *Ciphertext) SetColumnPair(j int, valueCt, skTimesValueCt *ring.MatrixRaw) {
	c.CopyInto(valueCt, 0, 2*j+1)
	c.CopyInto(skTimesValueCt, 0, 2*j)
}
