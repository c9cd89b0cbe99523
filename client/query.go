package client

import (
	"fmt"

	"github.com/Pro7ech/spiralpir/ring"
	"github.com/Pro7ech/spiralpir/rgsw"
)

// Expanded carries the single packed ciphertext of expanded-query mode
// (spec.md §4.G, Params.ExpandQueries == true): the server homomorphically
// expands this one polynomial into the per-row/per-dimension selectors.
type Expanded struct {
	CT *ring.MatrixRaw
}

// Prepacked carries the pre-expanded ciphertexts of non-expanded-query mode
// (Params.ExpandQueries == false): one reoriented Regev ciphertext per
// first-dimension row, plus one GSW ciphertext per second-dimension bit.
type Prepacked struct {
	VBuf []uint64          // reoriented first-dimension Regev ciphertexts
	VCt  []*ring.MatrixRaw // further-dimension GSW selectors, len == DbDim2
}

// Query is the per-request wire value (spec.md §4.I): exactly one of
// Expanded or Prepacked is non-nil, chosen by Params.ExpandQueries.
type Query struct {
	Expanded  *Expanded
	Prepacked *Prepacked
}

// reorientRegCiphertexts packs numExpanded 2x1 Regev ciphertexts into the
// server's preferred column-major-by-ciphertext layout: for row in {0,1}
// and coefficient c, the numExpanded values ct[0..numExpanded].row[c] are
// stored contiguously. This lets the server coalesce the homomorphic
// external product across all first-dimension rows with a single strided
// pass. The exact layout is a client/server wire contract outside this
// module's scope; this implementation fixes one bit-exact choice, built
// here only (nothing in this module reads the layout back).
func reorientRegCiphertexts(cts []*ring.MatrixNTT, N int) []uint64 {
	numExpanded := len(cts)
	buf := make([]uint64, 2*N*numExpanded)
	for i, ct := range cts {
		raw := ct.Raw()
		for row := 0; row < 2; row++ {
			poly := raw.GetPoly(row, 0)
			base := row * N * numExpanded
			for c := 0; c < N; c++ {
				buf[base+c*numExpanded+i] = poly[c]
			}
		}
	}
	return buf
}

// GenerateQuery builds the Query selecting the idxTarget'th database row
// (client.rs's generate_query). idxTarget must be in
// [0, 2^(DbDim1+DbDim2)).
func (c *Client) GenerateQuery(idxTarget int) (*Query, error) {
	p := c.Params
	total := 1 << uint(p.DbDim1+p.DbDim2)
	if idxTarget < 0 || idxTarget >= total {
		return nil, fmt.Errorf("client: idx_target=%d out of range [0,%d)", idxTarget, total)
	}

	idxFurther := idxTarget & ((1 << uint(p.DbDim2)) - 1)
	idxDim0 := idxTarget >> uint(p.DbDim2)

	Q := p.Modulus()
	scaleK := Q / p.PtModulus

	if p.ExpandQueries {
		ct, err := c.generateExpandedQuery(idxDim0, idxFurther, scaleK)
		if err != nil {
			return nil, err
		}
		return &Query{Expanded: &Expanded{CT: ct}}, nil
	}

	vBuf, vCt, err := c.generatePrepackedQuery(idxDim0, idxFurther, scaleK)
	if err != nil {
		return nil, err
	}
	return &Query{Prepacked: &Prepacked{VBuf: vBuf, VCt: vCt}}, nil
}

// generateExpandedQuery builds the single packed polynomial the server
// expands homomorphically (client.rs's generate_query, expand_queries
// branch).
func (c *Client) generateExpandedQuery(idxDim0, idxFurther int, scaleK uint64) (*ring.MatrixRaw, error) {
	p := c.Params
	Q := p.Modulus()
	sigma := ring.NewMatrixRaw(c.R, 1, 1)
	poly := sigma.GetPoly(0, 0)

	bitsPerGsw := p.Ring().BitsPerDigit(p.TGsw)

	if p.DbDim2 == 0 {
		poly[idxDim0] = scaleK
		invTwoG, err := ring.InvertUintMod(uint64(1)<<uint(p.G()), Q)
		if err != nil {
			return nil, err
		}
		for i := range poly {
			poly[i] = ring.MultiplyUintMod(poly[i], invTwoG, Q)
		}
	} else {
		poly[2*idxDim0] = scaleK
		for i := 0; i < p.DbDim2; i++ {
			bit := uint64((idxFurther >> uint(i)) & 1)
			for j := 0; j < p.TGsw; j++ {
				val := bit << uint(bitsPerGsw*j)
				idx := i*p.TGsw + j
				poly[2*idx+1] = val
			}
		}
		invTwoGFirst, err := ring.InvertUintMod(uint64(1)<<uint(p.G()), Q)
		if err != nil {
			return nil, err
		}
		invTwoGRest, err := ring.InvertUintMod(uint64(1)<<uint(p.StopRound()+1), Q)
		if err != nil {
			return nil, err
		}
		for i := 0; i < c.R.N/2; i++ {
			poly[2*i] = ring.MultiplyUintMod(poly[2*i], invTwoGFirst, Q)
			poly[2*i+1] = ring.MultiplyUintMod(poly[2*i+1], invTwoGRest, Q)
		}
	}

	ct, err := c.EncryptMatrixReg(sigma.Ntt())
	if err != nil {
		return nil, err
	}
	return ct.Raw(), nil
}

// generatePrepackedQuery builds the pre-expanded Regev/GSW ciphertext set
// (client.rs's generate_query, non-expanded branch): one Regev ciphertext
// per first-dimension row, reoriented for the server, and one GSW
// ciphertext per further-dimension selector bit.
func (c *Client) generatePrepackedQuery(idxDim0, idxFurther int, scaleK uint64) ([]uint64, []*ring.MatrixRaw, error) {
	p := c.Params
	numExpanded := 1 << uint(p.DbDim1)

	regCts := make([]*ring.MatrixNTT, numExpanded)
	for i := 0; i < numExpanded; i++ {
		var value uint64
		if i == idxDim0 {
			value = scaleK
		}
		ct, err := c.EncryptMatrixReg(ring.SingleValue(c.R, value).Ntt())
		if err != nil {
			return nil, nil, err
		}
		regCts[i] = ct
	}
	vBuf := reorientRegCiphertexts(regCts, c.R.N)

	bitsPerGsw := p.Ring().BitsPerDigit(p.TGsw)
	skRegNtt := c.skReg.Ntt()

	vCt := make([]*ring.MatrixRaw, p.DbDim2)
	for i := 0; i < p.DbDim2; i++ {
		bit := uint64((idxFurther >> uint(i)) & 1)
		ctGsw := rgsw.New(c.R, p.TGsw)
		for j := 0; j < p.TGsw; j++ {
			value := bit << uint(bitsPerGsw*j)
			sigmaNtt := ring.SingleValue(c.R, value).Ntt()

			ctValue, err := c.EncryptMatrixReg(sigmaNtt)
			if err != nil {
				return nil, nil, err
			}
			ctSkValue, err := c.EncryptMatrixReg(skRegNtt.ScalarMultiply(sigmaNtt))
			if err != nil {
				return nil, nil, err
			}
			ctGsw.SetColumnPair(j, ctValue.Raw(), ctSkValue.Raw())
		}
		vCt[i] = ctGsw.MatrixRaw
	}

	return vBuf, vCt, nil
}
