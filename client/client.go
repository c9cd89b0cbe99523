// Package client implements the PIR client core: secret-key sampling,
// public-parameter generation, two-mode query construction, and
// two-modulus response decoding (spec.md §1–§9). Every exported
// operation here is grounded 1:1 on the like-named function in
// original_source/spiral-rs/src/client.rs.
package client

import (
	"fmt"

	"github.com/Pro7ech/spiralpir/params"
	"github.com/Pro7ech/spiralpir/ring"
)

// Client holds the secret keys and RNG state for one PIR identity
// (spec.md §3, "Client state"). It is strictly single-threaded and
// request-scoped (spec.md §5): no method is safe to call concurrently
// with another on the same Client.
type Client struct {
	Params *params.Params
	R      *ring.Ring

	skGsw     *ring.MatrixRaw // n x 1
	skReg     *ring.MatrixRaw // 1 x 1
	skGswFull *ring.MatrixRaw // n x (n+1)
	skRegFull *ring.MatrixRaw // 1 x 2

	dg             *ring.DiscreteGaussian // private: noise
	privateUniform *ring.UniformSampler   // private: GSW "a" draws
	publicUniform  *ring.UniformSampler   // public: every Regev "a" draw

	publicSeed [32]byte
}

// matrixWithIdentity returns [ p | I ], horizontally augmenting the
// p.Rows x 1 secret p with a p.Rows x p.Rows identity block
// (client.rs's matrix_with_identity).
func matrixWithIdentity(p *ring.MatrixRaw) (*ring.MatrixRaw, error) {
	if p.Cols != 1 {
		return nil, fmt.Errorf("client: matrixWithIdentity requires a column vector, got %d cols", p.Cols)
	}
	out := ring.NewMatrixRaw(p.R, p.Rows, p.Rows+1)
	out.CopyInto(p, 0, 0)
	out.CopyInto(ring.Identity(p.R, p.Rows), 0, 1)
	return out, nil
}

// Init creates a Client for the given parameter bundle. privateRandomness
// seeds both the private noise/GSW source and, via one 32-byte draw, the
// public ChaCha20 stream that the server independently reconstructs from
// the transmitted public_seed (spec.md §5, §6).
func Init(p *params.Params, privateRandomness *ring.Source) (*Client, error) {
	r := p.Ring()

	skGswRows, skGswCols := p.GetSkGsw()
	skRegRows, skRegCols := p.GetSkReg()
	skGsw := ring.NewMatrixRaw(r, skGswRows, skGswCols)
	skReg := ring.NewMatrixRaw(r, skRegRows, skRegCols)

	skGswFull, err := matrixWithIdentity(skGsw)
	if err != nil {
		return nil, err
	}
	skRegFull, err := matrixWithIdentity(skReg)
	if err != nil {
		return nil, err
	}

	var seed [32]byte
	if err := privateRandomness.ReadFull(seed[:]); err != nil {
		return nil, fmt.Errorf("client: drawing public_seed: %w", err)
	}

	publicSrc, err := ring.PublicSource(seed)
	if err != nil {
		return nil, err
	}

	return &Client{
		Params:         p,
		R:              r,
		skGsw:          skGsw,
		skReg:          skReg,
		skGswFull:      skGswFull,
		skRegFull:      skRegFull,
		dg:             ring.NewDiscreteGaussian(privateRandomness, r, p.NoiseWidth),
		privateUniform: ring.NewUniformSampler(privateRandomness, r),
		publicUniform:  ring.NewUniformSampler(publicSrc, r),
		publicSeed:     seed,
	}, nil
}

// PublicSeed returns the 32-byte seed that must accompany
// PublicParameters to the server (spec.md §6).
func (c *Client) PublicSeed() [32]byte {
	return c.publicSeed
}
