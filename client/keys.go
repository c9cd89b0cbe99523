package client

import (
	"github.com/Pro7ech/spiralpir/gadget"
	"github.com/Pro7ech/spiralpir/ring"
)

// PublicParameters is everything the client ships to the server besides the
// query itself (spec.md §3, §4.I). VExpansionLeft/VExpansionRight/VConversion
// are nil when Params.ExpandQueries is false.
type PublicParameters struct {
	VPacking        []*ring.MatrixNTT
	VExpansionLeft  []*ring.MatrixNTT
	VExpansionRight []*ring.MatrixNTT
	VConversion     []*ring.MatrixNTT
}

// getRegevSample draws one fresh Regev encryption of zero under sk_reg:
// (-a, a*sk_reg + e), "a" drawn from the public stream (client.rs's
// get_regev_sample).
func (c *Client) getRegevSample() (*ring.MatrixNTT, error) {
	a, err := func() (*ring.MatrixRaw, error) {
		m := ring.NewMatrixRaw(c.R, 1, 1)
		if err := c.publicUniform.ReadRaw(m.GetPoly(0, 0)); err != nil {
			return nil, err
		}
		return m, nil
	}()
	if err != nil {
		return nil, err
	}
	e, err := c.dg.Noise(1, 1)
	if err != nil {
		return nil, err
	}

	aNtt := a.Ntt()
	b := c.skReg.Ntt().Multiply(aNtt).Add(e.Ntt())

	out := ring.NewMatrixNTT(c.R, 2, 1)
	out.CopyInto(aNtt.Neg(), 0, 0)
	out.CopyInto(b, 1, 0)
	return out, nil
}

// getFreshRegPublicKey returns m independent Regev encryptions of zero,
// columns of a 2xm matrix (client.rs's get_fresh_reg_public_key).
func (c *Client) getFreshRegPublicKey(m int) (*ring.MatrixNTT, error) {
	out := ring.NewMatrixNTT(c.R, 2, m)
	for i := 0; i < m; i++ {
		sample, err := c.getRegevSample()
		if err != nil {
			return nil, err
		}
		out.CopyInto(sample, 0, i)
	}
	return out, nil
}

// getFreshGswPublicKey draws m GSW public-key columns: a is drawn from the
// private stream here (unlike Regev's public "a"), since this key directly
// leaks information about sk_gsw under the non-expanded query mode
// (client.rs's get_fresh_gsw_public_key, spec.md §5's RNG-duality note).
func (c *Client) getFreshGswPublicKey(m int) (*ring.MatrixNTT, error) {
	a, err := c.privateUniform.RandomRaw(1, m)
	if err != nil {
		return nil, err
	}
	e, err := c.dg.Noise(c.Params.N, m)
	if err != nil {
		return nil, err
	}

	aNtt := a.Ntt()
	b := c.skGsw.Ntt().Multiply(aNtt).Add(e.Ntt())

	raw := ring.Stack(aNtt.Neg().Raw(), b.Raw())
	return raw.Ntt(), nil
}

// encryptMatrixGsw returns a GSW public key blinded by ag, the "G-scaled"
// plaintext matrix (client.rs's encrypt_matrix_gsw).
func (c *Client) encryptMatrixGsw(ag *ring.MatrixNTT) (*ring.MatrixNTT, error) {
	p, err := c.getFreshGswPublicKey(ag.Cols)
	if err != nil {
		return nil, err
	}
	return p.Add(ag.PadTop(1)), nil
}

// EncryptMatrixReg returns a fresh Regev public key blinded by a, the
// plaintext matrix to encrypt (client.rs's encrypt_matrix_reg). Exported:
// query construction (client/query.go) calls this directly.
func (c *Client) EncryptMatrixReg(a *ring.MatrixNTT) (*ring.MatrixNTT, error) {
	p, err := c.getFreshRegPublicKey(a.Cols)
	if err != nil {
		return nil, err
	}
	return p.Add(a.PadTop(1)), nil
}

// DecryptMatrixReg recovers the plaintext matrix from a Regev ciphertext
// under sk_reg_full = [sk_reg | I] (client.rs's decrypt_matrix_reg).
func (c *Client) DecryptMatrixReg(ct *ring.MatrixNTT) *ring.MatrixRaw {
	return c.skRegFull.Ntt().Multiply(ct).Raw()
}

// DecryptMatrixGsw recovers the plaintext matrix from a GSW ciphertext
// under sk_gsw_full (client.rs's decrypt_matrix_gsw).
func (c *Client) DecryptMatrixGsw(ct *ring.MatrixNTT) *ring.MatrixRaw {
	return c.skGswFull.Ntt().Multiply(ct).Raw()
}

// generateExpansionParams returns numExp encryptions of tau_{t_i}(sk_reg)
// scaled by the mExp-wide gadget matrix, one per expansion round
// (client.rs's generate_expansion_params). t_i = N/2^i + 1.
func (c *Client) generateExpansionParams(numExp, mExp int) ([]*ring.MatrixNTT, error) {
	gExp := gadget.Build(c.R, 1, mExp).Ntt()

	out := make([]*ring.MatrixNTT, numExp)
	for i := 0; i < numExp; i++ {
		t := uint64(c.R.N/(1<<uint(i)) + 1)
		tauSkReg := gadget.Automorphism(c.skReg, t)
		prod := tauSkReg.Ntt().Multiply(gExp)
		w, err := c.EncryptMatrixReg(prod)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// GenerateKeys resamples sk_gsw/sk_reg and returns the PublicParameters to
// ship to the server (client.rs's generate_keys).
func (c *Client) GenerateKeys() (*PublicParameters, error) {
	if err := c.dg.SampleMatrix(c.skGsw); err != nil {
		return nil, err
	}
	if err := c.dg.SampleMatrix(c.skReg); err != nil {
		return nil, err
	}
	skGswFull, err := matrixWithIdentity(c.skGsw)
	if err != nil {
		return nil, err
	}
	skRegFull, err := matrixWithIdentity(c.skReg)
	if err != nil {
		return nil, err
	}
	c.skGswFull = skGswFull
	c.skRegFull = skRegFull

	p := c.Params
	skRegNtt := c.skReg.Ntt()

	gConvSingle := gadget.Build(c.R, 1, p.TConv).Ntt()
	vPacking := make([]*ring.MatrixNTT, p.N)
	for i := 0; i < p.N; i++ {
		scaled := gConvSingle.ScalarMultiply(skRegNtt)
		ag := ring.NewMatrixNTT(c.R, p.N, p.TConv)
		ag.CopyInto(scaled, i, 0)
		w, err := c.encryptMatrixGsw(ag)
		if err != nil {
			return nil, err
		}
		vPacking[i] = w
	}

	pp := &PublicParameters{VPacking: vPacking}
	if !p.ExpandQueries {
		return pp, nil
	}

	pp.VExpansionLeft, err = c.generateExpansionParams(p.G(), p.TExpLeft)
	if err != nil {
		return nil, err
	}
	pp.VExpansionRight, err = c.generateExpansionParams(p.StopRound()+1, p.TExpRight)
	if err != nil {
		return nil, err
	}

	gConvPair := gadget.Build(c.R, 2, 2*p.TConv)
	skRegSquaredNtt := skRegNtt.Multiply(skRegNtt)
	vConv := ring.NewMatrixNTT(c.R, 2, 2*p.TConv)
	for i := 0; i < 2*p.TConv; i++ {
		var sigma *ring.MatrixNTT
		if i%2 == 0 {
			val := gConvPair.GetPoly(0, i)[0]
			sigma = skRegSquaredNtt.ScalarMultiply(ring.SingleValue(c.R, val).Ntt())
		} else {
			val := gConvPair.GetPoly(1, i)[0]
			sigma = skRegNtt.ScalarMultiply(ring.SingleValue(c.R, val).Ntt())
		}
		ct, err := c.EncryptMatrixReg(sigma)
		if err != nil {
			return nil, err
		}
		vConv.CopyInto(ct, 0, i)
	}
	pp.VConversion = []*ring.MatrixNTT{vConv}

	return pp, nil
}
