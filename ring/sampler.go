package ring

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/chacha20"
)

// Source is a named handle around an io.Reader-backed stream of randomness.
// spec.md §5/§9 ("RNG duality") asks for two distinct named handles rather
// than one generic source; PrivateSource and PublicSource below are the two
// concrete instantiations used by client.Client.
type Source struct {
	r io.Reader
}

// NewSource wraps an arbitrary io.Reader as a [Source].
func NewSource(r io.Reader) *Source { return &Source{r: r} }

// PrivateSource returns a [Source] backed by the process CSPRNG
// (crypto/rand), used for discrete-Gaussian noise and the GSW-mode
// private "a" draws (spec.md §5). It must never be reseeded from
// public_seed.
func PrivateSource() *Source { return NewSource(rand.Reader) }

// PublicSource returns a [Source] backed by ChaCha20 keyed with seed and a
// zero nonce at stream position 0, mirroring the Rust
// rand_chacha::ChaCha20Rng construction used by client.rs and reproduced
// byte-for-byte by the server (spec.md §6).
func PublicSource(seed [32]byte) (*Source, error) {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("ring: chacha20 init: %w", err)
	}
	return NewSource(&chachaReader{c: c}), nil
}

// chachaReader turns a chacha20.Cipher (a stream XOR primitive) into an
// io.Reader emitting raw keystream, by encrypting an all-zero buffer.
type chachaReader struct {
	c *chacha20.Cipher
}

func (cr *chachaReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	cr.c.XORKeyStream(p, p)
	return len(p), nil
}

// ReadFull fills buf completely from the underlying stream, for callers
// outside this package that need raw bytes (e.g. drawing the client's
// public_seed from its private source).
func (s *Source) ReadFull(buf []byte) error {
	_, err := io.ReadFull(s.r, buf)
	return err
}

func (s *Source) readUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return 0, fmt.Errorf("ring: reading randomness: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// uniformMod draws a value uniform in [0, q) via rejection sampling.
func (s *Source) uniformMod(q uint64) (uint64, error) {
	if q == 0 {
		return 0, fmt.Errorf("ring: uniformMod with q=0")
	}
	maxUint64 := ^uint64(0)
	limit := maxUint64 - maxUint64%q // largest value keeping [0,limit) unbiased mod q
	for {
		x, err := s.readUint64()
		if err != nil {
			return 0, err
		}
		if x < limit {
			return x % q, nil
		}
	}
}

// UniformSampler draws raw (composed, mod-Q) coefficients, mirroring
// Pro7ech/lattigo's ring.UniformSampler.Read shape, specialized to the
// client's "draw one raw 1x1xN polynomial" usage (spec.md §4.F, §5).
type UniformSampler struct {
	*Source
	R *Ring
}

// NewUniformSampler builds a [UniformSampler] over r.Q.
func NewUniformSampler(source *Source, r *Ring) *UniformSampler {
	return &UniformSampler{Source: source, R: r}
}

// ReadRaw fills dst (length r.N) with coefficients uniform in [0, Q).
// Coefficients are drawn in order, one rejection-sampled 64-bit word each;
// a rejected word costs one extra read, so a call reads at least N words.
func (u *UniformSampler) ReadRaw(dst []uint64) error {
	for i := range dst {
		v, err := u.uniformMod(u.R.Q)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

// RandomRaw allocates and fills a rows x cols raw matrix with uniform
// coefficients (PolyMatrixRaw::random_rng).
func (u *UniformSampler) RandomRaw(rows, cols int) (*MatrixRaw, error) {
	m := NewMatrixRaw(u.R, rows, cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if err := u.ReadRaw(m.GetPoly(row, col)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// DiscreteGaussian draws small, zero-centered noise coefficients, stored as
// non-negative residues mod Q (negative draws wrap to Q-|x|), mirroring
// Pro7ech/lattigo's ring.GaussianSampler.Read.
type DiscreteGaussian struct {
	*Source
	R      *Ring
	StdDev float64
}

// NewDiscreteGaussian builds a [DiscreteGaussian] sampler.
func NewDiscreteGaussian(source *Source, r *Ring, stdDev float64) *DiscreteGaussian {
	return &DiscreteGaussian{Source: source, R: r, StdDev: stdDev}
}

// sample draws one continuous Gaussian via Box-Muller and rounds to the
// nearest integer, truncated to +-6 standard deviations.
func (g *DiscreteGaussian) sample() (int64, error) {
	bound := 6 * g.StdDev
	for {
		var b [16]byte
		if _, err := io.ReadFull(g.r, b[:]); err != nil {
			return 0, fmt.Errorf("ring: reading gaussian randomness: %w", err)
		}
		u1 := (float64(binary.LittleEndian.Uint64(b[0:8])>>11) + 0.5) / (1 << 53)
		u2 := (float64(binary.LittleEndian.Uint64(b[8:16])>>11) + 0.5) / (1 << 53)
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2) * g.StdDev
		if z > -bound && z < bound {
			return int64(math.Round(z)), nil
		}
	}
}

// ReadRaw fills dst (length r.N) with discrete-Gaussian noise, represented
// as residues mod Q.
func (g *DiscreteGaussian) ReadRaw(dst []uint64) error {
	for i := range dst {
		v, err := g.sample()
		if err != nil {
			return err
		}
		if v < 0 {
			dst[i] = g.R.Q - uint64(-v)
		} else {
			dst[i] = uint64(v)
		}
	}
	return nil
}

// Noise allocates and fills a rows x cols raw matrix with discrete-Gaussian
// noise (PolyMatrixRaw::noise).
func (g *DiscreteGaussian) Noise(rows, cols int) (*MatrixRaw, error) {
	m := NewMatrixRaw(g.R, rows, cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if err := g.ReadRaw(m.GetPoly(row, col)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// SampleMatrix resamples every coefficient of m in place
// (DiscreteGaussian::sample_matrix), used by generate_keys to resample
// sk_gsw/sk_reg.
func (g *DiscreteGaussian) SampleMatrix(m *MatrixRaw) error {
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			if err := g.ReadRaw(m.GetPoly(row, col)); err != nil {
				return err
			}
		}
	}
	return nil
}
