// Package params holds the immutable parameter bundle shared by every
// client operation (spec.md §3), with derived getters computed once at
// construction, following the single-immutable-value-with-derived-getters
// pattern spec.md §9 recommends and that the teacher's
// rlwe.ParametersLiteral/rlwe.Parameters pair already follows.
package params

import (
	"encoding/json"
	"fmt"

	"github.com/Pro7ech/spiralpir/ring"
)

// DefaultPolyLen and DefaultNoiseWidth fill in the two fields the Rust
// test-fixture JSON bundles in client.rs leave implicit (poly_len and s_e
// are determined by the arith.rs/params.rs constants that original_source/
// did not retain — see params/q2.go's doc comment and DESIGN.md).
const (
	DefaultPolyLen    = 2048
	DefaultNoiseWidth = 6.4
)

// Params is the immutable parameter bundle of spec.md §3.
type Params struct {
	PolyLen       int
	Moduli        []uint64
	NoiseWidth    float64
	N             int // Regev/GSW secret dimension (rows of the GSW secret)
	PtModulus     uint64
	Q2Bits        int
	TConv         int
	TExpLeft      int
	TExpRight     int
	TGsw          int
	ExpandQueries bool
	DbDim1        int
	DbDim2        int
	Instances     int
	DbItemSize    int

	ring *ring.Ring
}

// New validates fields and builds the backing [ring.Ring], caching it on
// the returned Params. It is the Go analogue of Params::init in client.rs.
func New(p Params) (*Params, error) {
	if p.PolyLen == 0 {
		p.PolyLen = DefaultPolyLen
	}
	if p.NoiseWidth == 0 {
		p.NoiseWidth = DefaultNoiseWidth
	}
	if len(p.Moduli) == 0 {
		moduli, err := DefaultModuli(p.PolyLen)
		if err != nil {
			return nil, fmt.Errorf("params: building default moduli chain: %w", err)
		}
		p.Moduli = moduli
	}
	if p.N <= 0 {
		return nil, fmt.Errorf("params: n must be positive, got %d", p.N)
	}
	if p.PtModulus < 2 {
		return nil, fmt.Errorf("params: pt_modulus must be >= 2, got %d", p.PtModulus)
	}
	if p.TConv <= 0 || p.TExpLeft <= 0 || p.TExpRight <= 0 || p.TGsw <= 0 {
		return nil, fmt.Errorf("params: gadget widths must be positive (t_conv=%d, t_exp_left=%d, t_exp_right=%d, t_gsw=%d)",
			p.TConv, p.TExpLeft, p.TExpRight, p.TGsw)
	}
	if p.DbDim1 < 0 || p.DbDim2 < 0 {
		return nil, fmt.Errorf("params: db_dim_1/db_dim_2 must be non-negative")
	}
	if p.Instances <= 0 {
		return nil, fmt.Errorf("params: instances must be positive, got %d", p.Instances)
	}

	r, err := ring.NewRing(p.PolyLen, p.Moduli)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	p.ring = r

	if _, err := Q2Value(p.Q2Bits, p.PolyLen); err != nil {
		return nil, err
	}

	return &p, nil
}

// Ring returns the backing RNS ring (modulus Q = product of Moduli).
func (p *Params) Ring() *ring.Ring { return p.ring }

// Modulus returns Q, the ciphertext modulus.
func (p *Params) Modulus() uint64 { return p.ring.Q }

// Q2 returns Q2_VALUES[Q2Bits] for this parameter set's ring dimension.
func (p *Params) Q2() uint64 {
	v, _ := Q2Value(p.Q2Bits, p.PolyLen) // validated at New
	return v
}

// G returns ceil(log2(2^db_dim_1 * (db_dim_2>0 ? 2 : 1))) = db_dim_1 + (1 if db_dim_2>0 else 0).
func (p *Params) G() int {
	if p.DbDim2 > 0 {
		return p.DbDim1 + 1
	}
	return p.DbDim1
}

// StopRound returns the number of expansion rounds needed to unpack
// db_dim_2*t_gsw further-dimension Regev ciphertexts out of a single
// packed query polynomial (0 when there is no second dimension).
func (p *Params) StopRound() int {
	if p.DbDim2 == 0 {
		return 0
	}
	return Log2Ceil(uint64(p.DbDim2 * p.TGsw))
}

// PBits returns ceil(log2(PtModulus)).
func (p *Params) PBits() int {
	return Log2Ceil(p.PtModulus)
}

// Q1 returns 4*PtModulus, the rest_rows modulus used by the two-modulus
// rounding law in response decoding (client.rs's decode_response: q1 =
// 4 * params.pt_modulus).
func (p *Params) Q1() uint64 {
	return 4 * p.PtModulus
}

// Q1Bits returns ceil(log2(Q1())), the bit width rest_rows is packed at.
func (p *Params) Q1Bits() int {
	return Log2Ceil(p.Q1())
}

// ModPWordsPerChunk returns how many PBits()-wide plaintext symbols are
// packed into each 64-bit chunk when converting the decoded integer buffer
// into a byte vector (spec.md §4.H step 7, "modp_words_per_chunk").
func (p *Params) ModPWordsPerChunk() int {
	pb := p.PBits()
	if pb == 0 {
		return 1
	}
	n := 64 / pb
	if n == 0 {
		return 1
	}
	return n
}

// DecodedValueCount returns the number of PBits()-wide plaintext symbols
// DecodeResponse produces: one per coefficient of the Instances*N x N
// result matrix (client.rs's decode_response, result = PolyMatrixRaw::zero
// (&params, instances*n, n)).
func (p *Params) DecodedValueCount() int {
	return p.Instances * p.N * p.N * p.PolyLen
}

// DecodedByteLen returns the exact byte length DecodeResponse's to_vec
// step produces before truncation to DbItemSize: DecodedValueCount()
// symbols packed ModPWordsPerChunk() to a 64-bit chunk.
func (p *Params) DecodedByteLen() int {
	chunks := ring.CeilDiv(p.DecodedValueCount(), p.ModPWordsPerChunk())
	return chunks * 8
}

// SetupBytes returns the exact serialized length of a PublicParameters
// value under this bundle (spec.md §4.I).
func (p *Params) SetupBytes() int {
	N := p.PolyLen
	total := p.N * (p.N + 1) * p.TConv * N * 8 // v_packing: n matrices of (n+1) x t_conv
	if p.ExpandQueries {
		total += p.G() * 2 * p.TExpLeft * N * 8
		total += (p.StopRound() + 1) * 2 * p.TExpRight * N * 8
		total += 2 * (2 * p.TConv) * N * 8
	}
	return total
}

// QueryVBufBytes returns the byte length of the non-expanded-mode v_buf
// buffer: 2^db_dim_1 reoriented Regev ciphertexts.
func (p *Params) QueryVBufBytes() int {
	numExpanded := 1 << uint(p.DbDim1)
	return numExpanded * 2 * p.PolyLen * 8
}

// QueryBytes returns the exact serialized length of a Query value.
func (p *Params) QueryBytes() int {
	if p.ExpandQueries {
		return 2 * 1 * p.PolyLen * 8
	}
	return p.QueryVBufBytes() + p.DbDim2*2*(2*p.TGsw)*p.PolyLen*8
}

// GetSkGsw returns the (rows, cols) shape of sk_gsw.
func (p *Params) GetSkGsw() (int, int) { return p.N, 1 }

// GetSkReg returns the (rows, cols) shape of sk_reg.
func (p *Params) GetSkReg() (int, int) { return 1, 1 }

// WithModuli returns a validated copy of p using the given moduli chain
// (client.rs's params_with_moduli). Response decoding does not call it; it
// builds its q2 ring directly with ring.AtModuli.
func (p *Params) WithModuli(moduli []uint64) (*Params, error) {
	cp := *p
	cp.Moduli = append([]uint64(nil), moduli...)
	return New(cp)
}

// Log2Ceil returns ceil(log2(x)) (0 for x <= 1), client.rs's log2_ceil.
func Log2Ceil(x uint64) int {
	if x <= 1 {
		return 0
	}
	n := 0
	v := uint64(1)
	for v < x {
		v <<= 1
		n++
	}
	return n
}

// jsonBundle mirrors the field names used by client.rs's test fixtures
// (params_from_json), so existing parameter files load unchanged.
type jsonBundle struct {
	N             int      `json:"n"`
	Nu1           int      `json:"nu_1"`
	Nu2           int      `json:"nu_2"`
	P             uint64   `json:"p"`
	Q2Bits        int      `json:"q2_bits"`
	SE            float64  `json:"s_e"`
	TGsw          int      `json:"t_gsw"`
	TConv         int      `json:"t_conv"`
	TExpLeft      int      `json:"t_exp_left"`
	TExpRight     int      `json:"t_exp_right"`
	Instances     int      `json:"instances"`
	DbItemSize    int      `json:"db_item_size"`
	PolyLen       int      `json:"poly_len"`
	Moduli        []uint64 `json:"moduli"`
	ExpandQueries *bool    `json:"expand_queries"`
}

// FromJSON parses a parameter bundle in the same shape as the JSON blobs
// embedded in client.rs's tests (params_from_json).
func FromJSON(data []byte) (*Params, error) {
	var jb jsonBundle
	if err := json.Unmarshal(data, &jb); err != nil {
		return nil, fmt.Errorf("params: parsing JSON: %w", err)
	}
	p := Params{
		PolyLen:       jb.PolyLen,
		Moduli:        jb.Moduli,
		NoiseWidth:    jb.SE,
		N:             jb.N,
		PtModulus:     jb.P,
		Q2Bits:        jb.Q2Bits,
		TConv:         jb.TConv,
		TExpLeft:      jb.TExpLeft,
		TExpRight:     jb.TExpRight,
		TGsw:          jb.TGsw,
		ExpandQueries: true,
		DbDim1:        jb.Nu1,
		DbDim2:        jb.Nu2,
		Instances:     jb.Instances,
		DbItemSize:    jb.DbItemSize,
	}
	if jb.ExpandQueries != nil {
		p.ExpandQueries = *jb.ExpandQueries
	}
	return New(p)
}

// DefaultModuli returns a two-prime NTT-friendly chain for polyLen whose
// product fits in 64 bits, used whenever a caller/JSON bundle does not
// specify an explicit moduli chain (New calls it when Moduli is empty; see
// the note in params/q2.go about arith.rs/params.rs not being
// part of original_source/).
func DefaultModuli(polyLen int) ([]uint64, error) {
	q0, err := Q2Value(30, polyLen)
	if err != nil {
		return nil, err
	}
	q1, err := Q2Value(29, polyLen)
	if err != nil {
		return nil, err
	}
	if q1 == q0 {
		q1, err = findLowerPrime(q0, polyLen)
		if err != nil {
			return nil, err
		}
	}
	return []uint64{q0, q1}, nil
}

func findLowerPrime(above uint64, polyLen int) (uint64, error) {
	twoN := uint64(2 * polyLen)
	candidate := above - twoN
	for candidate > twoN {
		if isProbablePrime(candidate) {
			return candidate, nil
		}
		candidate -= twoN
	}
	return 0, fmt.Errorf("params: could not find a second NTT-friendly prime below %d", above)
}
