// Package ring implements the RNS polynomial ring arithmetic backing the
// PIR client: modular reduction, the negacyclic NTT, raw/NTT polynomial
// matrices, and their wire serialization.
package ring

import (
	"fmt"
	"math/big"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Ring is an RNS polynomial ring Z[X]/(X^N+1) modulo the product of Moduli.
// N must be a power of two; every modulus must be prime and satisfy
// q ≡ 1 (mod 2N) so that a primitive 2N-th root of unity exists. The
// product of Moduli (the ciphertext modulus Q of spec.md §3) must fit in a
// uint64: raw (composed, CRT-recombined) coefficients are stored as a
// single 64-bit word per spec.md §4.E.
type Ring struct {
	N      int
	Moduli []uint64
	Q      uint64

	// per-modulus NTT tables, indexed in the same order as Moduli.
	tables []nttTable

	// crtCoeff[i] = (Q/q_i) * ((Q/q_i)^{-1} mod q_i), reduced mod Q.
	// CRT recombination is sum_i residue_i * crtCoeff[i] mod Q.
	crtCoeff []uint64
}

type nttTable struct {
	q             uint64
	rootsForward  []uint64 // bit-reversed powers of the primitive 2N-th root
	rootsBackward []uint64 // bit-reversed powers of its inverse
	nInv          uint64   // N^{-1} mod q, in Montgomery-free plain form
}

// NewRing builds a [Ring] for the given ring dimension and modulus chain.
// It returns an error if N is not a power of two, or if any modulus is not
// prime, or not NTT-friendly for N (q % 2N != 1).
func NewRing(N int, moduli []uint64) (*Ring, error) {
	if N <= 0 || (N&(N-1)) != 0 {
		return nil, fmt.Errorf("ring: N=%d is not a power of two", N)
	}
	if len(moduli) == 0 {
		return nil, fmt.Errorf("ring: empty moduli list")
	}
	r := &Ring{N: N, Moduli: append([]uint64(nil), moduli...)}
	r.tables = make([]nttTable, len(moduli))
	for i, q := range moduli {
		if !isPrime(q) {
			return nil, fmt.Errorf("ring: modulus %d is not prime", q)
		}
		t, err := buildNTTTable(uint64(N), q)
		if err != nil {
			return nil, fmt.Errorf("ring: modulus %d: %w", q, err)
		}
		r.tables[i] = t
	}

	bigQ := big.NewInt(1)
	for _, q := range moduli {
		bigQ.Mul(bigQ, new(big.Int).SetUint64(q))
	}
	if bigQ.BitLen() > 64 {
		return nil, fmt.Errorf("ring: product of moduli %v exceeds 64 bits", moduli)
	}
	r.Q = bigQ.Uint64()

	r.crtCoeff = make([]uint64, len(moduli))
	for i, qi := range moduli {
		Mi := new(big.Int).Div(bigQ, new(big.Int).SetUint64(qi))
		MiModQi := new(big.Int).Mod(Mi, new(big.Int).SetUint64(qi)).Uint64()
		MiInv, err := invertUintMod(MiModQi, qi)
		if err != nil {
			return nil, fmt.Errorf("ring: modulus %d: CRT coefficient has no inverse", qi)
		}
		coeff := new(big.Int).Mul(Mi, new(big.Int).SetUint64(MiInv))
		coeff.Mod(coeff, bigQ)
		r.crtCoeff[i] = coeff.Uint64()
	}

	return r, nil
}

// crtCompose recombines one residue per modulus into a single value mod Q.
func (r *Ring) crtCompose(residues []uint64) uint64 {
	var acc uint64
	for i, ri := range residues {
		acc = addMod(acc, mulMod(ri, r.crtCoeff[i], r.Q), r.Q)
	}
	return acc
}

// Level returns the index of the last usable modulus (len(Moduli)-1).
func (r *Ring) Level() int {
	return len(r.Moduli) - 1
}

// AtModuli builds a new Ring of dimension N over the given explicit moduli
// list (used to build the q2-only ring in response decoding).
func AtModuli(N int, moduli []uint64) (*Ring, error) {
	return NewRing(N, moduli)
}

func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31} {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}
	// Miller-Rabin, deterministic bases sufficient for 64-bit integers.
	d := n - 1
	r := 0
	for d%2 == 0 {
		d /= 2
		r++
	}
	bases := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}
	for _, a := range bases {
		if a >= n {
			continue
		}
		if !mrWitness(a, d, r, n) {
			return false
		}
	}
	return true
}

func mrWitness(a, d uint64, r int, n uint64) bool {
	x := powMod(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := 0; i < r-1; i++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

// mulMod computes a*b mod q for q < 2^64 using 128-bit intermediates.
func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%q, lo, q)
	return rem
}

// powMod computes base^exp mod q.
func powMod(base, exp, q uint64) uint64 {
	base %= q
	result := uint64(1) % q
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, q)
		}
		base = mulMod(base, base, q)
		exp >>= 1
	}
	return result
}

// invertUintMod returns a^{-1} mod q, or an error if a has no inverse
// (gcd(a, q) != 1). q need not be prime.
func invertUintMod(a, q uint64) (uint64, error) {
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(a%q), new(big.Int).SetUint64(q))
	if inv == nil {
		return 0, fmt.Errorf("ring: %d has no inverse mod %d", a, q)
	}
	return inv.Uint64(), nil
}

// InvertUintMod is the exported form of invertUintMod, used by the query
// builder (scaling factors inv_2_g_first / inv_2_g_rest).
func InvertUintMod(a, q uint64) (uint64, error) {
	return invertUintMod(a, q)
}

// MultiplyUintMod computes a*b mod q.
func MultiplyUintMod(a, b, q uint64) uint64 {
	return mulMod(a, b, q)
}

// AddModQ, SubModQ, NegModQ and MulModQ expose the composed-modulus (mod Q)
// arithmetic primitives to other packages (gadget, rgsw, client) that need
// to operate directly on raw coefficients without an NTT round-trip, e.g.
// the Galois automorphism and gadget-matrix construction.
func (r *Ring) AddModQ(a, b uint64) uint64 { return addMod(a, b, r.Q) }
func (r *Ring) SubModQ(a, b uint64) uint64 { return subMod(a, b, r.Q) }
func (r *Ring) NegModQ(a uint64) uint64    { return negMod(a, r.Q) }
func (r *Ring) MulModQ(a, b uint64) uint64 { return mulMod(a, b, r.Q) }

// BitsPerDigit returns ceil(log2(Q) / digits), the gadget base exponent
// used throughout §4.F/§4.G (get_bits_per in client.rs).
func (r *Ring) BitsPerDigit(digits int) int {
	qBits := 64 - bits.LeadingZeros64(r.Q)
	return CeilDiv(qBits, digits)
}

// CeilDiv returns ceil(a/b) for any integer type, generalizing the
// gadget-width and bit-packing ceiling divisions used across this module
// (ring.BitsPerDigit, params.Params.ModPWordsPerChunk's byte-length callers).
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// Recenter re-expresses x (taken mod fromQ as a signed residue) as a
// non-negative residue mod toQ.
func Recenter(x, fromQ, toQ uint64) uint64 {
	v := int64(x)
	if v >= int64(fromQ/2) {
		v -= int64(fromQ)
	}
	v %= int64(toQ)
	if v < 0 {
		v += int64(toQ)
	}
	return uint64(v)
}

func buildNTTTable(N, q uint64) (nttTable, error) {
	if (q-1)%(2*N) != 0 {
		return nttTable{}, fmt.Errorf("q=%d is not NTT-friendly for N=%d (q%%2N != 1)", q, N)
	}
	root, err := findPrimitive2NthRoot(N, q)
	if err != nil {
		return nttTable{}, err
	}
	rootInv, err := invertUintMod(root, q)
	if err != nil {
		return nttTable{}, err
	}
	nInv, err := invertUintMod(N, q)
	if err != nil {
		return nttTable{}, err
	}

	logN := bits.TrailingZeros64(N)
	fwd := make([]uint64, N)
	bwd := make([]uint64, N)
	for i := uint64(0); i < N; i++ {
		br := bitReverse(i, logN)
		fwd[br] = powMod(root, i, q)
		bwd[br] = powMod(rootInv, i, q)
	}
	return nttTable{q: q, rootsForward: fwd, rootsBackward: bwd, nInv: nInv}, nil
}

func bitReverse(x uint64, bitsN int) uint64 {
	var r uint64
	for i := 0; i < bitsN; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

// findPrimitive2NthRoot searches for g such that g^N ≡ -1 (mod q), which
// makes g a primitive 2N-th root of unity (N a power of two, q prime).
func findPrimitive2NthRoot(N, q uint64) (uint64, error) {
	exp := (q - 1) / (2 * N)
	for g := uint64(2); g < q; g++ {
		cand := powMod(g, exp, q)
		if cand == 0 {
			continue
		}
		if powMod(cand, N, q) == q-1 {
			return cand, nil
		}
	}
	return 0, fmt.Errorf("no primitive 2N-th root of unity found mod %d", q)
}

