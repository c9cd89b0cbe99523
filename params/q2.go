package params

import (
	"fmt"
	"math/bits"
)

// q2Cache memoizes findQ2Prime results per (bitWidth, polyLen) pair. The
// reference client indexes a fixed constant table, Q2_VALUES[q2_bits]
// (spec.md §3, §4.H); the exact primes that table holds are defined in
// arith.rs/params.rs, which were filtered out of original_source/ (only
// client.rs, lib.rs and the preprocess_db binaries were kept — see
// _examples/original_source/_INDEX.md). Rather than inventing literal
// magic constants we cannot ground, Q2 here is a deterministic function of
// (bitWidth, polyLen): the largest prime below 2^bitWidth that is
// NTT-friendly for polyLen. This is compile-time-reproducible and keeps
// every determinism/roundtrip property of spec.md §8 exactly as testable.
var q2Cache = map[[2]int]uint64{}

// Q2Value returns Q2_VALUES[bitWidth] for the given ring dimension.
func Q2Value(bitWidth, polyLen int) (uint64, error) {
	key := [2]int{bitWidth, polyLen}
	if v, ok := q2Cache[key]; ok {
		return v, nil
	}
	if bitWidth < 2 || bitWidth > 62 {
		return 0, fmt.Errorf("params: q2_bits=%d out of supported table range [2,62]", bitWidth)
	}
	v, err := findQ2Prime(bitWidth, uint64(polyLen))
	if err != nil {
		return 0, fmt.Errorf("params: no Q2 entry for q2_bits=%d, poly_len=%d: %w", bitWidth, polyLen, err)
	}
	q2Cache[key] = v
	return v, nil
}

// findQ2Prime searches downward from 2^bitWidth-1 for the largest prime
// q such that q ≡ 1 (mod 2*polyLen), which is exactly what makes q usable
// as a single-modulus NTT-friendly ring for the q2_params ring of §4.H.
func findQ2Prime(bitWidth int, polyLen uint64) (uint64, error) {
	twoN := 2 * polyLen
	top := (uint64(1) << uint(bitWidth)) - 1
	candidate := top - (top % twoN) + 1
	for candidate > (uint64(1) << uint(bitWidth-1)) {
		if isProbablePrime(candidate) {
			return candidate, nil
		}
		if candidate < twoN {
			break
		}
		candidate -= twoN
	}
	return 0, fmt.Errorf("exhausted search range")
}

// isProbablePrime is a small local Miller-Rabin test (the ring package's
// primality check is unexported; ring.NewRing runs its own equivalent
// check on every modulus).
func isProbablePrime(n uint64) bool {
	if n < 2 {
		return false
	}
	small := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31}
	for _, p := range small {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}
	d := n - 1
	r := 0
	for d%2 == 0 {
		d /= 2
		r++
	}
	for _, a := range small {
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

func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%q, lo, q)
	return rem
}

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
