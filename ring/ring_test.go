package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testRing(t *testing.T) *Ring {
	t.Helper()
	r, err := NewRing(16, []uint64{65537})
	require.NoError(t, err)
	return r
}

func TestNTTRoundTrip(t *testing.T) {
	r := testRing(t)
	m := NewMatrixRaw(r, 1, 1)
	for i := range m.Data {
		m.Data[i] = uint64(i * 3 % 65537)
	}
	got := m.Ntt().Raw()
	require.Equal(t, m.Data, got.Data)
}

func TestNTTIsLinear(t *testing.T) {
	r := testRing(t)
	a := NewMatrixRaw(r, 1, 1)
	b := NewMatrixRaw(r, 1, 1)
	for i := range a.Data {
		a.Data[i] = uint64(i + 1)
		b.Data[i] = uint64(2*i + 5)
	}

	sumThenNtt := NewMatrixRaw(r, 1, 1)
	for i := range sumThenNtt.Data {
		sumThenNtt.Data[i] = addMod(a.Data[i], b.Data[i], r.Q)
	}
	lhs := sumThenNtt.Ntt()
	rhs := a.Ntt().Add(b.Ntt())
	require.Equal(t, lhs.Data, rhs.Data)
}

func TestMulModNoOverflow(t *testing.T) {
	q := uint64(18446744073709551557) // largest 64-bit prime
	got := mulMod(q-1, q-1, q)
	require.Equal(t, uint64(1), got)
}

func TestInvertUintMod(t *testing.T) {
	q := uint64(65537)
	for _, a := range []uint64{1, 2, 3, 12345, 65536} {
		inv, err := invertUintMod(a, q)
		require.NoError(t, err)
		require.Equal(t, uint64(1), mulMod(a, inv, q))
	}
}

func TestRecenterKeepsSmallNegative(t *testing.T) {
	fromQ := uint64(65537)
	toQ := uint64(12289)
	// a value near zero should stay near zero under recentering
	got := Recenter(fromQ-1, fromQ, toQ) // represents -1
	require.Equal(t, toQ-1, got)
}

func TestCeilDiv(t *testing.T) {
	require.Equal(t, 3, CeilDiv(7, 3))
	require.Equal(t, 2, CeilDiv(6, 3))
	require.Equal(t, 1, CeilDiv(1, 3))
}

func TestIsPrime(t *testing.T) {
	require.True(t, isPrime(65537))
	require.False(t, isPrime(65536))
	require.False(t, isPrime(1))
	require.True(t, isPrime(2))
}

func TestUniformSamplerDeterministic(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	r := testRing(t)

	src1, err := PublicSource(seed)
	require.NoError(t, err)
	src2, err := PublicSource(seed)
	require.NoError(t, err)

	u1 := NewUniformSampler(src1, r)
	u2 := NewUniformSampler(src2, r)

	m1, err := u1.RandomRaw(1, 3)
	require.NoError(t, err)
	m2, err := u2.RandomRaw(1, 3)
	require.NoError(t, err)
	require.Equal(t, m1.Data, m2.Data)
}
