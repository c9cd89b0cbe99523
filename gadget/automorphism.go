package gadget

import "github.com/Pro7ech/spiralpir/ring"

// Automorphism applies the Galois ring map X -> X^t to every polynomial of
// m (tau_t in spec.md §4.F, "Automorphism τ_t" in the glossary). t must be
// odd (true for every t_i = N/2^i + 1 used by generate_expansion_params),
// which makes i -> i*t mod 2N a bijection on Z/2N and so this never needs
// to accumulate more than one contribution per destination coefficient.
func Automorphism(m *ring.MatrixRaw, t uint64) *ring.MatrixRaw {
	r := m.R
	N := uint64(r.N)
	twoN := 2 * N
	out := ring.NewMatrixRaw(r, m.Rows, m.Cols)
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			src := m.GetPoly(row, col)
			dst := out.GetPoly(row, col)
			for i := uint64(0); i < N; i++ {
				j := (i * t) % twoN
				if j < N {
					dst[j] = r.AddModQ(dst[j], src[i])
				} else {
					dst[j-N] = r.SubModQ(dst[j-N], src[i])
				}
			}
		}
	}
	return out
}
