// Package gadget implements the gadget (power-of-base decomposition)
// matrix and the Galois automorphism used by the PIR client's query
// expansion and key-generation machinery (spec.md §4.F/§4.G). It narrows
// and renames the teacher's rlwe package (gadgetciphertext.go,
// evaluator_automorphism.go, digit_decomposition.go) to the single,
// fixed-shape decomposition this client needs, rather than lattigo's
// generic hybrid-basis digit decomposition.
package gadget

import "github.com/Pro7ech/spiralpir/ring"

// Build returns the rows x cols gadget matrix G over r, interleaved by
// row: G[row, col] = base^(col/rows) when col % rows == row, else 0,
// where base = 2^bitsPer and bitsPer = r.BitsPerDigit(cols/rows). This
// matches build_gadget in client.rs (e.g. build_gadget(params, 1, t_conv),
// build_gadget(params, 2, 2*t_conv)).
func Build(r *ring.Ring, rows, cols int) *ring.MatrixRaw {
	digits := cols / rows
	bitsPer := r.BitsPerDigit(digits)
	m := ring.NewMatrixRaw(r, rows, cols)
	for col := 0; col < cols; col++ {
		row := col % rows
		digit := col / rows
		poly := m.GetPoly(row, col)
		poly[0] = uint64(1) << uint(bitsPer*digit)
	}
	return m
}

// BitsPer is BitsPerDigit of r for the given digit count, exposed under
// the name used by client.rs's get_bits_per for call-site familiarity.
func BitsPer(r *ring.Ring, digits int) int {
	return r.BitsPerDigit(digits)
}
