package ring

import "fmt"

// MatrixRaw is a Rows x Cols matrix of degree-N polynomials in
// coefficient form. Each coefficient is stored as a single CRT-composed
// value in [0, Q), matching PolyMatrixRaw in the reference client.
type MatrixRaw struct {
	R          *Ring
	Rows, Cols int
	Data       []uint64 // len == Rows*Cols*N, row-major (row, col, coeff)
}

// MatrixNTT is a Rows x Cols matrix of degree-N polynomials in
// per-modulus NTT (evaluation) form, matching PolyMatrixNTT.
type MatrixNTT struct {
	R          *Ring
	Rows, Cols int
	Data       []uint64 // len == Rows*Cols*len(Moduli)*N, grouped (row, col, modulus, point)
}

// NewMatrixRaw allocates a zero matrix.
func NewMatrixRaw(r *Ring, rows, cols int) *MatrixRaw {
	return &MatrixRaw{R: r, Rows: rows, Cols: cols, Data: make([]uint64, rows*cols*r.N)}
}

// NewMatrixNTT allocates a zero matrix.
func NewMatrixNTT(r *Ring, rows, cols int) *MatrixNTT {
	return &MatrixNTT{R: r, Rows: rows, Cols: cols, Data: make([]uint64, rows*cols*len(r.Moduli)*r.N)}
}

// SingleValue returns a 1x1 raw matrix whose constant coefficient is value
// and whose remaining N-1 coefficients are zero (PolyMatrixRaw::single_value).
func SingleValue(r *Ring, value uint64) *MatrixRaw {
	m := NewMatrixRaw(r, 1, 1)
	m.Data[0] = value
	return m
}

// Identity returns a size x size raw matrix whose diagonal entries are the
// constant polynomial 1 and all other entries are zero.
func Identity(r *Ring, size int) *MatrixRaw {
	m := NewMatrixRaw(r, size, size)
	for i := 0; i < size; i++ {
		m.Data[(i*size+i)*r.N] = 1
	}
	return m
}

func (m *MatrixRaw) polyOffset(row, col int) int {
	return (row*m.Cols + col) * m.R.N
}

func (m *MatrixNTT) polyOffset(row, col int) int {
	return (row*m.Cols + col) * len(m.R.Moduli) * m.R.N
}

// GetPoly returns the N-word coefficient slice for (row, col). The slice
// aliases the matrix's backing array.
func (m *MatrixRaw) GetPoly(row, col int) []uint64 {
	off := m.polyOffset(row, col)
	return m.Data[off : off+m.R.N]
}

// GetResidue returns the N-word evaluation-point slice for (row, col) under
// the given modulus index.
func (m *MatrixNTT) GetResidue(row, col, modulusIdx int) []uint64 {
	N := m.R.N
	off := m.polyOffset(row, col) + modulusIdx*N
	return m.Data[off : off+N]
}

// Ntt transforms a raw matrix into NTT form, decomposing each composed
// coefficient into its residues and running the per-modulus forward NTT.
func (m *MatrixRaw) Ntt() *MatrixNTT {
	out := NewMatrixNTT(m.R, m.Rows, m.Cols)
	N := m.R.N
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			src := m.GetPoly(row, col)
			for mi, q := range m.R.Moduli {
				dst := out.GetResidue(row, col, mi)
				for c := 0; c < N; c++ {
					dst[c] = src[c] % q
				}
				m.R.nttForward(dst, mi)
			}
		}
	}
	return out
}

// Raw transforms an NTT matrix back into coefficient form, running the
// per-modulus inverse NTT and CRT-recombining the residues of each
// coefficient.
func (m *MatrixNTT) Raw() *MatrixRaw {
	out := NewMatrixRaw(m.R, m.Rows, m.Cols)
	N := m.R.N
	numModuli := len(m.R.Moduli)
	residues := make([]uint64, numModuli)
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			buf := make([][]uint64, numModuli)
			for mi := range m.R.Moduli {
				b := append([]uint64(nil), m.GetResidue(row, col, mi)...)
				m.R.nttBackward(b, mi)
				buf[mi] = b
			}
			dst := out.GetPoly(row, col)
			for c := 0; c < N; c++ {
				for mi := range m.R.Moduli {
					residues[mi] = buf[mi][c]
				}
				dst[c] = m.R.crtCompose(residues)
			}
		}
	}
	return out
}

// Add returns a+b element-wise, residue-wise mod each modulus.
func (a *MatrixNTT) Add(b *MatrixNTT) *MatrixNTT {
	mustSameShape(a.Rows, a.Cols, b.Rows, b.Cols)
	out := NewMatrixNTT(a.R, a.Rows, a.Cols)
	applyResidueWise(a.R, out.Data, a.Data, b.Data, addMod)
	return out
}

// Neg returns -a element-wise, residue-wise.
func (a *MatrixNTT) Neg() *MatrixNTT {
	out := NewMatrixNTT(a.R, a.Rows, a.Cols)
	N := a.R.N
	for row := 0; row < a.Rows; row++ {
		for col := 0; col < a.Cols; col++ {
			for mi, q := range a.R.Moduli {
				src := a.GetResidue(row, col, mi)
				dst := out.GetResidue(row, col, mi)
				for c := 0; c < N; c++ {
					dst[c] = negMod(src[c], q)
				}
			}
		}
	}
	return out
}

// ScalarMultiply multiplies every entry of a by the single-polynomial NTT
// matrix scalar (broadcasting its residues across every (row,col) of a).
func (a *MatrixNTT) ScalarMultiply(scalar *MatrixNTT) *MatrixNTT {
	out := NewMatrixNTT(a.R, a.Rows, a.Cols)
	N := a.R.N
	for row := 0; row < a.Rows; row++ {
		for col := 0; col < a.Cols; col++ {
			for mi, q := range a.R.Moduli {
				src := a.GetResidue(row, col, mi)
				sc := scalar.GetResidue(0, 0, mi)
				dst := out.GetResidue(row, col, mi)
				for c := 0; c < N; c++ {
					dst[c] = mulMod(src[c], sc[c], q)
				}
			}
		}
	}
	return out
}

// Multiply computes the matrix product a*b in NTT form (pointwise
// per-residue polynomial multiplication, summed over the shared dimension).
func (a *MatrixNTT) Multiply(b *MatrixNTT) *MatrixNTT {
	if a.Cols != b.Rows {
		panic(fmt.Errorf("ring: matrix shape mismatch in Multiply: %dx%d * %dx%d", a.Rows, a.Cols, b.Rows, b.Cols))
	}
	out := NewMatrixNTT(a.R, a.Rows, b.Cols)
	N := a.R.N
	for row := 0; row < a.Rows; row++ {
		for col := 0; col < b.Cols; col++ {
			for mi, q := range a.R.Moduli {
				dst := out.GetResidue(row, col, mi)
				for k := 0; k < a.Cols; k++ {
					ar := a.GetResidue(row, k, mi)
					br := b.GetResidue(k, col, mi)
					for c := 0; c < N; c++ {
						dst[c] = addMod(dst[c], mulMod(ar[c], br[c], q), q)
					}
				}
			}
		}
	}
	return out
}

// CopyInto writes src into the receiver starting at (rowOffset, colOffset).
func (m *MatrixNTT) CopyInto(src *MatrixNTT, rowOffset, colOffset int) {
	if rowOffset+src.Rows > m.Rows || colOffset+src.Cols > m.Cols {
		panic(fmt.Errorf("ring: CopyInto out of bounds: dst %dx%d, src %dx%d at (%d,%d)",
			m.Rows, m.Cols, src.Rows, src.Cols, rowOffset, colOffset))
	}
	for row := 0; row < src.Rows; row++ {
		for col := 0; col < src.Cols; col++ {
			for mi := range m.R.Moduli {
				copy(m.GetResidue(rowOffset+row, colOffset+col, mi), src.GetResidue(row, col, mi))
			}
		}
	}
}

// CopyInto writes src into the receiver starting at (rowOffset, colOffset).
func (m *MatrixRaw) CopyInto(src *MatrixRaw, rowOffset, colOffset int) {
	if rowOffset+src.Rows > m.Rows || colOffset+src.Cols > m.Cols {
		panic(fmt.Errorf("ring: CopyInto out of bounds: dst %dx%d, src %dx%d at (%d,%d)",
			m.Rows, m.Cols, src.Rows, src.Cols, rowOffset, colOffset))
	}
	for row := 0; row < src.Rows; row++ {
		for col := 0; col < src.Cols; col++ {
			copy(m.GetPoly(rowOffset+row, colOffset+col), src.GetPoly(row, col))
		}
	}
}

// PadTop returns a copy of m with k zero rows prepended.
func (m *MatrixNTT) PadTop(k int) *MatrixNTT {
	out := NewMatrixNTT(m.R, m.Rows+k, m.Cols)
	out.CopyInto(m, k, 0)
	return out
}

// Stack vertically concatenates a on top of b; both must share Cols.
func Stack(a, b *MatrixRaw) *MatrixRaw {
	if a.Cols != b.Cols {
		panic(fmt.Errorf("ring: Stack column mismatch: %d vs %d", a.Cols, b.Cols))
	}
	out := NewMatrixRaw(a.R, a.Rows+b.Rows, a.Cols)
	out.CopyInto(a, 0, 0)
	out.CopyInto(b, a.Rows, 0)
	return out
}

func mustSameShape(r1, c1, r2, c2 int) {
	if r1 != r2 || c1 != c2 {
		panic(fmt.Errorf("ring: shape mismatch: %dx%d vs %dx%d", r1, c1, r2, c2))
	}
}

func applyResidueWise(r *Ring, dst, a, b []uint64, op func(a, b, q uint64) uint64) {
	numModuli := len(r.Moduli)
	N := r.N
	polys := len(dst) / (numModuli * N)
	for p := 0; p < polys; p++ {
		for mi, q := range r.Moduli {
			base := p*numModuli*N + mi*N
			for c := 0; c < N; c++ {
				dst[base+c] = op(a[base+c], b[base+c], q)
			}
		}
	}
}
