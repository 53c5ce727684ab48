package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SymTol is the default absolute tolerance used by symmetry and definiteness checks
const SymTol = 1e-9

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// IsSymmetric returns true if m is a square matrix whose elements
// mirrored across the diagonal differ by at most tol relative to their magnitude.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
			if math.Abs(a-b) > tol*scale {
				return false
			}
		}
	}

	return true
}

// Symmetrize returns symmetric matrix (m + m')/2.
// It panics if m is not square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrShape)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s
}

// IsPSD returns true if all eigenvalues of s are larger than -tol scaled by the largest eigenvalue magnitude.
// It returns false if the eigen decomposition of s fails.
func IsPSD(s mat.Symmetric, tol float64) bool {
	var es mat.EigenSym
	if ok := es.Factorize(s, false); !ok {
		return false
	}

	vals := es.Values(nil)
	if len(vals) == 0 {
		return true
	}

	scale := math.Max(1, floats.Max(vals))
	return floats.Min(vals) >= -tol*scale
}

// Eye returns n x n identity matrix
func Eye(n int) *mat.DiagDense {
	eye := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetDiag(i, 1.0)
	}

	return eye
}
