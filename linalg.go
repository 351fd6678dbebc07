package jurassic

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// symAdd returns a+b for two same-size symmetric matrices. gonum's
// mat.SymDense does not expose a symmetric-preserving Add, so this walks
// the upper triangle directly.
func symAdd(a, b *mat.SymDense) *mat.SymDense {
	n, _ := a.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

// symScale returns s*a for a symmetric matrix a.
func symScale(s float64, a *mat.SymDense) *mat.SymDense {
	n, _ := a.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, s*a.At(i, j))
		}
	}
	return out
}

// choleskyInvert returns the inverse of a symmetric positive-definite
// matrix via its Cholesky factorization, matching the original's
// matrix_invert, which is used both to turn S_a into S_a^-1 and, when
// error analysis is requested, to turn (K^T S_eps^-1 K + S_a^-1) into the
// retrieved covariance.
func choleskyInvert(a *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("jurassic: matrix is not positive-definite")
	}
	n, _ := a.Dims()
	inv := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, fmt.Errorf("jurassic: inverting matrix: %w", err)
	}
	return inv, nil
}

// choleskySolve solves a*x = b for a symmetric positive-definite a, as the
// Levenberg-Marquardt inner loop's linear solve (retrieval.c's
// matrix_invert + matrix_vector applied to the damped normal equations).
func choleskySolve(a *mat.SymDense, b []float64) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("jurassic: lm step matrix is not positive-definite")
	}
	bv := mat.NewVecDense(len(b), b)
	var xv mat.VecDense
	if err := chol.SolveVecTo(&xv, bv); err != nil {
		return nil, fmt.Errorf("jurassic: solving lm step: %w", err)
	}
	out := make([]float64, len(b))
	for i := range out {
		out[i] = xv.AtVec(i)
	}
	return out, nil
}

// weightedJtWJ returns K^T diag(w.^2) K as a symmetric matrix (the
// "cov" term of the normal equations, built from the per-measurement
// inverse-sigma weights).
func weightedJtWJ(k *mat.Dense, w []float64) *mat.SymDense {
	m, n := k.Dims()
	out := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			var sum float64
			for i := 0; i < m; i++ {
				sum += w[i] * w[i] * k.At(i, a) * k.At(i, b)
			}
			out.SetSym(a, b, sum)
		}
	}
	return out
}

// weightedJtWv returns K^T diag(w.^2) v.
func weightedJtWv(k *mat.Dense, w, v []float64) []float64 {
	m, n := k.Dims()
	out := make([]float64, n)
	for a := 0; a < n; a++ {
		var sum float64
		for i := 0; i < m; i++ {
			sum += w[i] * w[i] * k.At(i, a) * v[i]
		}
		out[a] = sum
	}
	return out
}

// symVec returns a*v for symmetric a and vector v.
func symVec(a *mat.SymDense, v []float64) []float64 {
	n, _ := a.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += a.At(i, j) * v[j]
		}
		out[i] = sum
	}
	return out
}

func dotProduct(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func vecSub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func vecAdd(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}
