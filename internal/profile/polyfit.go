package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// InsufficientSamplesError reports a fit with fewer samples than
// coefficients.
type InsufficientSamplesError struct {
	Required  int
	Available int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples for fit: need %d, have %d", e.Required, e.Available)
}

// Polynomial holds coefficients in ascending order: c[0] + c[1]x + ...
type Polynomial []float64

// Eval evaluates the polynomial at x (Horner's rule).
func (p Polynomial) Eval(x float64) float64 {
	var r float64
	for i := len(p) - 1; i >= 0; i-- {
		r = r*x + p[i]
	}
	return r
}

// Degree returns the polynomial degree.
func (p Polynomial) Degree() int {
	return len(p) - 1
}

// Fit returns the least-squares polynomial of the given degree through
// (xs, ys). Vandermonde columns are scaled to unit norm before the QR solve
// and the scaling is undone afterwards, which keeps high-degree fits over
// large abscissae (altitudes in km) usable.
//
// An ill-conditioned system is not an error: the solution is still returned,
// as a rank warning would be in an interactive session.
func Fit(xs, ys []float64, degree int) (Polynomial, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if degree < 0 {
		return nil, fmt.Errorf("negative degree %d", degree)
	}
	cols := degree + 1
	if len(xs) < cols {
		return nil, &InsufficientSamplesError{Required: cols, Available: len(xs)}
	}

	rows := len(xs)
	a := mat.NewDense(rows, cols, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}

	scale := make([]float64, cols)
	for j := 0; j < cols; j++ {
		norm := mat.Norm(a.ColView(j), 2)
		if norm == 0 || math.IsInf(norm, 0) {
			norm = 1
		}
		scale[j] = norm
		for i := 0; i < rows; i++ {
			a.Set(i, j, a.At(i, j)/norm)
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, mat.NewVecDense(rows, append([]float64(nil), ys...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("least squares: %w", err)
		}
	}

	out := make(Polynomial, cols)
	for j := range out {
		out[j] = coef.AtVec(j) / scale[j]
	}
	return out, nil
}
