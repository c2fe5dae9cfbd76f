// Package derive computes physical quantities from filtered OMNI rows:
// field magnitudes, unit vectors, clock angles, unit conversions, smoothing,
// and solar-wind energy coupling.
package derive

import "math"

// Magnitude returns sqrt(x² + y² + z²).
func Magnitude(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Normalize returns the unit vector of (x, y, z). A zero vector has no
// direction; every component is NaN in that case.
func Normalize(x, y, z float64) (nx, ny, nz float64) {
	m := Magnitude(x, y, z)
	if m == 0 {
		nan := math.NaN()
		return nan, nan, nan
	}
	return x / m, y / m, z / m
}

// ClockAngle returns atan2(by, bz) in radians, range (-π, π]. A negative
// zero By (e.g. "-0.00") with southward Bz maps to π, not -π.
func ClockAngle(by, bz float64) float64 {
	theta := math.Atan2(by, bz)
	if theta == -math.Pi {
		return math.Pi
	}
	return theta
}
