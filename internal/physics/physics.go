// Package physics holds closed-form plasma and magnetospheric formulas.
// All inputs and outputs are SI unless a name says otherwise.
package physics

import "math"

// Physical constants.
const (
	Mu0              = 4 * math.Pi * 1e-7 // vacuum permeability, H/m
	ProtonMass       = 1.67e-27           // kg
	ElectronMass     = 9.11e-31           // kg
	ElementaryCharge = 1.6e-19            // C
	EarthRadiusKm    = 6371.0
	EarthRadiusM     = EarthRadiusKm * 1e3
)

// AlfvenSpeed returns B / sqrt(μ0 · m · n) in m/s for field b (T), number
// density n (m⁻³) and ion mass m (kg).
func AlfvenSpeed(b, n, ionMass float64) float64 {
	return b / math.Sqrt(Mu0*ionMass*n)
}

// AccelerationPotential returns the Knight-relation field-aligned
// acceleration potential in volts:
//
//	Φ = m_e j² / (2 e³ B_I²) · (B / n)²
//
// for ionospheric current density j (A/m²), ionospheric field bI (T), local
// field b (T) and density n (m⁻³).
func AccelerationPotential(j, bI, b, n float64) float64 {
	e3 := ElementaryCharge * ElementaryCharge * ElementaryCharge
	r := b / n
	return ElectronMass * j * j / (2 * e3 * bI * bI) * r * r
}

// PedersenConductivity returns n e² / (m_i ν) in S/m.
func PedersenConductivity(n, ionMass, collisionFreq float64) float64 {
	return n * ElementaryCharge * ElementaryCharge / (ionMass * collisionFreq)
}

// KnightConductance returns K = e² n / sqrt(2π m_e K_th).
func KnightConductance(n, kTh float64) float64 {
	return ElementaryCharge * ElementaryCharge * n / math.Sqrt(2*math.Pi*ElectronMass*kTh)
}

// ResistiveLength returns sqrt(σ_P / K).
func ResistiveLength(sigmaP, k float64) float64 {
	return math.Sqrt(sigmaP / k)
}

// DipoleDensity returns n0 · (1/r)³ for r in Earth radii.
func DipoleDensity(n0, r float64) float64 {
	return n0 / (r * r * r)
}

// DipoleScaledField scales b0 measured at altitude h0 (km) to altitude h
// (km) as ((Re + h0) / (Re + h))².
func DipoleScaledField(b0, h0, h float64) float64 {
	q := (EarthRadiusKm + h0) / (EarthRadiusKm + h)
	return b0 * q * q
}
