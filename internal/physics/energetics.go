package physics

import "math"

// Substorm energy budget terms. Coefficients are empirical and supplied by
// the caller; outputs are in GW when the coefficients are.

// JouleHeating returns U_J = a·AE + b.
func JouleHeating(a, ae, b float64) float64 {
	return a*ae + b
}

// AuroralPrecipitation returns U_A = a·AE^γ + b.
func AuroralPrecipitation(a, ae, gamma, b float64) float64 {
	return a*math.Pow(ae, gamma) + b
}

// RingCurrent returns U_RC = -4e4 · (dDst*/dt + Dst*/τ) in GW, with Dst* in
// nT, dDst*/dt in nT/s and τ in seconds.
func RingCurrent(dDstDt, dstStar, tau float64) float64 {
	return -4e4 * (dDstDt + dstStar/tau)
}

// RingCurrentDecayTime returns the Kp-dependent decay time τ = 3/Kp in days.
func RingCurrentDecayTime(kp float64) float64 {
	return 3 / kp
}

// SecondsPerDay converts RingCurrentDecayTime to seconds.
const SecondsPerDay = 86400.0
