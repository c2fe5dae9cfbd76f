package physics

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when paired series differ in length.
var ErrLengthMismatch = errors.New("series length mismatch")

// PotentialProfile is the acceleration potential along an altitude grid.
type PotentialProfile struct {
	AltitudeKm []float64
	FieldNT    []float64 // dipole-scaled field used at each altitude
	Potential  []float64 // V
	PeakIndex  int
}

// Peak returns the altitude and value of the maximum potential.
func (p PotentialProfile) Peak() (altKm, volts float64) {
	if len(p.Potential) == 0 {
		return 0, 0
	}
	return p.AltitudeKm[p.PeakIndex], p.Potential[p.PeakIndex]
}

// NewPotentialProfile computes the Knight potential along altKm.
//
// densityCm3 is the plasma density (cm⁻³) and fieldNT the resampled field
// magnitude (nT) on the same grid. The ionospheric reference field is the
// maximum of fieldNT; the local field is that reference scaled as a dipole
// from refAltKm. j is the ionospheric current density in A/m².
func NewPotentialProfile(altKm, densityCm3, fieldNT []float64, j, refAltKm float64) (PotentialProfile, error) {
	if len(altKm) != len(densityCm3) || len(altKm) != len(fieldNT) {
		return PotentialProfile{}, fmt.Errorf("%w: altitude %d, density %d, field %d",
			ErrLengthMismatch, len(altKm), len(densityCm3), len(fieldNT))
	}
	if len(altKm) == 0 {
		return PotentialProfile{}, nil
	}

	b0 := fieldNT[0]
	for _, b := range fieldNT[1:] {
		if b > b0 {
			b0 = b
		}
	}

	p := PotentialProfile{
		AltitudeKm: altKm,
		FieldNT:    make([]float64, len(altKm)),
		Potential:  make([]float64, len(altKm)),
	}
	for i, h := range altKm {
		b := DipoleScaledField(b0, refAltKm, h)
		p.FieldNT[i] = b
		// nT cancels between b and b0, density goes to m⁻³
		p.Potential[i] = AccelerationPotential(j, b0, b, densityCm3[i]*1e6)
		if p.Potential[i] > p.Potential[p.PeakIndex] {
			p.PeakIndex = i
		}
	}
	return p, nil
}
