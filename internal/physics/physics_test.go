package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlfvenSpeed(t *testing.T) {
	// 20 nT lobe field, 0.1 cm⁻³
	b, n := 20e-9, 0.1e6
	want := b / math.Sqrt(Mu0*ProtonMass*n)
	assert.InDelta(t, want, AlfvenSpeed(b, n, ProtonMass), 1e-6)
	assert.InEpsilon(t, 1.38e6, AlfvenSpeed(b, n, ProtonMass), 0.01)
}

func TestAccelerationPotentialScalesWithBOverN(t *testing.T) {
	base := AccelerationPotential(1e-6, 50e-6, 1e-6, 1e8)
	assert.Greater(t, base, 0.0)

	// Doubling B/n quadruples Φ
	assert.InEpsilon(t, 4*base, AccelerationPotential(1e-6, 50e-6, 2e-6, 1e8), 1e-12)
	assert.InEpsilon(t, 4*base, AccelerationPotential(1e-6, 50e-6, 1e-6, 0.5e8), 1e-12)
}

func TestPedersenAndResistiveLength(t *testing.T) {
	sigma := PedersenConductivity(1e11, ProtonMass, 1e9)
	want := 1e11 * ElementaryCharge * ElementaryCharge / (ProtonMass * 1e9)
	assert.InEpsilon(t, want, sigma, 1e-12)

	k := KnightConductance(1e11, 1e-3)
	assert.Greater(t, k, 0.0)
	assert.InEpsilon(t, math.Sqrt(sigma/k), ResistiveLength(sigma, k), 1e-12)
}

func TestDipoleHelpers(t *testing.T) {
	assert.Equal(t, 5e3, DipoleDensity(5e3, 1))
	assert.InEpsilon(t, 5e3/8, DipoleDensity(5e3, 2), 1e-12)

	assert.Equal(t, 100.0, DipoleScaledField(100, 200, 200))
	assert.Less(t, DipoleScaledField(100, 200, 1000), 100.0)
}

func TestEnergetics(t *testing.T) {
	assert.InDelta(t, 150.0, JouleHeating(0.1, 1500, 0), 1e-9)
	assert.InDelta(t, 0.1*math.Pow(1500, 0.39), AuroralPrecipitation(0.1, 1500, 0.39, 0), 1e-12)

	tau := RingCurrentDecayTime(4)
	assert.Equal(t, 0.75, tau)
	assert.InDelta(t, -4e4*(-0.5+(-13/0.75)), RingCurrent(-0.5, -13, tau), 1e-6)
}

func TestPotentialProfile(t *testing.T) {
	alt := []float64{200, 500, 1000, 3000}
	density := []float64{1e5, 1e4, 1e3, 10}
	field := []float64{50000, 45000, 40000, 20000}

	p, err := NewPotentialProfile(alt, density, field, 1e-6, 200)
	require.NoError(t, err)
	require.Len(t, p.Potential, 4)
	assert.Equal(t, 50000.0, p.FieldNT[0])

	h, v := p.Peak()
	assert.Equal(t, 3000.0, h)
	for _, x := range p.Potential {
		assert.LessOrEqual(t, x, v)
	}

	_, err = NewPotentialProfile(alt, density[:2], field, 1e-6, 200)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
