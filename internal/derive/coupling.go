package derive

import (
	"fmt"
	"math"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
	"github.com/KI7MT/ki7mt-space-lab/internal/physics"
)

// DefaultCouplingLength is the Akasofu l0 scale (7 Earth radii, metres).
const DefaultCouplingLength = 7 * physics.EarthRadiusM

// CouplingSample is one minute of solar-wind/magnetosphere coupling.
type CouplingSample struct {
	Timestamp  time.Time
	BTotal     float64 // |B| in nT
	ClockAngle float64 // radians
	FlowSpeed  float64 // km/s
	Epsilon    float64 // W
}

// Epsilon returns the Akasofu energy coupling function in watts:
//
//	ε = (4π/μ0) · V · B² · sin⁴(θ/2) · l0²
//
// with V in m/s, B in tesla, θ the clock angle and l0 in metres.
func Epsilon(v, b, theta, l0 float64) float64 {
	s := math.Sin(theta / 2)
	return (4 * math.Pi / physics.Mu0) * v * b * b * s * s * s * s * l0 * l0
}

// CouplingSeries computes field magnitude, clock angle and ε for rows whose
// timestamp lies in [from, to]. Rows must carry Bx, By, Bz and flow speed
// in source units; the unit table converts them for ε.
func CouplingSeries(rows []omni.FilteredRow, units UnitTable, from, to time.Time, l0 float64) ([]CouplingSample, error) {
	var out []CouplingSample
	for _, row := range rows {
		if row.Timestamp.Before(from) || row.Timestamp.After(to) {
			continue
		}

		var vals [4]float64
		for i, name := range []string{omni.FieldBx, omni.FieldBy, omni.FieldBz, omni.FieldFlowSpeed} {
			v, ok := row.Value(name)
			if !ok {
				return nil, fmt.Errorf("%s: %w: %q", row.Timestamp.Format(omni.DatetimeLayout), omni.ErrMissingField, name)
			}
			vals[i] = v
		}
		bx, by, bz, speed := vals[0], vals[1], vals[2], vals[3]

		bTotal := Magnitude(bx, by, bz)
		theta := ClockAngle(by, bz)

		bTesla, err := units.Convert(omni.FieldBx, bTotal)
		if err != nil {
			return nil, err
		}
		speedSI, err := units.Convert(omni.FieldFlowSpeed, speed)
		if err != nil {
			return nil, err
		}

		out = append(out, CouplingSample{
			Timestamp:  row.Timestamp,
			BTotal:     bTotal,
			ClockAngle: theta,
			FlowSpeed:  speed,
			Epsilon:    Epsilon(speedSI, bTesla, theta, l0),
		})
	}
	return out, nil
}

// EnergyInput integrates ε over uniformly spaced samples (rectangle rule),
// returning joules. NaN samples are skipped.
func EnergyInput(samples []CouplingSample, dt time.Duration) float64 {
	var sum float64
	for _, s := range samples {
		if math.IsNaN(s.Epsilon) {
			continue
		}
		sum += s.Epsilon
	}
	return sum * dt.Seconds()
}

// EpsilonSeries returns the ε values of samples in order.
func EpsilonSeries(samples []CouplingSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Epsilon
	}
	return out
}

// PeakEpsilon returns the index of the largest non-NaN ε. ok is false when
// every sample is NaN or samples is empty.
func PeakEpsilon(samples []CouplingSample) (idx int, ok bool) {
	idx = -1
	for i, s := range samples {
		if math.IsNaN(s.Epsilon) {
			continue
		}
		if idx < 0 || s.Epsilon > samples[idx].Epsilon {
			idx = i
		}
	}
	return idx, idx >= 0
}
