package derive

import (
	"errors"
	"fmt"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
	"github.com/KI7MT/ki7mt-space-lab/internal/physics"
)

// ErrEmptyInterval is returned when no rows fall inside a requested interval.
var ErrEmptyInterval = errors.New("no rows in interval")

// EnergeticsParams holds the empirical substorm coefficients.
type EnergeticsParams struct {
	JouleA, JouleB   float64
	PrecipA, PrecipB float64
	PrecipGamma      float64
}

// DefaultEnergeticsParams returns the coefficients used in the course
// exercises.
func DefaultEnergeticsParams() EnergeticsParams {
	return EnergeticsParams{JouleA: 0.1, PrecipA: 0.1, PrecipGamma: 0.39}
}

// SubstormEnergy is the magnetospheric energy budget over one interval.
// Powers are in GW, energies in GJ.
type SubstormEnergy struct {
	Duration time.Duration
	MeanAE   float64 // nT
	DstStart float64 // nT, SYM-H at the first row
	DstEnd   float64 // nT, SYM-H at the last row
	Tau      time.Duration

	Joule       float64
	Precip      float64
	RingCurrent float64

	JouleEnergy       float64
	PrecipEnergy      float64
	RingCurrentEnergy float64
}

// Total returns the summed dissipated energy in GJ.
func (e SubstormEnergy) Total() float64 {
	return e.JouleEnergy + e.PrecipEnergy + e.RingCurrentEnergy
}

// Substorm computes the energy budget for rows in [from, to] using the mean
// AE index for the ionospheric terms and the SYM-H change across the
// interval for the ring current. kp sets the ring current decay time.
func Substorm(rows []omni.FilteredRow, from, to time.Time, kp float64, p EnergeticsParams) (SubstormEnergy, error) {
	if !(kp > 0) {
		return SubstormEnergy{}, fmt.Errorf("kp must be positive, got %g", kp)
	}

	var (
		in    []omni.FilteredRow
		sumAE float64
	)
	for _, r := range rows {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		ae, ok := r.Value(omni.FieldAEIndex)
		if !ok {
			return SubstormEnergy{}, fmt.Errorf("%s: %w: %q", r.Timestamp.Format(omni.DatetimeLayout), omni.ErrMissingField, omni.FieldAEIndex)
		}
		if _, ok := r.Value(omni.FieldSYMHIndex); !ok {
			return SubstormEnergy{}, fmt.Errorf("%s: %w: %q", r.Timestamp.Format(omni.DatetimeLayout), omni.ErrMissingField, omni.FieldSYMHIndex)
		}
		sumAE += ae
		in = append(in, r)
	}
	if len(in) == 0 {
		return SubstormEnergy{}, ErrEmptyInterval
	}

	first, last := in[0], in[len(in)-1]
	dstStart, _ := first.Value(omni.FieldSYMHIndex)
	dstEnd, _ := last.Value(omni.FieldSYMHIndex)

	e := SubstormEnergy{
		Duration: last.Timestamp.Sub(first.Timestamp),
		MeanAE:   sumAE / float64(len(in)),
		DstStart: dstStart,
		DstEnd:   dstEnd,
	}
	tauSec := physics.RingCurrentDecayTime(kp) * physics.SecondsPerDay
	e.Tau = time.Duration(tauSec * float64(time.Second))

	var dDstDt float64
	if secs := e.Duration.Seconds(); secs > 0 {
		dDstDt = (dstEnd - dstStart) / secs
	}

	e.Joule = physics.JouleHeating(p.JouleA, e.MeanAE, p.JouleB)
	e.Precip = physics.AuroralPrecipitation(p.PrecipA, e.MeanAE, p.PrecipGamma, p.PrecipB)
	e.RingCurrent = physics.RingCurrent(dDstDt, dstEnd, tauSec)

	secs := e.Duration.Seconds()
	e.JouleEnergy = e.Joule * secs
	e.PrecipEnergy = e.Precip * secs
	e.RingCurrentEnergy = e.RingCurrent * secs
	return e, nil
}
