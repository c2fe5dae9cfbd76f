package profile

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for an unusable ExtendConfig.
var ErrInvalidConfig = errors.New("invalid extend config")

// ExtendConfig controls the tail fit and the extended altitude grid.
// Altitudes are in km, densities in cm⁻³.
type ExtendConfig struct {
	MinAltitude    float64 // density samples below are dropped
	FitCutoff      float64 // fit uses samples at or above this altitude
	Degree         int
	ExtensionStart float64
	ExtensionEnd   float64 // exclusive
	ExtensionStep  float64
	Floor          float64 // added to every density sample
}

// DefaultExtendConfig returns the settings used for the FAST density
// profiles.
func DefaultExtendConfig() ExtendConfig {
	return ExtendConfig{
		MinAltitude:    200,
		FitCutoff:      1000,
		Degree:         7,
		ExtensionStart: 2000,
		ExtensionEnd:   1e5,
		ExtensionStep:  10,
		Floor:          0.1,
	}
}

// MaxExtensionPoints bounds the number of extended grid samples.
const MaxExtensionPoints = 1 << 24

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the grid and fit settings. All altitudes must be finite
// and the floor strictly positive so extrapolated density stays above zero.
func (c ExtendConfig) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"min altitude", c.MinAltitude},
		{"fit cutoff", c.FitCutoff},
		{"extension start", c.ExtensionStart},
		{"extension end", c.ExtensionEnd},
		{"step", c.ExtensionStep},
		{"floor", c.Floor},
	} {
		if !finite(v.val) {
			return fmt.Errorf("%w: %s %g", ErrInvalidConfig, v.name, v.val)
		}
	}

	switch {
	case c.Degree < 0:
		return fmt.Errorf("%w: degree %d", ErrInvalidConfig, c.Degree)
	case !(c.ExtensionStep > 0):
		return fmt.Errorf("%w: step %g", ErrInvalidConfig, c.ExtensionStep)
	case c.ExtensionEnd < c.ExtensionStart:
		return fmt.Errorf("%w: extension end %g before start %g", ErrInvalidConfig, c.ExtensionEnd, c.ExtensionStart)
	case (c.ExtensionEnd-c.ExtensionStart)/c.ExtensionStep > MaxExtensionPoints:
		return fmt.Errorf("%w: more than %d extension points", ErrInvalidConfig, MaxExtensionPoints)
	case !(c.Floor > 0):
		return fmt.Errorf("%w: floor %g must be positive", ErrInvalidConfig, c.Floor)
	}
	return nil
}

// Extend fits the reciprocal of the density tail and appends the
// extrapolated samples past the last measured altitude. The returned profile
// has Floor added to every sample. Extrapolated values that are not finite
// and positive contribute zero before the floor.
func Extend(density Profile, cfg ExtendConfig) (Profile, Polynomial, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	d := density.Normalize().AtLeast(cfg.MinAltitude)
	if len(d) == 0 {
		return nil, nil, fmt.Errorf("density at or above %g km: %w", cfg.MinAltitude, ErrEmptyProfile)
	}

	tail := d.AtLeast(cfg.FitCutoff)
	recip := make([]float64, len(tail))
	for i, s := range tail {
		if !(s.Y > 0) {
			return nil, nil, fmt.Errorf("non-positive density %g at %g km", s.Y, s.X)
		}
		recip[i] = 1 / s.Y
	}

	poly, err := Fit(tail.Xs(), recip, cfg.Degree)
	if err != nil {
		return nil, nil, fmt.Errorf("density tail fit: %w", err)
	}

	last := d[len(d)-1].X
	out := make(Profile, 0, len(d)+int((cfg.ExtensionEnd-cfg.ExtensionStart)/cfg.ExtensionStep)+1)
	out = append(out, d...)
	for i := 0; ; i++ {
		x := cfg.ExtensionStart + float64(i)*cfg.ExtensionStep
		if x >= cfg.ExtensionEnd {
			break
		}
		if x <= last {
			continue
		}
		y := 1 / poly.Eval(x)
		if !(y > 0) || math.IsInf(y, 0) {
			y = 0
		}
		out = append(out, Sample{X: x, Y: y})
	}

	for i := range out {
		out[i].Y += cfg.Floor
	}
	return out, poly, nil
}

// ExtendAndInterpolate extends the density profile past its measured range
// and resamples the field profile onto the same altitude grid. The field
// profile is clipped to the extended range first; beyond its own range it
// holds its boundary values.
func ExtendAndInterpolate(density, field Profile, cfg ExtendConfig) (Profile, Profile, error) {
	ext, _, err := Extend(density, cfg)
	if err != nil {
		return nil, nil, err
	}

	f := field.Normalize().AtMost(ext[len(ext)-1].X)
	if len(f) == 0 {
		return nil, nil, fmt.Errorf("field within extended range: %w", ErrEmptyProfile)
	}
	return ext, f.Resample(ext.Xs()), nil
}
