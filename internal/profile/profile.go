// Package profile handles sampled altitude profiles: density-vs-altitude
// and field-vs-altitude series, their polynomial tail extrapolation, and
// resampling onto a shared altitude grid.
package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrEmptyProfile is returned when a profile has no usable samples.
	ErrEmptyProfile = errors.New("empty profile")

	// ErrNotIncreasing is returned when X is not strictly increasing.
	ErrNotIncreasing = errors.New("profile X not strictly increasing")

	// ErrLengthMismatch is returned when X and Y slices differ in length.
	ErrLengthMismatch = errors.New("x/y length mismatch")
)

// Sample is one (independent, dependent) pair.
type Sample struct {
	X float64
	Y float64
}

// Profile is a series of samples ordered by X.
type Profile []Sample

// New pairs xs with ys.
func New(xs, ys []float64) (Profile, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	p := make(Profile, len(xs))
	for i := range xs {
		p[i] = Sample{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// Normalize returns a copy sorted by X with duplicate X values removed;
// the first sample in source order wins.
func (p Profile) Normalize() Profile {
	out := make(Profile, len(p))
	copy(out, p)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })

	n := 0
	for i, s := range out {
		if i > 0 && s.X == out[n-1].X {
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}

// Validate checks that X is strictly increasing.
func (p Profile) Validate() error {
	for i := 1; i < len(p); i++ {
		if !(p[i].X > p[i-1].X) {
			return fmt.Errorf("%w at index %d (%g after %g)", ErrNotIncreasing, i, p[i].X, p[i-1].X)
		}
	}
	return nil
}

// AtLeast returns the samples with X >= min.
func (p Profile) AtLeast(min float64) Profile {
	var out Profile
	for _, s := range p {
		if s.X >= min {
			out = append(out, s)
		}
	}
	return out
}

// AtMost returns the samples with X <= max.
func (p Profile) AtMost(max float64) Profile {
	var out Profile
	for _, s := range p {
		if s.X <= max {
			out = append(out, s)
		}
	}
	return out
}

// Xs returns the independent values.
func (p Profile) Xs() []float64 {
	out := make([]float64, len(p))
	for i, s := range p {
		out[i] = s.X
	}
	return out
}

// Ys returns the dependent values.
func (p Profile) Ys() []float64 {
	out := make([]float64, len(p))
	for i, s := range p {
		out[i] = s.Y
	}
	return out
}

// ReadTwoColumn reads whitespace-separated (x, y) pairs. Lines whose first
// two tokens are not numbers are headers and are skipped; extra columns are
// ignored.
func ReadTwoColumn(r io.Reader) (Profile, error) {
	var p Profile
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(tokens[0], 64)
		y, errY := strconv.ParseFloat(tokens[1], 64)
		if errX != nil || errY != nil {
			if len(p) > 0 {
				return p, fmt.Errorf("line %d: non-numeric data %q", lineNo, scanner.Text())
			}
			continue
		}
		p = append(p, Sample{X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return p, err
	}
	return p, nil
}

// ReadFile reads a two-column profile from path.
func ReadFile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ReadTwoColumn(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
