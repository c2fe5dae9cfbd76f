// Package fieldline reads traced geomagnetic field lines in GSM coordinates
// and derives per-point quantities along them.
package fieldline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/KI7MT/ki7mt-space-lab/internal/derive"
	"github.com/KI7MT/ki7mt-space-lab/internal/physics"
	"github.com/KI7MT/ki7mt-space-lab/internal/profile"
)

// Column layout: XGSM YGSM ZGSM Radius BXGSM BYGSM BZGSM B
const numColumns = 8

// UnknownStation is reported when a file name carries no station code.
const UnknownStation = "Unknown"

// DefaultFilePrefix selects traced-line files in a directory.
const DefaultFilePrefix = "B_311"

// DefaultBaseDensity is the equatorial-surface density (cm⁻³) of the dipole
// density model n0 · r⁻³.
const DefaultBaseDensity = 5e3

// ErrMalformedLine is returned for a numeric row with too few columns.
var ErrMalformedLine = errors.New("malformed field-line row")

var stationPattern = regexp.MustCompile(`B_311_\d{4}_\d{4}TT_(\w{3})_\d{2}\.txt`)

// Point is one traced position with its field vector. Positions are in
// Earth radii, field in nT.
type Point struct {
	X, Y, Z float64
	Radius  float64
	Bx      float64
	By      float64
	Bz      float64
	B       float64
}

// Unit returns the field direction at the point; NaN for a zero field.
func (p Point) Unit() (x, y, z float64) {
	return derive.Normalize(p.Bx, p.By, p.Bz)
}

// AltitudeKm returns the altitude above the surface.
func (p Point) AltitudeKm() float64 {
	return p.Radius*physics.EarthRadiusKm - physics.EarthRadiusKm
}

// Line is one traced field line.
type Line struct {
	Name    string
	Station string
	Points  []Point
}

// StationCode extracts the three-letter station code from a file name such
// as B_311_2015_2001TT_LYR_17.txt.
func StationCode(name string) string {
	m := stationPattern.FindStringSubmatch(name)
	if m == nil {
		return UnknownStation
	}
	return m[1]
}

// Read parses field-line rows. Lines that do not start with a number are
// headers and are skipped.
func Read(r io.Reader) ([]Point, error) {
	var points []Point
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if _, err := strconv.ParseFloat(tokens[0], 64); err != nil {
			continue
		}
		if len(tokens) < numColumns {
			return points, fmt.Errorf("line %d: %w: %d columns", lineNo, ErrMalformedLine, len(tokens))
		}

		var v [numColumns]float64
		for i := range v {
			f, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return points, fmt.Errorf("line %d column %d: %w: %q", lineNo, i, ErrMalformedLine, tokens[i])
			}
			v[i] = f
		}
		points = append(points, Point{
			X: v[0], Y: v[1], Z: v[2], Radius: v[3],
			Bx: v[4], By: v[5], Bz: v[6], B: v[7],
		})
	}
	if err := scanner.Err(); err != nil {
		return points, err
	}
	return points, nil
}

// ReadFile reads one field-line file and tags it with its station code.
func ReadFile(path string) (*Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name := filepath.Base(path)
	return &Line{Name: name, Station: StationCode(name), Points: points}, nil
}

// FindFiles lists prefix*.txt files in dir, sorted by name.
func FindFiles(dir, prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Northern keeps the points with Z >= 0. Traced lines cover both
// hemispheres; one is enough for an altitude profile.
func Northern(points []Point) []Point {
	var out []Point
	for _, p := range points {
		if p.Z >= 0 {
			out = append(out, p)
		}
	}
	return out
}

// WithinRadius keeps the points with Radius < maxRe.
func WithinRadius(points []Point, maxRe float64) []Point {
	var out []Point
	for _, p := range points {
		if p.Radius < maxRe {
			out = append(out, p)
		}
	}
	return out
}

// AltitudeProfile returns |B| (nT) against altitude (km) over the northern
// half of the line, sorted by altitude.
func AltitudeProfile(points []Point) profile.Profile {
	north := Northern(points)
	p := make(profile.Profile, len(north))
	for i, pt := range north {
		p[i] = profile.Sample{X: pt.AltitudeKm(), Y: pt.B}
	}
	return p.Normalize()
}

// AlfvenSpeeds returns the Alfvén speed (m/s) at every point for a proton
// plasma following the dipole density model with base density n0 (cm⁻³).
func AlfvenSpeeds(points []Point, n0 float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		r := derive.Magnitude(p.X, p.Y, p.Z)
		n := physics.DipoleDensity(n0, r) * 1e6
		b := derive.Magnitude(p.Bx, p.By, p.Bz) * 1e-9
		out[i] = physics.AlfvenSpeed(b, n, physics.ProtonMass)
	}
	return out
}
