// accel-potential - Field-aligned acceleration potential along a flux tube
//
// Reads a two-column density profile (altitude km, density cm^-3) and a
// traced field line, extends the density above the measured range with a
// polynomial fit to 1/n, resamples |B| onto the same altitude grid, and
// evaluates the Knight potential for a given current density.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/accel-potential ./cmd/accel-potential

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/fieldline"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
	"github.com/KI7MT/ki7mt-space-lab/internal/physics"
	"github.com/KI7MT/ki7mt-space-lab/internal/profile"
	"github.com/KI7MT/ki7mt-space-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ext := profile.DefaultExtendConfig()

	densityPath := flag.String("density", filepath.Join(cfg.ProfileDataDir(), "density.txt"), "Density profile (altitude km, density cm^-3)")
	fieldPath := flag.String("field", "", "Field-line file (B_311_*.txt)")
	degree := flag.Int("degree", ext.Degree, "Polynomial degree for the 1/n tail fit")
	cutoff := flag.Float64("cutoff", ext.FitCutoff, "Fit samples at or above this altitude (km)")
	minAlt := flag.Float64("min-alt", ext.MinAltitude, "Discard density below this altitude (km)")
	extEnd := flag.Float64("ext-end", ext.ExtensionEnd, "Extension grid end (km, exclusive)")
	extStep := flag.Float64("ext-step", ext.ExtensionStep, "Extension grid step (km)")
	floor := flag.Float64("floor", ext.Floor, "Density floor added to every sample (cm^-3)")
	current := flag.Float64("j", 1e-6, "Ionospheric current density (A/m^2)")
	refAlt := flag.Float64("ref-alt", 200, "Reference altitude of the ionospheric field (km)")
	out := flag.String("out", "", "Write the profile to this CSV")
	record := flag.Bool("record", false, "Record the run in the SQLite database")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "accel-potential v%s - Acceleration Potential Profile\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Extends a density profile and computes the Knight potential along a field line.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *fieldPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ext.Degree = *degree
	ext.FitCutoff = *cutoff
	ext.MinAltitude = *minAlt
	ext.ExtensionEnd = *extEnd
	ext.ExtensionStep = *extStep
	ext.Floor = *floor
	if err := ext.Validate(); err != nil {
		log.Fatalf("Invalid extension: %v", err)
	}

	log.Println("=========================================================")
	log.Printf("Acceleration Potential v%s", Version)
	log.Println("=========================================================")
	log.Printf("Density: %s", *densityPath)
	log.Printf("Field:   %s", *fieldPath)
	log.Printf("Fit:     degree %d above %.0f km", ext.Degree, ext.FitCutoff)

	density, err := profile.ReadFile(*densityPath)
	if err != nil {
		log.Fatalf("Density read error: %v", err)
	}
	line, err := fieldline.ReadFile(*fieldPath)
	if err != nil {
		log.Fatalf("Field-line read error: %v", err)
	}
	log.Printf("Station: %s (%d points)", line.Station, len(line.Points))

	field := fieldline.AltitudeProfile(line.Points)

	startTime := time.Now()
	extDensity, extField, err := profile.ExtendAndInterpolate(density, field, ext)
	metrics.FitDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		metrics.FilesProcessed.WithLabelValues("accel-potential", "error").Inc()
		log.Fatalf("Extension error: %v", err)
	}

	pot, err := physics.NewPotentialProfile(extDensity.Xs(), extDensity.Ys(), extField.Ys(), *current, *refAlt)
	if err != nil {
		log.Fatalf("Potential error: %v", err)
	}
	metrics.FilesProcessed.WithLabelValues("accel-potential", "ok").Inc()
	peakAlt, peakV := pot.Peak()

	if *out != "" {
		if err := writeProfile(*out, extDensity, pot); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		metrics.RowsWritten.WithLabelValues("csv").Add(float64(len(pot.Potential)))
		log.Printf("Profile written to %s", *out)
	}

	if *record {
		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			log.Fatalf("SQLite open failed: %v", err)
		}
		run := &store.ProfileRun{
			DensitySource:  filepath.Base(*densityPath),
			FieldSource:    filepath.Base(*fieldPath),
			Degree:         ext.Degree,
			FitCutoffKm:    ext.FitCutoff,
			Samples:        len(pot.Potential),
			PeakAltitudeKm: peakAlt,
			PeakPotentialV: peakV,
		}
		err = db.RecordProfileRun(run)
		if cerr := db.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalf("Run record failed: %v", err)
		}
		log.Printf("Recorded run %d in %s", run.ID, cfg.DatabasePath())
	}

	metrics.MarkRun("accel-potential")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Measured:      %d samples", len(density))
	log.Printf("Grid:          %d samples (%.0f .. %.0f km)", len(extDensity), extDensity[0].X, extDensity[len(extDensity)-1].X)
	log.Printf("Peak:          %.1f V at %.0f km", peakV, peakAlt)
	log.Printf("Elapsed:       %v", time.Since(startTime).Round(time.Millisecond))
	log.Println("=========================================================")
}

func writeProfile(path string, density profile.Profile, pot physics.PotentialProfile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Altitude_km", "Density_cm3", "B_nT", "Potential_V"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range density {
		record := []string{
			strconv.FormatFloat(s.X, 'f', 1, 64),
			strconv.FormatFloat(s.Y, 'g', 8, 64),
			strconv.FormatFloat(pot.FieldNT[i], 'g', 8, 64),
			strconv.FormatFloat(pot.Potential[i], 'g', 8, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %g km: %w", s.X, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
