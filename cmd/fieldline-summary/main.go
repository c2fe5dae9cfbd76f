// fieldline-summary - Summarize traced magnetic field lines
//
// Lists B_311_* field-line files in a directory and prints, per station,
// the point count, altitude span, the field direction at the midpoint,
// and the Alfvén speed range for a dipole density model.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/fieldline-summary ./cmd/fieldline-summary

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/fieldline"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	dir := flag.String("dir", filepath.Join(cfg.ProfileDataDir(), "fieldlines"), "Field-line directory")
	prefix := flag.String("prefix", fieldline.DefaultFilePrefix, "File name prefix")
	maxRadius := flag.Float64("max-radius", 0, "Keep points within this radius (Re, 0 = all)")
	n0 := flag.Float64("n0", fieldline.DefaultBaseDensity, "Base density for the dipole model (cm^-3)")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fieldline-summary v%s - Field Line Summary\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		files, err = fieldline.FindFiles(*dir, *prefix)
		if err != nil {
			log.Fatalf("Cannot read directory: %v", err)
		}
	}
	if len(files) == 0 {
		log.Fatal("No field-line files found")
	}

	log.Println("=========================================================")
	log.Printf("Field Line Summary v%s", Version)
	log.Println("=========================================================")
	log.Printf("Files: %d", len(files))

	startTime := time.Now()
	var points, failed int

	fmt.Printf("%-8s %7s %10s %10s %24s %12s %12s\n",
		"Station", "Points", "MinAlt_km", "MaxAlt_km", "Mid Direction", "VA_min_km_s", "VA_max_km_s")

	for _, path := range files {
		line, err := fieldline.ReadFile(path)
		if err != nil {
			log.Printf("[%s] Error: %v", filepath.Base(path), err)
			metrics.FilesProcessed.WithLabelValues("fieldline-summary", "error").Inc()
			failed++
			continue
		}
		metrics.FilesProcessed.WithLabelValues("fieldline-summary", "ok").Inc()

		pts := line.Points
		if *maxRadius > 0 {
			pts = fieldline.WithinRadius(pts, *maxRadius)
		}
		if len(pts) == 0 {
			fmt.Printf("%-8s %7d\n", line.Station, 0)
			continue
		}
		points += len(pts)

		minAlt, maxAlt := pts[0].AltitudeKm(), pts[0].AltitudeKm()
		for _, p := range pts[1:] {
			a := p.AltitudeKm()
			minAlt = min(minAlt, a)
			maxAlt = max(maxAlt, a)
		}

		ux, uy, uz := pts[len(pts)/2].Unit()

		va := fieldline.AlfvenSpeeds(pts, *n0)
		vaMin, vaMax := va[0], va[0]
		for _, v := range va[1:] {
			vaMin = min(vaMin, v)
			vaMax = max(vaMax, v)
		}

		fmt.Printf("%-8s %7d %10.1f %10.1f %24s %12.1f %12.1f\n",
			line.Station, len(pts), minAlt, maxAlt,
			fmt.Sprintf("(%.3f, %.3f, %.3f)", ux, uy, uz),
			vaMin/1e3, vaMax/1e3)
	}

	metrics.MarkRun("fieldline-summary")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files:   %d (%d failed)", len(files), failed)
	log.Printf("Points:  %d", points)
	log.Printf("Elapsed: %v", time.Since(startTime).Round(time.Millisecond))
	log.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
