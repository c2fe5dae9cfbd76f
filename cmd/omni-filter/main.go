// omni-filter - OMNI 1-minute solar-wind record filter
//
// Reads SPDF omni_min*.asc files (plain, .gz or .zst), keeps records inside
// a time window and optional hour-of-day window, drops records carrying a
// fill value in any requested field, and writes the selected columns.
//
// Output format follows the -out extension: .csv, .csv.gz or .parquet.
// With -sqlite the rows and per-file counters are also archived locally.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-filter ./cmd/omni-filter

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
	"github.com/KI7MT/ki7mt-space-lab/internal/pipeline"
	"github.com/KI7MT/ki7mt-space-lab/internal/sink"
	"github.com/KI7MT/ki7mt-space-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	start := flag.String("start", "2022-11-23 00:00", "Window start (UTC)")
	end := flag.String("end", "2022-11-27 00:00", "Window end (UTC, inclusive)")
	hours := flag.String("hours", "", "Hour-of-day window H1-H2, inclusive (e.g. 18-21)")
	fields := flag.String("fields", "full", "Field selection: full, coupling, or comma-separated names")
	out := flag.String("out", "filtered_omni_data.csv", "Output file (.csv, .csv.gz, .parquet)")
	sqlitePath := flag.String("sqlite", "", "Also archive rows in this SQLite database")
	sourceDir := flag.String("source-dir", cfg.OMNIDataDir(), "Default OMNI source directory")
	workers := flag.Int("workers", cfg.Workers, "Number of parallel file workers")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")
	progress := flag.Bool("progress", false, "Print progress every 500ms")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-filter v%s - OMNI Record Filter\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Filters OMNI 1-minute records by time window and fill values.\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFields (full):\n")
		for _, f := range omni.FullFields {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
	}

	flag.Parse()

	window, err := omni.ParseWindow(*start, *end, *hours)
	if err != nil {
		log.Fatalf("Invalid window: %v", err)
	}
	selected, err := omni.ParseFields(*fields)
	if err != nil {
		log.Fatalf("Invalid fields: %v", err)
	}
	filterCfg := omni.FilterConfig{
		Columns:   omni.DefaultOMNIColumns(),
		Fields:    selected,
		Window:    window,
		Sentinels: omni.DefaultSentinels(),
	}
	if err := omni.ValidateConfig(filterCfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("=========================================================")
	log.Printf("OMNI Filter v%s", Version)
	log.Println("=========================================================")
	log.Printf("Window:  %s .. %s", window.Start.Format(omni.DatetimeLayout), window.End.Format(omni.DatetimeLayout))
	if window.Hours != nil {
		log.Printf("Hours:   %02d-%02d UTC", window.Hours.Start, window.Hours.End)
	}
	log.Printf("Fields:  %s", strings.Join(selected, ", "))
	log.Printf("Output:  %s", *out)
	log.Printf("Workers: %d", *workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Discover files
	files := flag.Args()
	if len(files) == 0 {
		files, err = pipeline.FindInputs(*sourceDir)
		if err != nil {
			log.Fatalf("Cannot read source directory: %v", err)
		}
	}
	if len(files) == 0 {
		log.Fatal("No files to process")
	}
	log.Printf("Found %d file(s)", len(files))

	stats := common.NewStats()
	if *progress {
		stats.StartReporter()
	}

	startTime := time.Now()
	results, err := pipeline.FilterFiles(ctx, files, filterCfg, *workers, stats)
	stats.StopReporter()
	if err != nil {
		log.Fatalf("Filter aborted: %v", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("[%s] Error: %v", r.Name(), r.Err)
		}
		if r.Result == nil {
			continue
		}
		st := r.Result.Stats
		log.Printf("[%s] %d lines, %d kept, %d sentinel, %d malformed in %v",
			r.Name(), st.LinesRead, st.KeptRows, st.SentinelRows, st.MalformedRows, r.Elapsed.Round(time.Millisecond))
		for _, e := range st.Errors {
			log.Printf("[%s]   %v", r.Name(), e)
		}
		if n := st.SuppressedErrors(); n > 0 {
			log.Printf("[%s]   ... %d more parse errors suppressed", r.Name(), n)
		}
	}

	// Sinks
	w, err := sink.Create(*out, selected)
	if err != nil {
		log.Fatalf("Cannot create output: %v", err)
	}
	writers := sink.Multi{w}

	var db *store.Store
	if *sqlitePath != "" {
		db, err = store.Open(*sqlitePath)
		if err != nil {
			log.Fatalf("SQLite open failed: %v", err)
		}
		writers = append(writers, db.Sink())
	}

	written, err := pipeline.WriteAll(writers, results, stats)
	if cerr := writers.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		closeStore(db)
		log.Fatalf("Write error: %v", err)
	}
	metrics.RowsWritten.WithLabelValues(outputLabel(*out)).Add(float64(written))

	if db != nil {
		metrics.RowsWritten.WithLabelValues("sqlite").Add(float64(written))
		for _, r := range results {
			if r.Result == nil {
				continue
			}
			run := &store.FilterRun{Source: r.Name(), StartedAt: startTime, FinishedAt: time.Now(), Stats: r.Result.Stats}
			if err := db.RecordFilterRun(run); err != nil {
				log.Printf("[%s] Run record warning: %v", r.Name(), err)
			}
		}
		closeStore(db)
	}

	elapsed := time.Since(startTime)
	totals := pipeline.Totals(results)

	metrics.MarkRun("omni-filter")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files:         %d (%d failed)", len(results), failed)
	log.Printf("Lines Read:    %d", totals.LinesRead)
	log.Printf("Header Lines:  %d", totals.HeaderLines)
	log.Printf("Out of Window: %d", totals.OutOfWindowRows)
	log.Printf("Sentinel:      %d", totals.SentinelRows)
	log.Printf("Malformed:     %d", totals.MalformedRows)
	log.Printf("Bytes Read:    %.1f MiB", float64(stats.BytesRead.Load())/(1024*1024))
	log.Printf("Rows Written:  %d", stats.RowsWritten.Load())
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}

// closeStore closes the SQLite archive; db may be nil.
func closeStore(db *store.Store) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("SQLite close warning: %v", err)
	}
}

func outputLabel(path string) string {
	if f, err := sink.FormatFor(path); err == nil {
		return f.String()
	}
	return "unknown"
}
