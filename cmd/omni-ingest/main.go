// omni-ingest - OMNI 1-minute record ingestion into ClickHouse
//
// Filters SPDF omni_min*.asc files exactly as omni-filter does and inserts
// the kept rows through the native protocol (ch-go), one column block per
// field. With -replace the window is deleted first so a month can be
// re-ingested.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-ingest ./cmd/omni-ingest

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/chstore"
	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
	"github.com/KI7MT/ki7mt-space-lab/internal/pipeline"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	chHost := flag.String("ch-host", cfg.ClickHouseHost, "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "minute", "ClickHouse table")
	start := flag.String("start", "2022-11-23 00:00", "Window start (UTC)")
	end := flag.String("end", "2022-11-27 00:00", "Window end (UTC, inclusive)")
	hours := flag.String("hours", "", "Hour-of-day window H1-H2, inclusive")
	fields := flag.String("fields", "full", "Field selection: full, coupling, or comma-separated names")
	sourceDir := flag.String("source-dir", cfg.OMNIDataDir(), "Default OMNI source directory")
	workers := flag.Int("workers", cfg.Workers, "Number of parallel file workers")
	replace := flag.Bool("replace", false, "Delete rows in the window before insert")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-ingest v%s - OMNI ClickHouse Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Filters OMNI 1-minute records and inserts them into ClickHouse.\n\n")
		flag.PrintDefaults()
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

	log.Println("=========================================================")
	log.Printf("OMNI Ingest v%s", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

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

	// Connect to ClickHouse
	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	conn, err := chstore.Dial(ctx, chstore.Options{
		Addr:     *chHost,
		Database: *chDB,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)
	log.Printf("Table: %s", tableFQN)

	if err := chstore.EnsureRowsTable(ctx, conn, tableFQN, selected); err != nil {
		log.Fatalf("Create table failed: %v", err)
	}
	if *replace {
		log.Printf("Deleting %s .. %s from %s...", window.Start.Format(omni.DatetimeLayout), window.End.Format(omni.DatetimeLayout), tableFQN)
		if err := chstore.DeleteRange(ctx, conn, tableFQN, window.Start, window.End); err != nil {
			log.Printf("Delete warning: %v", err)
		}
	}

	startTime := time.Now()
	results, err := pipeline.FilterFiles(ctx, files, filterCfg, *workers, nil)
	if err != nil {
		log.Fatalf("Filter aborted: %v", err)
	}

	var inserted int64
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("[%s] Error: %v", r.Name(), r.Err)
		}
		if r.Result == nil || len(r.Result.Rows) == 0 {
			continue
		}

		w := chstore.NewRowWriter(ctx, conn, tableFQN, selected, r.Name())
		err := w.Write(r.Result.Rows)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Printf("[%s] Insert error: %v", r.Name(), err)
			failed++
			continue
		}
		inserted += w.Rows()
		log.Printf("[%s] Inserted %d rows", r.Name(), w.Rows())
	}
	metrics.RowsWritten.WithLabelValues("clickhouse").Add(float64(inserted))

	elapsed := time.Since(startTime)
	totals := pipeline.Totals(results)

	metrics.MarkRun("omni-ingest")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files:         %d (%d failed)", len(results), failed)
	log.Printf("Lines Read:    %d", totals.LinesRead)
	log.Printf("Sentinel:      %d", totals.SentinelRows)
	log.Printf("Malformed:     %d", totals.MalformedRows)
	log.Printf("Total Records: %d", inserted)
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:          %.0f records/sec", float64(inserted)/elapsed.Seconds())
	log.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
