// omni-download - Download OMNI 1-minute data from NASA SPDF
//
// Data source:
//   - SPDF high-resolution OMNI: monthly ASCII files omni_minYYYYMM.asc
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-download ./cmd/omni-download

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/fetch"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg, err := common.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	destDir := flag.String("dest", cfg.OMNIDataDir(), "Destination directory")
	from := flag.String("from", "2022-11", "First month (YYYY-MM)")
	to := flag.String("to", "2022-11", "Last month (YYYY-MM)")
	baseURL := flag.String("base-url", fetch.OMNIBaseURL, "SPDF monthly 1-min directory")
	timeout := flag.Duration("timeout", 120*time.Second, "HTTP timeout per download")
	skipExisting := flag.Bool("skip-existing", true, "Skip months already on disk")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-download v%s - OMNI Data Downloader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads monthly OMNI 1-minute ASCII files from NASA SPDF.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	first, err := time.Parse("2006-01", *from)
	if err != nil {
		log.Fatalf("Invalid -from: %v", err)
	}
	last, err := time.Parse("2006-01", *to)
	if err != nil {
		log.Fatalf("Invalid -to: %v", err)
	}
	months := fetch.Months(first, last)
	if len(months) == 0 {
		log.Fatalf("Empty month range %s .. %s", *from, *to)
	}

	log.Println("=========================================================")
	log.Printf("OMNI Download v%s", Version)
	log.Println("=========================================================")
	log.Printf("Destination: %s", *destDir)
	log.Printf("Months:      %d (%s .. %s)", len(months), *from, *to)
	log.Printf("Timeout:     %v", *timeout)

	if err := os.MkdirAll(*destDir, 0755); err != nil {
		log.Fatalf("Cannot create directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	client := fetch.NewClient(*timeout)
	startTime := time.Now()
	downloaded, skipped, failed := 0, 0, 0
	var totalBytes int64

	for _, m := range months {
		if ctx.Err() != nil {
			break
		}
		name := fetch.OMNIMonthlyFilename(m.Year(), m.Month())
		destPath := filepath.Join(*destDir, name)

		if *skipExisting {
			if _, err := os.Stat(destPath); err == nil {
				log.Printf("[%s] Exists, skipping", name)
				skipped++
				metrics.DownloadsTotal.WithLabelValues("skipped").Inc()
				continue
			}
		}

		url := *baseURL + "/" + name
		log.Printf("[%s] Downloading from %s...", name, url)
		n, err := client.Download(ctx, url, destPath)
		if err != nil {
			status := "error"
			if errors.Is(err, fetch.ErrNotFound) {
				status = "not_found"
			}
			metrics.DownloadsTotal.WithLabelValues(status).Inc()
			log.Printf("[%s] ERROR: %v", name, err)
			failed++
			continue
		}
		metrics.DownloadsTotal.WithLabelValues("ok").Inc()
		log.Printf("[%s] Downloaded %d bytes", name, n)
		totalBytes += n
		downloaded++
	}

	elapsed := time.Since(startTime)

	metrics.MarkRun("omni-download")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Download Summary")
	log.Println("=========================================================")
	log.Printf("Downloaded: %d files (%.1f MiB)", downloaded, float64(totalBytes)/(1024*1024))
	log.Printf("Skipped:    %d files", skipped)
	log.Printf("Failed:     %d files", failed)
	log.Printf("Elapsed:    %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
