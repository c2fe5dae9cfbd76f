// omni-coupling - Solar wind / magnetosphere energy coupling
//
// Computes the Akasofu epsilon parameter per minute from filtered OMNI data
// (a CSV written by omni-filter, or raw omni_min*.asc files), integrates the
// energy input over the window, and optionally estimates the substorm
// energy budget from the AE and SYM-H indices.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-coupling ./cmd/omni-coupling

package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/chstore"
	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/derive"
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

	input := flag.String("in", "", "Filtered CSV input (default: raw files from -source-dir)")
	sourceDir := flag.String("source-dir", cfg.OMNIDataDir(), "Default OMNI source directory")
	start := flag.String("start", "2022-11-23 00:00", "Interval start (UTC)")
	end := flag.String("end", "2022-11-27 00:00", "Interval end (UTC, inclusive)")
	smooth := flag.Int("smooth", 0, "Moving-average window for epsilon (minutes, 0 = off)")
	kp := flag.Float64("kp", 0, "Kp index for the substorm budget (0 = skip)")
	l0 := flag.Float64("l0", derive.DefaultCouplingLength, "Coupling length scale (m)")
	out := flag.String("out", "", "Write per-minute samples to this CSV")
	chWrite := flag.Bool("ch", false, "Also write samples to ClickHouse")
	chTable := flag.String("ch-table", "coupling", "ClickHouse table for -ch")
	workers := flag.Int("workers", cfg.Workers, "Number of parallel file workers")
	metricsFile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-coupling v%s - Energy Coupling Calculator\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Computes Akasofu epsilon and substorm energetics from OMNI data.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	window, err := omni.ParseWindow(*start, *end, "")
	if err != nil {
		log.Fatalf("Invalid interval: %v", err)
	}

	log.Println("=========================================================")
	log.Printf("OMNI Coupling v%s", Version)
	log.Println("=========================================================")
	log.Printf("Interval: %s .. %s", window.Start.Format(omni.DatetimeLayout), window.End.Format(omni.DatetimeLayout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	startTime := time.Now()

	var rows []omni.FilteredRow
	if *input != "" {
		rows, err = readFiltered(*input)
	} else {
		rows, err = filterRaw(ctx, *sourceDir, flag.Args(), window, *kp > 0, *workers)
	}
	if err != nil {
		log.Fatalf("Load error: %v", err)
	}
	log.Printf("Rows:     %d", len(rows))

	samples, err := derive.CouplingSeries(rows, derive.DefaultUnitTable(), window.Start, window.End, *l0)
	if err != nil {
		log.Fatalf("Coupling error: %v", err)
	}
	if len(samples) == 0 {
		log.Fatal("No samples in interval")
	}

	eps := derive.EpsilonSeries(samples)
	if *smooth > 0 {
		eps, err = derive.MovingAverage(eps, *smooth)
		if err != nil {
			log.Fatalf("Smoothing error: %v", err)
		}
		for i := range samples {
			samples[i].Epsilon = eps[i]
		}
	}

	peak, hasPeak := derive.PeakEpsilon(samples)
	energy := derive.EnergyInput(samples, time.Minute)

	if *out != "" {
		if err := writeSamples(*out, samples); err != nil {
			log.Fatalf("Write error: %v", err)
		}
		metrics.RowsWritten.WithLabelValues("csv").Add(float64(len(samples)))
		log.Printf("Samples written to %s", *out)
	}

	if *chWrite {
		source := "omni_min"
		if *input != "" {
			source = filepath.Base(*input)
		}
		run := fmt.Sprintf("%s/%s", source, window.Start.Format("20060102T1504"))
		n, err := writeClickHouse(ctx, cfg, *chTable, samples, run)
		if err != nil {
			log.Fatalf("ClickHouse error: %v", err)
		}
		metrics.RowsWritten.WithLabelValues("clickhouse").Add(float64(n))
		log.Printf("Inserted %d samples into %s.%s", n, cfg.ClickHouseDatabase, *chTable)
	}

	var budget *derive.SubstormEnergy
	if *kp > 0 {
		e, err := derive.Substorm(rows, window.Start, window.End, *kp, derive.DefaultEnergeticsParams())
		if err != nil {
			log.Fatalf("Substorm error: %v", err)
		}
		budget = &e
	}

	elapsed := time.Since(startTime)

	metrics.MarkRun("omni-coupling")
	if err := metrics.WriteTextfile(*metricsFile); err != nil {
		log.Printf("Metrics textfile warning: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Samples:       %d", len(samples))
	if hasPeak {
		log.Printf("Peak Epsilon:  %.3e W at %s", samples[peak].Epsilon, samples[peak].Timestamp.Format(omni.DatetimeLayout))
	} else {
		log.Printf("Peak Epsilon:  n/a (smoothing window longer than interval)")
	}
	log.Printf("Energy Input:  %.3e J", energy)
	if budget != nil {
		log.Printf("Mean AE:       %.1f nT", budget.MeanAE)
		log.Printf("SYM-H:         %.1f -> %.1f nT", budget.DstStart, budget.DstEnd)
		log.Printf("Decay Time:    %v", budget.Tau.Round(time.Minute))
		log.Printf("Joule:         %.2f GW (%.3e GJ)", budget.Joule, budget.JouleEnergy)
		log.Printf("Precipitation: %.2f GW (%.3e GJ)", budget.Precip, budget.PrecipEnergy)
		log.Printf("Ring Current:  %.2f GW (%.3e GJ)", budget.RingCurrent, budget.RingCurrentEnergy)
		log.Printf("Dissipated:    %.3e GJ", budget.Total())
	}
	log.Printf("Elapsed:       %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")
}

func readFiltered(path string) ([]omni.FilteredRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, rows, err := omni.ReadCSV(f)
	return rows, err
}

// filterRaw filters raw OMNI files down to the coupling fields, plus the
// geomagnetic indices when a substorm budget is requested.
func filterRaw(ctx context.Context, dir string, files []string, window omni.TimeWindow, indices bool, workers int) ([]omni.FilteredRow, error) {
	if len(files) == 0 {
		var err error
		if files, err = pipeline.FindInputs(dir); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no OMNI files in %s", dir)
	}

	fields := append([]string(nil), omni.CouplingFields...)
	if indices {
		fields = append(fields, omni.FieldAEIndex, omni.FieldSYMHIndex)
	}
	cfg := omni.FilterConfig{
		Columns:   omni.DefaultOMNIColumns(),
		Fields:    fields,
		Window:    window,
		Sentinels: omni.DefaultSentinels(),
	}

	results, err := pipeline.FilterFiles(ctx, files, cfg, workers, nil)
	if err != nil {
		return nil, err
	}
	var rows []omni.FilteredRow
	for _, r := range results {
		if r.Err != nil {
			log.Printf("[%s] Error: %v", r.Name(), r.Err)
		}
		if r.Result != nil {
			rows = append(rows, r.Result.Rows...)
		}
	}
	return rows, nil
}

func writeSamples(path string, samples []derive.CouplingSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{omni.DatetimeColumn, "B_total_nT", "Clock_Angle_rad", "Flow_Speed_km_s", "Epsilon_W"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range samples {
		record := []string{
			s.Timestamp.Format(omni.DatetimeLayout),
			strconv.FormatFloat(s.BTotal, 'f', 3, 64),
			strconv.FormatFloat(s.ClockAngle, 'f', 4, 64),
			strconv.FormatFloat(s.FlowSpeed, 'f', 1, 64),
			strconv.FormatFloat(s.Epsilon, 'e', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", s.Timestamp.Format(omni.DatetimeLayout), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeClickHouse(ctx context.Context, cfg *common.Config, table string, samples []derive.CouplingSample, run string) (int, error) {
	conn, err := chstore.Open(ctx, chstore.Options{
		Addr:     cfg.ClickHouseHost,
		Database: cfg.ClickHouseDatabase,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	tableFQN := cfg.ClickHouseDatabase + "." + strings.TrimSpace(table)
	w := chstore.NewCouplingWriter(conn, tableFQN)
	if err := w.EnsureTable(ctx); err != nil {
		return 0, err
	}
	return w.Write(ctx, samples, run)
}
