// Package pipeline runs the OMNI filter over many files in parallel and
// feeds the results to sinks in source order.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/metrics"
	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// FileResult is the outcome of filtering one file.
type FileResult struct {
	Path    string
	Result  *omni.FilterResult // nil when the file could not be read at all
	Err     error
	Elapsed time.Duration
}

// Name returns the base name of the file.
func (r FileResult) Name() string {
	return filepath.Base(r.Path)
}

// FindInputs lists OMNI minute files in dir (plain, .gz or .zst), sorted.
func FindInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "omni_min") {
			continue
		}
		if strings.HasSuffix(name, ".asc") || strings.HasSuffix(name, ".asc.gz") || strings.HasSuffix(name, ".asc.zst") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FilterFiles filters files with at most workers running at once. Results
// are returned in input order. A file that fails is reported in its
// FileResult and does not stop the others; only cancellation of ctx or an
// invalid cfg returns an error. stats may be nil.
func FilterFiles(ctx context.Context, files []string, cfg omni.FilterConfig, workers int, stats *common.Stats) ([]FileResult, error) {
	if err := omni.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := omni.FilterFile(path, cfg)
			results[i] = FileResult{Path: path, Result: res, Err: err, Elapsed: time.Since(start)}

			status := "ok"
			if err != nil {
				status = "error"
			}
			metrics.FilesProcessed.WithLabelValues("filter", status).Inc()
			if res != nil {
				metrics.ObserveFilter(res.Stats)
				if stats != nil {
					stats.AddFilter(res.Stats)
					if fi, err := os.Stat(path); err == nil {
						stats.AddBytesRead(fi.Size())
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Writer is a row sink.
type Writer interface {
	Write(rows []omni.FilteredRow) error
	Rows() int64
	Close() error
}

// WriteAll writes the rows of every readable result to w in order and
// returns the number of rows written. stats may be nil.
func WriteAll(w Writer, results []FileResult, stats *common.Stats) (int64, error) {
	var n int64
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		if err := w.Write(r.Result.Rows); err != nil {
			return n, fmt.Errorf("%s: %w", r.Name(), err)
		}
		rows := int64(len(r.Result.Rows))
		n += rows
		if stats != nil {
			stats.AddWritten(rows)
		}
	}
	return n, nil
}

// Totals sums the filter counters of all results.
func Totals(results []FileResult) omni.FilterStats {
	var t omni.FilterStats
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		s := r.Result.Stats
		t.LinesRead += s.LinesRead
		t.HeaderLines += s.HeaderLines
		t.MalformedRows += s.MalformedRows
		t.OutOfWindowRows += s.OutOfWindowRows
		t.SentinelRows += s.SentinelRows
		t.KeptRows += s.KeptRows
	}
	return t
}
