package common

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// Stats holds atomic counters shared by parallel file workers
type Stats struct {
	FilesDone   atomic.Uint64
	LinesRead   atomic.Uint64
	KeptRows    atomic.Uint64
	Malformed   atomic.Uint64
	Sentinel    atomic.Uint64
	OutOfWindow atomic.Uint64
	RowsWritten atomic.Uint64
	BytesRead   atomic.Uint64

	// Internal state for reporter
	running   atomic.Bool
	stopCh    chan struct{}
	out       io.Writer
	lastLines uint64
	lastTime  time.Time

	// Moving average window for line rate
	rateWindow []float64
	rateIndex  int
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{
		stopCh:     make(chan struct{}),
		out:        os.Stdout,
		rateWindow: make([]float64, 10), // 10-sample moving average (5 seconds)
	}
}

// AddFilter folds one file's filter counters into the totals
func (s *Stats) AddFilter(fs omni.FilterStats) {
	s.FilesDone.Add(1)
	s.LinesRead.Add(uint64(fs.LinesRead))
	s.KeptRows.Add(uint64(fs.KeptRows))
	s.Malformed.Add(uint64(fs.MalformedRows))
	s.Sentinel.Add(uint64(fs.SentinelRows))
	s.OutOfWindow.Add(uint64(fs.OutOfWindowRows))
}

// AddBytesRead records the on-disk size of one input file
func (s *Stats) AddBytesRead(n int64) {
	if n > 0 {
		s.BytesRead.Add(uint64(n))
	}
}

// AddWritten records rows handed to the output sinks
func (s *Stats) AddWritten(n int64) {
	if n > 0 {
		s.RowsWritten.Add(uint64(n))
	}
}

// SetOutput redirects progress lines; nil silences them
func (s *Stats) SetOutput(w io.Writer) {
	s.out = w
}

// StartReporter starts a background goroutine that prints progress every
// 500ms using newline-based output to avoid conflicts with log.Printf
func (s *Stats) StartReporter() {
	if s.running.Swap(true) {
		return // Already running
	}
	s.lastTime = time.Now()
	s.lastLines = 0
	go s.reporterLoop(500 * time.Millisecond)
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Swap(false) {
		return
	}
	close(s.stopCh)
}

func (s *Stats) reporterLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.printStatus(now)
		}
	}
}

// printStatus prints one progress line
func (s *Stats) printStatus(now time.Time) {
	if s.out == nil {
		return
	}
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	lines := s.LinesRead.Load()
	rate := float64(lines-s.lastLines) / elapsed

	s.rateWindow[s.rateIndex] = rate
	s.rateIndex = (s.rateIndex + 1) % len(s.rateWindow)

	var sum float64
	var count int
	for _, r := range s.rateWindow {
		if r > 0 {
			sum += r
			count++
		}
	}
	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	}

	fmt.Fprintf(s.out, "[Progress] Files: %d (%.1f MiB) | Lines: %d (%.0f/s, avg %.0f/s) | Kept: %d | Sentinel: %d | Malformed: %d | Written: %d\n",
		s.FilesDone.Load(), float64(s.BytesRead.Load())/(1024*1024), lines, rate, avg,
		s.KeptRows.Load(), s.Sentinel.Load(), s.Malformed.Load(), s.RowsWritten.Load())

	s.lastLines = lines
	s.lastTime = now
}

// Reset resets all counters
func (s *Stats) Reset() {
	s.FilesDone.Store(0)
	s.LinesRead.Store(0)
	s.KeptRows.Store(0)
	s.Malformed.Store(0)
	s.Sentinel.Store(0)
	s.OutOfWindow.Store(0)
	s.RowsWritten.Store(0)
	s.BytesRead.Store(0)
	s.lastLines = 0
	s.lastTime = time.Now()
	for i := range s.rateWindow {
		s.rateWindow[i] = 0
	}
	s.rateIndex = 0
}
