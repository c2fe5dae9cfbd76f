// Package metrics exposes pipeline counters for node_exporter's textfile
// collector. The tools are batch jobs, so metrics are written to a file at
// exit rather than served.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// Registry holds every space-lab metric. It is separate from the default
// registry so textfiles carry no Go runtime series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	LinesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacelab_omni_lines_total",
			Help: "OMNI input lines by filter outcome",
		},
		[]string{"outcome"},
	)

	FilesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacelab_files_processed_total",
			Help: "Input files processed by tool and status",
		},
		[]string{"tool", "status"},
	)

	RowsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacelab_rows_written_total",
			Help: "Rows written per sink",
		},
		[]string{"sink"},
	)

	DownloadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spacelab_downloads_total",
			Help: "Source downloads by status",
		},
		[]string{"status"},
	)

	FitDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spacelab_profile_fit_duration_seconds",
			Help:    "Density tail fit and resample duration",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)

	LastRunTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spacelab_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run per tool",
		},
		[]string{"tool"},
	)
)

// Outcome labels for LinesTotal.
const (
	OutcomeKept        = "kept"
	OutcomeHeader      = "header"
	OutcomeMalformed   = "malformed"
	OutcomeSentinel    = "sentinel"
	OutcomeOutOfWindow = "out_of_window"
)

// ObserveFilter adds one file's filter counters to LinesTotal.
func ObserveFilter(st omni.FilterStats) {
	LinesTotal.WithLabelValues(OutcomeKept).Add(float64(st.KeptRows))
	LinesTotal.WithLabelValues(OutcomeHeader).Add(float64(st.HeaderLines))
	LinesTotal.WithLabelValues(OutcomeMalformed).Add(float64(st.MalformedRows))
	LinesTotal.WithLabelValues(OutcomeSentinel).Add(float64(st.SentinelRows))
	LinesTotal.WithLabelValues(OutcomeOutOfWindow).Add(float64(st.OutOfWindowRows))
}

// MarkRun records the completion time of tool.
func MarkRun(tool string) {
	LastRunTimestamp.WithLabelValues(tool).SetToCurrentTime()
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
