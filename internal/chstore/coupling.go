package chstore

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/KI7MT/ki7mt-space-lab/internal/derive"
)

// CreateCouplingTableSQL returns the DDL for the coupling series table.
func CreateCouplingTableSQL(tableFQN string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    datetime DateTime('UTC'),
    b_total_nt Float64,
    clock_angle_rad Float64,
    flow_speed_km_s Float64,
    epsilon_w Float64,
    run LowCardinality(String)
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(datetime)
ORDER BY (run, datetime)`, tableFQN)
}

// appender is the part of driver.Batch used to stage rows.
type appender interface {
	Append(v ...any) error
}

func appendSamples(b appender, samples []derive.CouplingSample, run string) (int, error) {
	for i, s := range samples {
		if err := b.Append(s.Timestamp, s.BTotal, s.ClockAngle, s.FlowSpeed, s.Epsilon, run); err != nil {
			return i, fmt.Errorf("append sample %d: %w", i, err)
		}
	}
	return len(samples), nil
}

// CouplingWriter inserts coupling series through clickhouse-go batches.
type CouplingWriter struct {
	conn     driver.Conn
	tableFQN string
}

func NewCouplingWriter(conn driver.Conn, tableFQN string) *CouplingWriter {
	return &CouplingWriter{conn: conn, tableFQN: tableFQN}
}

// EnsureTable creates the coupling table if it does not exist.
func (w *CouplingWriter) EnsureTable(ctx context.Context) error {
	return w.conn.Exec(ctx, CreateCouplingTableSQL(w.tableFQN))
}

// Write sends samples as one batch tagged with run.
func (w *CouplingWriter) Write(ctx context.Context, samples []derive.CouplingSample, run string) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", w.tableFQN))
	if err != nil {
		return 0, err
	}
	n, err := appendSamples(batch, samples, run)
	if err != nil {
		batch.Abort()
		return 0, err
	}
	if err := batch.Send(); err != nil {
		return 0, err
	}
	return n, nil
}
