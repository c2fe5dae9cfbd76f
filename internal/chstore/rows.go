// Package chstore loads pipeline output into ClickHouse: filtered OMNI rows
// through the native ch-go column protocol, derived coupling series through
// clickhouse-go batches.
package chstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// BatchSize is the row count at which RowWriter sends a block.
const BatchSize = 100_000

// ColumnName maps an OMNI field name to its ClickHouse column.
func ColumnName(field string) string {
	return strings.ToLower(field)
}

// RowBatch holds column data for native insert of filtered rows.
type RowBatch struct {
	fields     []string
	Time       *proto.ColDateTime
	Values     []*proto.ColFloat64
	SourceFile *proto.ColStr
}

func NewRowBatch(fields []string) *RowBatch {
	b := &RowBatch{
		fields:     fields,
		Time:       new(proto.ColDateTime),
		Values:     make([]*proto.ColFloat64, len(fields)),
		SourceFile: new(proto.ColStr),
	}
	for i := range b.Values {
		b.Values[i] = new(proto.ColFloat64)
	}
	return b
}

func (b *RowBatch) Reset() {
	b.Time.Reset()
	for _, c := range b.Values {
		c.Reset()
	}
	b.SourceFile.Reset()
}

func (b *RowBatch) Len() int {
	return b.Time.Rows()
}

func (b *RowBatch) Input() proto.Input {
	in := proto.Input{{Name: "datetime", Data: b.Time}}
	for i, f := range b.fields {
		in = append(in, proto.InputColumn{Name: ColumnName(f), Data: b.Values[i]})
	}
	return append(in, proto.InputColumn{Name: "source_file", Data: b.SourceFile})
}

// Add appends a row. Its fields must match the batch's fields in order.
func (b *RowBatch) Add(row omni.FilteredRow, sourceFile string) error {
	if len(row.Fields) != len(b.fields) {
		return fmt.Errorf("row %s: %d fields, want %d",
			row.Timestamp.Format(omni.DatetimeLayout), len(row.Fields), len(b.fields))
	}
	for i, f := range row.Fields {
		if f.Name != b.fields[i] {
			return fmt.Errorf("row %s: field %d is %s, want %s",
				row.Timestamp.Format(omni.DatetimeLayout), i, f.Name, b.fields[i])
		}
	}
	b.Time.Append(row.Timestamp)
	for i, f := range row.Fields {
		b.Values[i].Append(f.Value)
	}
	b.SourceFile.Append(sourceFile)
	return nil
}

// InsertQuery returns the INSERT statement matching Input.
func (b *RowBatch) InsertQuery(tableFQN string) string {
	cols := []string{"datetime"}
	for _, f := range b.fields {
		cols = append(cols, ColumnName(f))
	}
	cols = append(cols, "source_file")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES", tableFQN, strings.Join(cols, ", "))
}

// CreateRowsTableSQL returns the DDL for a filtered-rows table.
func CreateRowsTableSQL(tableFQN string, fields []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n    datetime DateTime('UTC'),\n", tableFQN)
	for _, f := range fields {
		fmt.Fprintf(&sb, "    %s Float64,\n", ColumnName(f))
	}
	sb.WriteString("    source_file LowCardinality(String)\n) ENGINE = ReplacingMergeTree\n")
	sb.WriteString("PARTITION BY toYYYYMM(datetime)\nORDER BY datetime")
	return sb.String()
}

// RowWriter batches filtered rows and sends them over a native connection.
type RowWriter struct {
	ctx        context.Context
	conn       *ch.Client
	tableFQN   string
	sourceFile string
	batch      *RowBatch
	batchSize  int
	rows       int64
}

// NewRowWriter returns a writer inserting fields into tableFQN. Every row is
// tagged with sourceFile. ctx bounds every send.
func NewRowWriter(ctx context.Context, conn *ch.Client, tableFQN string, fields []string, sourceFile string) *RowWriter {
	return &RowWriter{
		ctx:        ctx,
		conn:       conn,
		tableFQN:   tableFQN,
		sourceFile: sourceFile,
		batch:      NewRowBatch(fields),
		batchSize:  BatchSize,
	}
}

func (w *RowWriter) Write(rows []omni.FilteredRow) error {
	for _, r := range rows {
		if err := w.batch.Add(r, w.sourceFile); err != nil {
			return err
		}
		if w.batch.Len() >= w.batchSize {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush sends buffered rows.
func (w *RowWriter) Flush() error {
	n := w.batch.Len()
	if n == 0 {
		return nil
	}
	if err := w.conn.Do(w.ctx, ch.Query{
		Body:  w.batch.InsertQuery(w.tableFQN),
		Input: w.batch.Input(),
	}); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", n, w.tableFQN, err)
	}
	w.rows += int64(n)
	w.batch.Reset()
	return nil
}

// Rows returns the number of rows sent.
func (w *RowWriter) Rows() int64 {
	return w.rows
}

// Close flushes remaining rows. The connection stays open.
func (w *RowWriter) Close() error {
	return w.Flush()
}

// DeleteRange removes rows in [from, to] so a month can be re-ingested.
func DeleteRange(ctx context.Context, conn *ch.Client, tableFQN string, from, to time.Time) error {
	return conn.Do(ctx, ch.Query{Body: deleteRangeSQL(tableFQN, from, to)})
}

func deleteRangeSQL(tableFQN string, from, to time.Time) string {
	return fmt.Sprintf("ALTER TABLE %s DELETE WHERE datetime BETWEEN toDateTime(%d) AND toDateTime(%d)",
		tableFQN, from.Unix(), to.Unix())
}

// EnsureRowsTable creates the rows table if it does not exist.
func EnsureRowsTable(ctx context.Context, conn *ch.Client, tableFQN string, fields []string) error {
	return conn.Do(ctx, ch.Query{Body: CreateRowsTableSQL(tableFQN, fields)})
}
