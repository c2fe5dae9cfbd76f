package sink

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// ParquetDatetimeColumn holds the row timestamp in Parquet output.
const ParquetDatetimeColumn = "datetime"

// ParquetSchema builds the flat schema for filtered rows: a millisecond
// timestamp plus one double column per field.
func ParquetSchema(fields []string) *parquet.Schema {
	group := parquet.Group{
		ParquetDatetimeColumn: parquet.Timestamp(parquet.Millisecond),
	}
	for _, name := range fields {
		group[name] = parquet.Leaf(parquet.DoubleType)
	}
	return parquet.NewSchema("omni", group)
}

// ParquetWriter writes filtered rows as Parquet. Raw tokens are not kept;
// values are stored as parsed.
type ParquetWriter struct {
	w      *parquet.Writer
	fields []string
	// column index per field, in fields order; schema columns are sorted
	// by name
	colIndex []int
	tsIndex  int
	buf      []parquet.Row
	rows     int64
}

// NewParquetWriter returns a writer of fields to w. Close must be called to
// write the footer.
func NewParquetWriter(w io.Writer, fields []string) (*ParquetWriter, error) {
	if len(fields) == 0 {
		return nil, omni.ErrNoFields
	}
	schema := ParquetSchema(fields)

	pos := make(map[string]int, len(fields)+1)
	for i, f := range schema.Fields() {
		pos[f.Name()] = i
	}
	if len(pos) != len(fields)+1 {
		return nil, fmt.Errorf("parquet schema: duplicate column in %v", fields)
	}

	pw := &ParquetWriter{
		w:        parquet.NewWriter(w, schema, parquet.Compression(&parquet.Zstd)),
		fields:   fields,
		colIndex: make([]int, len(fields)),
		tsIndex:  pos[ParquetDatetimeColumn],
	}
	for i, name := range fields {
		pw.colIndex[i] = pos[name]
	}
	return pw, nil
}

// Write appends rows. Each row must carry the writer's fields in order.
func (pw *ParquetWriter) Write(rows []omni.FilteredRow) error {
	pw.buf = pw.buf[:0]
	for _, r := range rows {
		if len(r.Fields) != len(pw.fields) {
			return fmt.Errorf("row %s: %d fields, want %d",
				r.Timestamp.Format(omni.DatetimeLayout), len(r.Fields), len(pw.fields))
		}
		row := make(parquet.Row, len(pw.fields)+1)
		row[pw.tsIndex] = parquet.Int64Value(r.Timestamp.UnixMilli()).Level(0, 0, pw.tsIndex)
		for i, f := range r.Fields {
			col := pw.colIndex[i]
			row[col] = parquet.DoubleValue(f.Value).Level(0, 0, col)
		}
		pw.buf = append(pw.buf, row)
	}

	n, err := pw.w.WriteRows(pw.buf)
	pw.rows += int64(n)
	return err
}

// Rows returns the number of rows written.
func (pw *ParquetWriter) Rows() int64 {
	return pw.rows
}

// Close flushes row groups and writes the footer.
func (pw *ParquetWriter) Close() error {
	return pw.w.Close()
}
