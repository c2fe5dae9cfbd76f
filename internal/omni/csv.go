package omni

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DatetimeLayout is the Datetime column format of filtered CSV files.
const DatetimeLayout = "2006-01-02 15:04"

// DatetimeColumn is the first header cell of filtered CSV files.
const DatetimeColumn = "Datetime"

// CSVWriter writes FilteredRows as "Datetime,<fields...>" with raw values
// passed through unchanged.
type CSVWriter struct {
	w      *csv.Writer
	fields []string
	rows   int64
}

// NewCSVWriter writes the header row and returns a writer for fields.
func NewCSVWriter(w io.Writer, fields []string) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w), fields: fields}
	header := append([]string{DatetimeColumn}, fields...)
	if err := cw.w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return cw, nil
}

// Write appends rows. Each row must carry the writer's fields in order.
func (cw *CSVWriter) Write(rows []FilteredRow) error {
	record := make([]string, len(cw.fields)+1)
	for _, row := range rows {
		if len(row.Fields) != len(cw.fields) {
			return fmt.Errorf("row %s: %d fields, want %d",
				row.Timestamp.Format(DatetimeLayout), len(row.Fields), len(cw.fields))
		}
		record[0] = row.Timestamp.Format(DatetimeLayout)
		for i, f := range row.Fields {
			record[i+1] = f.Raw
		}
		if err := cw.w.Write(record); err != nil {
			return err
		}
		cw.rows++
	}
	return nil
}

// Rows returns the number of data rows written.
func (cw *CSVWriter) Rows() int64 {
	return cw.rows
}

// Flush flushes buffered output and reports any write error.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

// WriteCSV writes a complete filtered CSV document.
func WriteCSV(w io.Writer, fields []string, rows []FilteredRow) error {
	cw, err := NewCSVWriter(w, fields)
	if err != nil {
		return err
	}
	if err := cw.Write(rows); err != nil {
		return err
	}
	return cw.Flush()
}

// ReadCSV reads a filtered CSV document back into rows. Field names come
// from the header; Datetime is parsed as UTC.
func ReadCSV(r io.Reader) ([]string, []FilteredRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != DatetimeColumn {
		return nil, nil, fmt.Errorf("unexpected header %v", header)
	}
	fields := header[1:]

	var rows []FilteredRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fields, rows, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) != len(header) {
			return fields, rows, fmt.Errorf("line %d: %d columns, want %d", line, len(record), len(header))
		}

		ts, err := time.ParseInLocation(DatetimeLayout, record[0], time.UTC)
		if err != nil {
			return fields, rows, fmt.Errorf("line %d: invalid datetime: %w", line, err)
		}
		row := FilteredRow{Timestamp: ts, Fields: make([]Field, len(fields))}
		for i, name := range fields {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return fields, rows, fmt.Errorf("line %d: invalid %s: %w", line, name, err)
			}
			row.Fields[i] = Field{Name: name, Raw: record[i+1], Value: v}
		}
		rows = append(rows, row)
	}
	return fields, rows, nil
}
