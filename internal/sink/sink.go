// Package sink writes filtered OMNI rows to files: CSV (optionally
// gzip-compressed) and Parquet. The output format follows the file
// extension.
package sink

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// Writer is a row sink.
type Writer interface {
	Write(rows []omni.FilteredRow) error
	Rows() int64
	Close() error
}

// Format is an output file format.
type Format int

const (
	FormatCSV Format = iota
	FormatCSVGzip
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatCSVGzip:
		return "csv.gz"
	case FormatParquet:
		return "parquet"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFor picks the format from a path's extension.
func FormatFor(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, ".csv.gz"):
		return FormatCSVGzip, nil
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(path, ".parquet"):
		return FormatParquet, nil
	}
	return 0, fmt.Errorf("unsupported output extension: %s", path)
}

// Create opens path for writing rows of fields in the format its extension
// names.
func Create(path string, fields []string) (Writer, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	var w Writer
	switch format {
	case FormatCSV:
		w, err = newCSVFile(f, nil, fields)
	case FormatCSVGzip:
		gz, gzErr := gzip.NewWriterLevel(f, gzip.BestSpeed)
		if gzErr != nil {
			f.Close()
			return nil, gzErr
		}
		w, err = newCSVFile(gz, []io.Closer{gz}, fields)
	case FormatParquet:
		w, err = NewParquetWriter(f, fields)
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &fileWriter{Writer: w, file: f}, nil
}

// fileWriter closes the underlying file after the format writer.
type fileWriter struct {
	Writer
	file *os.File
}

func (fw *fileWriter) Close() error {
	err := fw.Writer.Close()
	if cerr := fw.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// csvFile adapts omni.CSVWriter to Writer. Closers run in order on Close,
// after the CSV buffer is flushed.
type csvFile struct {
	*omni.CSVWriter
	closers []io.Closer
}

func newCSVFile(w io.Writer, closers []io.Closer, fields []string) (*csvFile, error) {
	cw, err := omni.NewCSVWriter(w, fields)
	if err != nil {
		return nil, err
	}
	return &csvFile{CSVWriter: cw, closers: closers}, nil
}

// NewCSVWriter returns a Writer producing filtered CSV on w.
func NewCSVWriter(w io.Writer, fields []string) (Writer, error) {
	return newCSVFile(w, nil, fields)
}

func (c *csvFile) Close() error {
	err := c.Flush()
	for _, cl := range c.closers {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Multi fans rows out to several writers.
type Multi []Writer

func (m Multi) Write(rows []omni.FilteredRow) error {
	for _, w := range m {
		if err := w.Write(rows); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns the row count of the first writer.
func (m Multi) Rows() int64 {
	if len(m) == 0 {
		return 0
	}
	return m[0].Rows()
}

func (m Multi) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
