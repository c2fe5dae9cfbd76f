package omni

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// =============================================================================
// Source Files (plain, gzip, zstd)
// =============================================================================

// source wraps a decompressor and the file beneath it so Close releases both.
type source struct {
	io.Reader
	closers []io.Closer
}

func (s *source) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// zstdCloser adapts zstd.Decoder.Close, which returns nothing.
type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

// OpenSource opens path for reading, decompressing by extension:
// .gz uses parallel gzip (pgzip), .zst uses zstd, anything else is read as-is.
// The returned ReadCloser closes the decompressor and the file.
func OpenSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip open %s: %w", path, err)
		}
		return &source{Reader: gz, closers: []io.Closer{gz, f}}, nil

	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd open %s: %w", path, err)
		}
		return &source{Reader: zr, closers: []io.Closer{zstdCloser{zr}, f}}, nil
	}

	return f, nil
}

// FilterFile opens path with OpenSource, filters it, and closes it on every
// exit path.
func FilterFile(path string, cfg FilterConfig) (*FilterResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return FilterRecords(src, cfg)
}
