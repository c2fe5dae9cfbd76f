// Package omni provides OMNI solar-wind data processing utilities.
// This file contains the line parser and the record filter.
package omni

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Parsing Constants
// =============================================================================

const (
	// Error retention: keep the first few malformed-line errors for reporting
	MaxErrorsToKeep = 10

	// OMNI 1-min records are ~400 bytes; allow generous headroom
	maxLineBytes = 64 * 1024
)

// =============================================================================
// Types
// =============================================================================

// Field is one requested column of a FilteredRow.
type Field struct {
	Name  string
	Raw   string  // token exactly as it appeared in the source
	Value float64 // parsed value of Raw
}

// FilteredRow is a record that passed the window and sentinel checks.
type FilteredRow struct {
	Timestamp time.Time
	Fields    []Field
}

// Value returns the parsed value of the named field.
func (r FilteredRow) Value(name string) (float64, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// FilterConfig is the immutable configuration of one FilterRecords call.
type FilterConfig struct {
	Columns   ColumnMap
	Fields    []string
	Window    TimeWindow
	Sentinels SentinelSet
}

// FilterStats holds counters for a filtering operation.
type FilterStats struct {
	LinesRead       int64 // Total lines read from the source
	HeaderLines     int64 // Lines not starting with a digit
	MalformedRows   int64 // Data lines that failed to parse
	OutOfWindowRows int64 // Parsed rows outside the time window
	SentinelRows    int64 // Rows dropped for a missing-value token
	KeptRows        int64 // Rows emitted

	// First MaxErrorsToKeep malformed-line errors
	Errors []error
}

// SuppressedErrors returns how many malformed-line errors were not retained.
func (s *FilterStats) SuppressedErrors() int64 {
	return s.MalformedRows - int64(len(s.Errors))
}

// FilterResult is the output of FilterRecords.
type FilterResult struct {
	Rows  []FilteredRow
	Stats FilterStats
}

// =============================================================================
// Record Filtering
// =============================================================================

// plan is a FilterConfig with every name resolved to a column position.
type plan struct {
	cfg       FilterConfig
	timeCols  [4]int
	fieldCols []int
	minTokens int
}

func newPlan(cfg FilterConfig) (*plan, error) {
	if len(cfg.Fields) == 0 {
		return nil, ErrNoFields
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, err
	}

	timeCols, err := cfg.Columns.Resolve(FieldYear, FieldDay, FieldHour, FieldMinute)
	if err != nil {
		return nil, err
	}
	fieldCols, err := cfg.Columns.Resolve(cfg.Fields...)
	if err != nil {
		return nil, err
	}

	p := &plan{cfg: cfg, fieldCols: fieldCols}
	copy(p.timeCols[:], timeCols)
	for _, c := range append(timeCols, fieldCols...) {
		if c+1 > p.minTokens {
			p.minTokens = c + 1
		}
	}
	return p, nil
}

// ValidateConfig resolves cfg without reading any data. FilterRecords calls
// it implicitly; callers use it to fail before opening files.
func ValidateConfig(cfg FilterConfig) error {
	_, err := newPlan(cfg)
	return err
}

// FilterRecords reads whitespace-delimited records from r and returns the
// rows that fall in cfg.Window and carry no sentinel in any requested field.
//
// Configuration errors (ErrMissingField, ErrInvalidWindow, ErrNoFields) are
// returned before the first line is read. Malformed lines are skipped and
// counted. A read error from r is returned along with the rows so far.
func FilterRecords(r io.Reader, cfg FilterConfig) (*FilterResult, error) {
	p, err := newPlan(cfg)
	if err != nil {
		return nil, err
	}

	res := &FilterResult{}
	stats := &res.Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		stats.LinesRead++

		// Header, comment and blank lines
		if len(line) == 0 || line[0] < '0' || line[0] > '9' {
			stats.HeaderLines++
			continue
		}

		row, keep, err := p.parseLine(line, stats.LinesRead)
		if err != nil {
			stats.MalformedRows++
			if len(stats.Errors) < MaxErrorsToKeep {
				stats.Errors = append(stats.Errors, err)
			}
			continue
		}
		switch keep {
		case outcomeOutOfWindow:
			stats.OutOfWindowRows++
		case outcomeSentinel:
			stats.SentinelRows++
		default:
			stats.KeptRows++
			res.Rows = append(res.Rows, row)
		}
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read records: %w", err)
	}
	return res, nil
}

type outcome int

const (
	outcomeKeep outcome = iota
	outcomeOutOfWindow
	outcomeSentinel
)

// parseLine parses one data line. The time window is checked before the
// requested tokens are touched so out-of-window lines cost one split.
func (p *plan) parseLine(line string, lineNo int64) (FilteredRow, outcome, error) {
	tokens := strings.Fields(line)
	if len(tokens) < p.minTokens {
		return FilteredRow{}, 0, &MalformedRecordError{
			Line:   lineNo,
			Reason: fmt.Sprintf("insufficient columns: got %d, need %d", len(tokens), p.minTokens),
		}
	}

	var tv [4]int
	for i, col := range p.timeCols {
		v, err := strconv.Atoi(tokens[col])
		if err != nil {
			return FilteredRow{}, 0, &MalformedRecordError{
				Line:   lineNo,
				Reason: fmt.Sprintf("invalid time field in column %d: %q", col, tokens[col]),
			}
		}
		tv[i] = v
	}

	ts := RecordTime(tv[0], tv[1], tv[2], tv[3])
	if !p.cfg.Window.Contains(ts) {
		return FilteredRow{}, outcomeOutOfWindow, nil
	}

	// Sentinels are matched on the raw token, before any numeric parse
	for _, col := range p.fieldCols {
		if p.cfg.Sentinels.Contains(tokens[col]) {
			return FilteredRow{}, outcomeSentinel, nil
		}
	}

	row := FilteredRow{
		Timestamp: ts,
		Fields:    make([]Field, len(p.fieldCols)),
	}
	for i, col := range p.fieldCols {
		v, err := parseFloat64(tokens[col])
		if err != nil {
			return FilteredRow{}, 0, &MalformedRecordError{
				Line:   lineNo,
				Reason: fmt.Sprintf("invalid %s: %q", p.cfg.Fields[i], tokens[col]),
			}
		}
		row.Fields[i] = Field{Name: p.cfg.Fields[i], Raw: tokens[col], Value: v}
	}
	return row, outcomeKeep, nil
}

// =============================================================================
// Numeric Parsing Helpers
// =============================================================================

func parseFloat64(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}
