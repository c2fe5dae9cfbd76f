package omni

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a requested field is not in the column map.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidWindow is returned for inverted or out-of-range windows.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrNoFields is returned when no output fields are requested.
	ErrNoFields = errors.New("no fields requested")

	// ErrMalformedRecord matches every *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
)

// MalformedRecordError describes a data line that could not be parsed.
type MalformedRecordError struct {
	Line   int64 // 1-based line number in the source
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record: %s", e.Line, e.Reason)
}

// Is lets errors.Is(err, ErrMalformedRecord) match.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
