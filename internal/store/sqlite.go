// Package store keeps a local SQLite archive of filtered OMNI values and
// analysis runs.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRows stores rows in long format, one value per (timestamp, field).
// Values already present are left unchanged. It returns the number of new
// values stored.
func (s *Store) InsertRows(rows []omni.FilteredRow) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO omni_values (observed_at, field, raw, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(observed_at, field) DO NOTHING
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var stored int64
	for _, r := range rows {
		ts := r.Timestamp.Unix()
		for _, f := range r.Fields {
			res, err := stmt.Exec(ts, f.Name, f.Raw, f.Value)
			if err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("insert %s at %s: %w", f.Name, r.Timestamp.Format(omni.DatetimeLayout), err)
			}
			n, _ := res.RowsAffected()
			stored += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// QueryRows returns rows in [from, to] that carry every requested field,
// ordered by time.
func (s *Store) QueryRows(fields []string, from, to time.Time) ([]omni.FilteredRow, error) {
	if len(fields) == 0 {
		return nil, omni.ErrNoFields
	}
	pos := make(map[string]int, len(fields))
	args := []any{from.Unix(), to.Unix()}
	for i, f := range fields {
		pos[f] = i
		args = append(args, f)
	}

	q := fmt.Sprintf(`
		SELECT observed_at, field, raw, value FROM omni_values
		WHERE observed_at BETWEEN ? AND ? AND field IN (%s)
		ORDER BY observed_at
	`, strings.TrimSuffix(strings.Repeat("?,", len(fields)), ","))

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out     []omni.FilteredRow
		current *omni.FilteredRow
		seen    int
	)
	emit := func() {
		if current != nil && seen == len(fields) {
			out = append(out, *current)
		}
	}
	for rows.Next() {
		var (
			ts int64
			f  omni.Field
		)
		if err := rows.Scan(&ts, &f.Name, &f.Raw, &f.Value); err != nil {
			return nil, err
		}
		t := time.Unix(ts, 0).UTC()
		if current == nil || !current.Timestamp.Equal(t) {
			emit()
			current = &omni.FilteredRow{Timestamp: t, Fields: make([]omni.Field, len(fields))}
			seen = 0
		}
		current.Fields[pos[f.Name]] = f
		seen++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	emit()
	return out, nil
}

// RowSink adapts a Store to a row writer.
type RowSink struct {
	s    *Store
	rows int64
}

// Sink returns a row writer storing into s. Closing it does not close s.
func (s *Store) Sink() *RowSink {
	return &RowSink{s: s}
}

func (rs *RowSink) Write(rows []omni.FilteredRow) error {
	if _, err := rs.s.InsertRows(rows); err != nil {
		return err
	}
	rs.rows += int64(len(rows))
	return nil
}

func (rs *RowSink) Rows() int64 { return rs.rows }

func (rs *RowSink) Close() error { return nil }
