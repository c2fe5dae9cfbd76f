package store

import (
	"database/sql"
	"time"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

// FilterRun records one filtering pass over a source file.
type FilterRun struct {
	ID         int64
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      omni.FilterStats
}

// RecordFilterRun stores the counters of a finished filtering pass.
func (s *Store) RecordFilterRun(run *FilterRun) error {
	st := run.Stats
	res, err := s.db.Exec(`
		INSERT INTO filter_runs (source, started_at, finished_at, lines_read, header_lines,
			malformed_rows, out_of_window_rows, sentinel_rows, kept_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Source, run.StartedAt.UTC(), run.FinishedAt.UTC(), st.LinesRead, st.HeaderLines,
		st.MalformedRows, st.OutOfWindowRows, st.SentinelRows, st.KeptRows)
	if err != nil {
		return err
	}
	run.ID, err = res.LastInsertId()
	return err
}

// FilterRuns returns the runs recorded for source, oldest first.
func (s *Store) FilterRuns(source string) ([]FilterRun, error) {
	rows, err := s.db.Query(`
		SELECT id, source, lines_read, header_lines, malformed_rows, out_of_window_rows, sentinel_rows, kept_rows
		FROM filter_runs WHERE source = ? ORDER BY id
	`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FilterRun
	for rows.Next() {
		var r FilterRun
		st := &r.Stats
		if err := rows.Scan(&r.ID, &r.Source, &st.LinesRead, &st.HeaderLines,
			&st.MalformedRows, &st.OutOfWindowRows, &st.SentinelRows, &st.KeptRows); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ProfileRun records one acceleration-potential computation.
type ProfileRun struct {
	ID             int64
	CreatedAt      time.Time
	DensitySource  string
	FieldSource    string
	Degree         int
	FitCutoffKm    float64
	Samples        int
	PeakAltitudeKm float64
	PeakPotentialV float64
}

// RecordProfileRun stores a profile run and sets its ID.
func (s *Store) RecordProfileRun(run *ProfileRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO profile_runs (created_at, density_source, field_source, degree, fit_cutoff_km,
			samples, peak_altitude_km, peak_potential_v)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.CreatedAt, run.DensitySource, run.FieldSource, run.Degree, run.FitCutoffKm,
		run.Samples, run.PeakAltitudeKm, run.PeakPotentialV)
	if err != nil {
		return err
	}
	run.ID, err = res.LastInsertId()
	return err
}

// LatestProfileRun returns the most recent profile run, or nil if none.
func (s *Store) LatestProfileRun() (*ProfileRun, error) {
	row := s.db.QueryRow(`
		SELECT id, density_source, field_source, degree, fit_cutoff_km, samples, peak_altitude_km, peak_potential_v
		FROM profile_runs ORDER BY id DESC LIMIT 1
	`)
	var r ProfileRun
	err := row.Scan(&r.ID, &r.DensitySource, &r.FieldSource, &r.Degree, &r.FitCutoffKm,
		&r.Samples, &r.PeakAltitudeKm, &r.PeakPotentialV)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
