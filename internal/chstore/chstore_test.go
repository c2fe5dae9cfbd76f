package chstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-space-lab/internal/derive"
	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

var testFields = []string{omni.FieldBz, omni.FieldFlowSpeed}

func testRow(ts time.Time, bz, v float64) omni.FilteredRow {
	return omni.FilteredRow{Timestamp: ts, Fields: []omni.Field{
		{Name: omni.FieldBz, Value: bz},
		{Name: omni.FieldFlowSpeed, Value: v},
	}}
}

func TestRowBatch(t *testing.T) {
	ts := time.Date(2022, 11, 25, 18, 30, 0, 0, time.UTC)
	b := NewRowBatch(testFields)

	require.NoError(t, b.Add(testRow(ts, -3.4, 412), "omni_min202211.asc"))
	require.NoError(t, b.Add(testRow(ts.Add(time.Minute), 1.2, 415), "omni_min202211.asc"))
	assert.Equal(t, 2, b.Len())

	in := b.Input()
	names := make([]string, len(in))
	for i, c := range in {
		names[i] = c.Name
		assert.Equal(t, 2, c.Data.Rows(), c.Name)
	}
	assert.Equal(t, []string{"datetime", "bz_nt_gse", "flow_speed_km_s", "source_file"}, names)

	assert.Equal(t, ts.Unix(), b.Time.Row(0).Unix())
	assert.Equal(t, 415.0, b.Values[1].Row(1))
	assert.Equal(t, "omni_min202211.asc", b.SourceFile.Row(0))

	b.Reset()
	assert.Equal(t, 0, b.Len())
}

func TestRowBatchRejectsMismatchedRows(t *testing.T) {
	b := NewRowBatch(testFields)
	ts := time.Now()

	err := b.Add(omni.FilteredRow{Timestamp: ts, Fields: []omni.Field{{Name: omni.FieldBz}}}, "x")
	assert.Error(t, err)

	swapped := omni.FilteredRow{Timestamp: ts, Fields: []omni.Field{
		{Name: omni.FieldFlowSpeed}, {Name: omni.FieldBz},
	}}
	assert.Error(t, b.Add(swapped, "x"))
	assert.Equal(t, 0, b.Len(), "rejected rows leave the batch untouched")
}

func TestQueries(t *testing.T) {
	b := NewRowBatch(testFields)
	assert.Equal(t,
		"INSERT INTO omni.minute (datetime, bz_nt_gse, flow_speed_km_s, source_file) VALUES",
		b.InsertQuery("omni.minute"))

	ddl := CreateRowsTableSQL("omni.minute", testFields)
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS omni.minute")
	assert.Contains(t, ddl, "    bz_nt_gse Float64,\n")
	assert.Contains(t, ddl, "ORDER BY datetime")

	from := time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Minute)
	assert.Equal(t,
		"ALTER TABLE omni.minute DELETE WHERE datetime BETWEEN toDateTime(1667260800) AND toDateTime(1669852740)",
		deleteRangeSQL("omni.minute", from, to))

	assert.Contains(t, CreateCouplingTableSQL("omni.coupling"), "epsilon_w Float64")
}

type fakeBatch struct {
	rows    [][]any
	failAt  int
	appends int
}

func (f *fakeBatch) Append(v ...any) error {
	f.appends++
	if f.failAt > 0 && f.appends == f.failAt {
		return errors.New("column type mismatch")
	}
	f.rows = append(f.rows, v)
	return nil
}

func TestAppendSamples(t *testing.T) {
	ts := time.Date(2022, 11, 25, 18, 30, 0, 0, time.UTC)
	samples := []derive.CouplingSample{
		{Timestamp: ts, BTotal: 5, ClockAngle: 3.1, FlowSpeed: 400, Epsilon: 1e11},
		{Timestamp: ts.Add(time.Minute), BTotal: 6, ClockAngle: 2.9, FlowSpeed: 410, Epsilon: 2e11},
	}

	fb := &fakeBatch{}
	n, err := appendSamples(fb, samples, "storm-2022-11")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []any{ts, 5.0, 3.1, 400.0, 1e11, "storm-2022-11"}, fb.rows[0])

	fb = &fakeBatch{failAt: 2}
	n, err = appendSamples(fb, samples, "storm-2022-11")
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}
