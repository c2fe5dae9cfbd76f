package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-space-lab/internal/common"
	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
	"github.com/KI7MT/ki7mt-space-lab/internal/sink"
)

// record builds a 46-column OMNI line with Bz and flow speed set.
func record(day, hour, minute int, bz, speed string) string {
	tokens := make([]string, 46)
	for i := range tokens {
		tokens[i] = "1.0"
	}
	tokens[omni.ColYear] = "2022"
	tokens[omni.ColDay] = fmt.Sprint(day)
	tokens[omni.ColHour] = fmt.Sprint(hour)
	tokens[omni.ColMinute] = fmt.Sprint(minute)
	tokens[omni.ColBz] = bz
	tokens[omni.ColFlowSpeed] = speed
	return strings.Join(tokens, " ")
}

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func testConfig(t *testing.T) omni.FilterConfig {
	t.Helper()
	w, err := omni.NewTimeWindow(
		time.Date(2022, 11, 23, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 11, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return omni.FilterConfig{
		Columns:   omni.DefaultOMNIColumns(),
		Fields:    []string{omni.FieldBz, omni.FieldFlowSpeed},
		Window:    w,
		Sentinels: omni.DefaultSentinels(),
	}
}

func TestFindInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"omni_min202212.asc", "omni_min202211.asc.gz", "omni_min202210.asc.zst", "notes.txt", "omni_min202209.csv"} {
		writeFile(t, dir, name, "")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "omni_min_dir.asc"), 0o755))

	files, err := FindInputs(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "omni_min202210.asc.zst", filepath.Base(files[0]))
	assert.Equal(t, "omni_min202212.asc", filepath.Base(files[2]))
}

func TestFilterFilesKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.asc",
		record(327, 12, 0, "-3.45", "412.3"),
		record(327, 12, 1, "99999.9", "412.3"))
	b := writeFile(t, dir, "b.asc",
		"YYYY DOY HR MN header",
		record(328, 10, 15, "1.20", "415.0"),
		record(340, 0, 0, "1.20", "415.0"))
	missing := filepath.Join(dir, "missing.asc")

	stats := common.NewStats()
	results, err := FilterFiles(context.Background(), []string{a, b, missing}, testConfig(t), 2, stats)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a.asc", results[0].Name())
	require.NoError(t, results[0].Err)
	assert.Equal(t, int64(1), results[0].Result.Stats.SentinelRows)
	assert.Equal(t, int64(1), results[1].Result.Stats.OutOfWindowRows)
	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Result)

	totals := Totals(results)
	assert.Equal(t, int64(5), totals.LinesRead)
	assert.Equal(t, int64(2), totals.KeptRows)
	assert.Equal(t, uint64(2), stats.FilesDone.Load())
	var size int64
	for _, p := range []string{a, b} {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		size += fi.Size()
	}
	assert.Equal(t, uint64(size), stats.BytesRead.Load())

	var buf bytes.Buffer
	w, err := sink.NewCSVWriter(&buf, testConfig(t).Fields)
	require.NoError(t, err)
	n, err := WriteAll(w, results, stats)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, int64(2), n)
	assert.Equal(t, uint64(2), stats.RowsWritten.Load())
	assert.Equal(t,
		"Datetime,Bz_nT_GSE,Flow_Speed_km_s\n"+
			"2022-11-23 12:00,-3.45,412.3\n"+
			"2022-11-24 10:15,1.20,415.0\n",
		buf.String())
}

func TestFilterFilesRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fields = []string{"Electric_Field_mV_m"}

	_, err := FilterFiles(context.Background(), []string{"unused.asc"}, cfg, 1, nil)
	assert.ErrorIs(t, err, omni.ErrMissingField)
}

func TestFilterFilesHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.asc", record(327, 12, 0, "1", "400"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FilterFiles(ctx, []string{a}, testConfig(t), 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
