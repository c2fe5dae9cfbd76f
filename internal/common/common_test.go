package common

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-space-lab/internal/omni"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ClickHouseHost)
	assert.Equal(t, "omni", cfg.ClickHouseDatabase)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, filepath.Join(cfg.DataDir, "omni"), cfg.OMNIDataDir())
	assert.Equal(t, filepath.Join(cfg.DataDir, "space-lab.db"), cfg.DatabasePath())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SPACELAB_CLICKHOUSE_HOST", "ch.local:9000")
	t.Setenv("SPACELAB_DATA_DIR", "/data/lab")
	t.Setenv("SPACELAB_SQLITE_PATH", "/tmp/lab.db")
	t.Setenv("SPACELAB_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ch.local:9000", cfg.ClickHouseHost)
	assert.Equal(t, "/data/lab/profiles", cfg.ProfileDataDir())
	assert.Equal(t, "/tmp/lab.db", cfg.DatabasePath())
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadRejectsBadWorkers(t *testing.T) {
	t.Setenv("SPACELAB_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SPACELAB_WORKERS", "many")
	_, err = Load()
	assert.Error(t, err)
}

func TestStatsAddFilterConcurrent(t *testing.T) {
	s := NewStats()
	fs := omni.FilterStats{LinesRead: 10, KeptRows: 6, MalformedRows: 1, SentinelRows: 2, OutOfWindowRows: 1}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddFilter(fs)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8), s.FilesDone.Load())
	assert.Equal(t, uint64(80), s.LinesRead.Load())
	assert.Equal(t, uint64(48), s.KeptRows.Load())
	assert.Equal(t, uint64(16), s.Sentinel.Load())

	s.AddBytesRead(512)
	s.AddBytesRead(-1)
	s.AddWritten(48)
	assert.Equal(t, uint64(512), s.BytesRead.Load())
	assert.Equal(t, uint64(48), s.RowsWritten.Load())

	s.Reset()
	assert.Zero(t, s.LinesRead.Load())
	assert.Zero(t, s.BytesRead.Load())
	assert.Zero(t, s.RowsWritten.Load())
}

func TestStatsPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	s := NewStats()
	s.SetOutput(&buf)
	s.lastTime = time.Now()

	s.AddFilter(omni.FilterStats{LinesRead: 1000, KeptRows: 900})
	s.AddBytesRead(2 * 1024 * 1024)
	s.AddWritten(900)
	s.printStatus(s.lastTime.Add(time.Second))

	assert.Contains(t, buf.String(), "[Progress] Files: 1 (2.0 MiB) | Lines: 1000 (1000/s")
	assert.Contains(t, buf.String(), "Kept: 900")
	assert.Contains(t, buf.String(), "Written: 900")

	s.SetOutput(nil)
	buf.Reset()
	s.printStatus(time.Now().Add(time.Second))
	assert.Empty(t, buf.String())
}

func TestReporterStartStop(t *testing.T) {
	s := NewStats()
	s.SetOutput(nil)
	s.StartReporter()
	s.StartReporter()
	s.StopReporter()
	s.StopReporter()
}
