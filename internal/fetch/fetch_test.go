package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOMNIMonthlyFilename(t *testing.T) {
	assert.Equal(t, "omni_min202211.asc", OMNIMonthlyFilename(2022, time.November))
	assert.Equal(t, "omni_min199501.asc", OMNIMonthlyFilename(1995, time.January))
}

func TestMonths(t *testing.T) {
	from := time.Date(2022, 11, 23, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	got := Months(from, to)
	require.Len(t, got, 4)
	assert.Equal(t, time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), got[3])

	assert.Empty(t, Months(to, from))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("2022 327 12  0 data\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "omni_min202211.asc")
	c := NewClient(5 * time.Second)
	c.MaxElapsed = 10 * time.Second

	n, err := c.Download(context.Background(), srv.URL+"/omni_min202211.asc", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
	assert.Equal(t, int32(2), calls.Load())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "2022 327 12  0 data\n", string(data))
	assert.NoFileExists(t, dest+".tmp")
}

func TestDownloadNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.asc")
	_, err := NewClient(5*time.Second).Download(context.Background(), srv.URL+"/missing.asc", dest)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoFileExists(t, dest)
}
