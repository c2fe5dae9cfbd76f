// Package fetch downloads source data files with retry and atomic
// placement.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// OMNIBaseURL serves the high-resolution 1-minute OMNI ASCII files.
const OMNIBaseURL = "https://spdf.gsfc.nasa.gov/pub/data/omni/high_res_omni/monthly_1min"

// ErrNotFound is returned for a 404; it is not retried.
var ErrNotFound = errors.New("not found")

// OMNIMonthlyFilename returns the SPDF file name for a month,
// e.g. omni_min202211.asc.
func OMNIMonthlyFilename(year int, month time.Month) string {
	return fmt.Sprintf("omni_min%04d%02d.asc", year, int(month))
}

// Months lists the first instant of each month from from to to, inclusive.
func Months(from, to time.Time) []time.Time {
	var out []time.Time
	m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(end) {
		out = append(out, m)
		m = m.AddDate(0, 1, 0)
	}
	return out
}

// Client downloads files over HTTP.
type Client struct {
	HTTP       *http.Client
	MaxElapsed time.Duration
}

// NewClient returns a client with a per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxElapsed: 2 * time.Minute,
	}
}

// Download fetches url into destPath, retrying transient failures with
// exponential backoff. The file is written to destPath.tmp and renamed on
// success. It returns the byte count.
func (c *Client) Download(ctx context.Context, url, destPath string) (int64, error) {
	var n int64
	operation := func() error {
		var err error
		n, err = c.fetchOnce(ctx, url, destPath)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsed
	notify := func(err error, wait time.Duration) {
		log.Printf("  retrying %s in %v: %v", url, wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) fetchOnce(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, backoff.Permanent(fmt.Errorf("%s: %w", url, ErrNotFound))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return 0, backoff.Permanent(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create file failed: %w", err))
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, backoff.Permanent(fmt.Errorf("rename failed: %w", err))
	}
	return n, nil
}
