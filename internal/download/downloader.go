// Package download fetches mod archives and coordinates a worker pool across
// a collection's download tasks, reusing previously-downloaded archives on
// disk whenever one satisfies the expected mod.
package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// lowSpeedThreshold and lowSpeedWindow reproduce curl's CURLOPT_LOW_SPEED_LIMIT
// / CURLOPT_LOW_SPEED_TIME pairing: abort a transfer stuck below 1KB/s for 60s.
// The rate is measured only as data arrives; a connection that delivers no
// bytes at all is not aborted by this check.
const (
	lowSpeedThreshold = 1000 // bytes/sec
	lowSpeedWindow     = 60 * time.Second
)

// Result is the outcome of a single file download.
type Result struct {
	Path     string
	Size     int64
	Checksum string // hex MD5
}

// Downloader performs a single HTTP download with progress reporting, an
// MD5 checksum computed in the same pass, and a low-speed abort.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader returns a Downloader. A nil httpClient uses http.DefaultClient.
func NewDownloader(httpClient *http.Client) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Downloader{httpClient: httpClient}
}

// ProgressFunc reports cumulative bytes downloaded and the total expected
// (0 if unknown).
type ProgressFunc func(downloaded, total int64)

// Download fetches url into destPath atomically (via a .tmp-then-rename),
// reporting progress and aborting when the throughput measured over a 60s
// window of received data falls below 1KB/s.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progressFn ProgressFunc) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	tempPath := destPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		file.Close()
		os.Remove(tempPath)
	}()

	lowSpeedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := &lowSpeedReader{
		ctx:        lowSpeedCtx,
		cancel:     cancel,
		reader:     resp.Body,
		totalBytes: resp.ContentLength,
		progressFn: progressFn,
	}

	hasher := md5.New()
	tee := io.TeeReader(reader, hasher)

	written, err := io.Copy(file, tee)
	if err != nil {
		if reader.abortedLowSpeed {
			return nil, fmt.Errorf("download stalled below %d B/s for %v", lowSpeedThreshold, lowSpeedWindow)
		}
		return nil, fmt.Errorf("downloading file: %w", err)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return nil, fmt.Errorf("renaming file: %w", err)
	}

	return &Result{Path: destPath, Size: written, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// lowSpeedReader wraps an io.Reader, tracking a sliding "bytes since window
// start" counter; on a read that returns data after the window has elapsed,
// it cancels the context if the window's average rate is below
// lowSpeedThreshold. A read that blocks without data is not interrupted.
type lowSpeedReader struct {
	ctx             context.Context
	cancel          context.CancelFunc
	reader          io.Reader
	totalBytes      int64
	downloaded      int64
	progressFn      ProgressFunc
	windowStart     time.Time
	windowBytes     int64
	abortedLowSpeed bool
}

func (r *lowSpeedReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	n, err := r.reader.Read(p)
	if n > 0 {
		now := time.Now()
		if r.windowStart.IsZero() {
			r.windowStart = now
		}
		r.downloaded += int64(n)
		r.windowBytes += int64(n)

		if elapsed := now.Sub(r.windowStart); elapsed >= lowSpeedWindow {
			avgRate := float64(r.windowBytes) / elapsed.Seconds()
			if avgRate < lowSpeedThreshold {
				r.abortedLowSpeed = true
				r.cancel()
			}
			r.windowStart = now
			r.windowBytes = 0
		}

		if r.progressFn != nil {
			r.progressFn(r.downloaded, r.totalBytes)
		}
	}
	return n, err
}
