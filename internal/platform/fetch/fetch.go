// Package fetch downloads remote artifacts (the input video) to local disk.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gsplat/internal/logger"
)

// copyChunkSize keeps the streaming copy bounded; the body is never held
// in memory whole.
const copyChunkSize = 8192

// StatusError is returned when the source responds with a non-2xx status.
// No bytes are written to the destination in that case.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

type Fetcher struct {
	client *http.Client
	log    *logger.Logger
}

// New returns a Fetcher whose requests are bounded by timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    logger.New("Fetch"),
	}
}

// Download streams url to dst, creating parent directories as needed.
// An existing file at dst is overwritten. Returns the number of bytes
// written.
func (f *Fetcher) Download(ctx context.Context, url, dst string) (int64, error) {
	f.log.LogInfof("Downloading %s -> %s", url, dst)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	written, err := io.CopyBuffer(out, resp.Body, make([]byte, copyChunkSize))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("write %s: %w", dst, err)
	}

	f.log.LogInfof("Downloaded %d bytes to %s", written, dst)
	return written, nil
}
