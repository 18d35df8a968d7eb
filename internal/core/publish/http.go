package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// StatusError reports a sink that rejected the upload.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload to %s rejected with status %d", e.URL, e.StatusCode)
}

// HTTPSink PUTs the archive to <base>/<name> with an optional bearer
// token. The public locator comes from a URL field in the JSON response
// when the sink returns one, otherwise it is the upload URL itself.
type HTTPSink struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTPSink(base, token string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSink) Deliver(ctx context.Context, archivePath, name string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	uploadURL := s.base + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, f)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if fi, err := f.Stat(); err == nil {
		req.ContentLength = fi.Size()
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", uploadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: uploadURL, StatusCode: resp.StatusCode}
	}

	if url := urlFromResponse(resp.Body); url != "" {
		return url, nil
	}
	return uploadURL, nil
}

// urlFromResponse extracts a locator from the sink's JSON body. Different
// deployments name the field differently; the first recognized key wins.
func urlFromResponse(body io.Reader) string {
	var payload map[string]interface{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	for _, key := range []string{"url", "plt_url", "public_url", "location"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
