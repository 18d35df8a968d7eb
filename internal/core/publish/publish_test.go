package publish

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeResultDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	resultDir := filepath.Join(root, "output")
	if err := os.MkdirAll(filepath.Join(resultDir, "point_cloud"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"cfg_args":                  "config",
		"point_cloud/cloud.ply":     "ply-bytes",
		"point_cloud/iteration.txt": "100",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(resultDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return resultDir
}

func TestArchiveContents(t *testing.T) {
	resultDir := writeResultDir(t)

	zipPath, err := Archive(resultDir, "abc123")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if filepath.Base(zipPath) != "abc123.zip" {
		t.Errorf("archive name = %s, want abc123.zip", filepath.Base(zipPath))
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	for _, want := range []string{"cfg_args", "point_cloud/cloud.ply", "point_cloud/iteration.txt"} {
		if !names[want] {
			t.Errorf("archive missing %s (has %v)", want, names)
		}
	}
}

func TestArchiveOverwrites(t *testing.T) {
	resultDir := writeResultDir(t)

	first, err := Archive(resultDir, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	// Grow the result dir, archive again under the same scene id.
	if err := os.WriteFile(filepath.Join(resultDir, "extra.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := Archive(resultDir, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("archive path changed: %s vs %s", first, second)
	}

	archives, _ := filepath.Glob(filepath.Join(filepath.Dir(resultDir), "*.zip"))
	if len(archives) != 1 {
		t.Errorf("got %d archives, want exactly 1", len(archives))
	}
	r, err := zip.OpenReader(second)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	found := false
	for _, f := range r.File {
		if f.Name == "extra.txt" {
			found = true
		}
	}
	if !found {
		t.Error("second archive should contain the new file")
	}
}

func TestPublishNoSink(t *testing.T) {
	p := NewWithSink(nil)
	_, err := p.Publish(context.Background(), writeResultDir(t), "abc123")
	if !errors.Is(err, ErrNoSink) {
		t.Fatalf("err = %v, want ErrNoSink", err)
	}
}

func TestHTTPSinkURLFromResponse(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"plt_url":"https://cdn.example.com/abc123.zip"}`))
	}))
	defer srv.Close()

	p := NewWithSink(NewHTTPSink(srv.URL, "secret-token", 10*time.Second))
	url, err := p.Publish(context.Background(), writeResultDir(t), "abc123")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://cdn.example.com/abc123.zip" {
		t.Errorf("url = %q", url)
	}
	if gotPath != "/abc123.zip" {
		t.Errorf("upload path = %q, want /abc123.zip", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestHTTPSinkConstructedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusNoContent) // no body, no URL field
	}))
	defer srv.Close()

	p := NewWithSink(NewHTTPSink(srv.URL, "", 10*time.Second))
	url, err := p.Publish(context.Background(), writeResultDir(t), "abc123")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != srv.URL+"/abc123.zip" {
		t.Errorf("url = %q, want %q", url, srv.URL+"/abc123.zip")
	}
}

func TestHTTPSinkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewWithSink(NewHTTPSink(srv.URL, "", 10*time.Second))
	_, err := p.Publish(context.Background(), writeResultDir(t), "abc123")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", statusErr.StatusCode)
	}
}
