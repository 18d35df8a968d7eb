package publish

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Archive zips the entire tree under resultDir into <sceneID>.zip next to
// it. The name is deterministic, so re-publishing the same scene
// overwrites the previous archive instead of accumulating files.
// Returns the archive path.
func Archive(resultDir, sceneID string) (string, error) {
	zipPath := filepath.Join(filepath.Dir(resultDir), sceneID+".zip")

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	err = filepath.Walk(resultDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(resultDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		out.Close()
		return "", fmt.Errorf("archive %s: %w", resultDir, err)
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return zipPath, nil
}
