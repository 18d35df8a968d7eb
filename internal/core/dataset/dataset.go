// Package dataset turns a raw video into the directory structure the
// gaussian-splat trainer consumes: extracted frames, a working image copy,
// and a colmap sparse reconstruction.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gsplat/internal/config"
	"gsplat/internal/logger"
	"gsplat/internal/platform/command"
)

// minFrames is the geometric floor for sparse reconstruction, not a
// tunable: fewer than 3 views cannot triangulate anything.
const minFrames = 3

// InsufficientFramesError reports that extraction produced too few frames
// for reconstruction to be well-posed.
type InsufficientFramesError struct {
	Extracted int
}

func (e *InsufficientFramesError) Error() string {
	return fmt.Sprintf("not enough frames extracted (%d), need at least %d", e.Extracted, minFrames)
}

// ErrNoReconstruction is returned when mapping finished without producing
// any reconstruction directory under sparse/.
var ErrNoReconstruction = errors.New("colmap produced no sparse reconstruction")

// sparseArtifacts are the files the trainer expects inside the selected
// reconstruction directory.
var sparseArtifacts = []string{"cameras.bin", "images.bin", "points3D.bin"}

type Preparer struct {
	runner command.Runner
	pc     config.PipelineConfig
	log    *logger.Logger
}

func NewPreparer(runner command.Runner, pc config.PipelineConfig) *Preparer {
	return &Preparer{runner: runner, pc: pc, log: logger.New("Dataset")}
}

// Prepare runs the four-stage dataset build for one scene: extract frames,
// validate the count, rebuild the working image directory, reconstruct.
// Each stage is a precondition for the next; the first failure aborts the
// whole operation.
func (p *Preparer) Prepare(ctx context.Context, l Layout, fps int) error {
	n, err := p.ExtractFrames(ctx, l.VideoPath(), l.InputDir(), fps)
	if err != nil {
		return err
	}
	if n < minFrames {
		return &InsufficientFramesError{Extracted: n}
	}

	if err := p.duplicateToWorkingDir(l); err != nil {
		return err
	}

	return p.Reconstruct(ctx, l)
}

// ExtractFrames invokes ffmpeg to sample the video at fps, writing
// frame_00001.jpg, frame_00002.jpg, ... into outDir. Returns the number of
// frames produced.
func (p *Preparer) ExtractFrames(ctx context.Context, videoPath, outDir string, fps int) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create frame dir: %w", err)
	}

	pattern := filepath.Join(outDir, "frame_%05d.jpg")
	_, err := p.runner.Run(ctx, p.pc.FfmpegBin, []string{
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-q:v", strconv.Itoa(p.pc.JPEGQuality),
		pattern,
	}, "")
	if err != nil {
		return 0, fmt.Errorf("frame extraction: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "*.jpg"))
	if err != nil {
		return 0, err
	}
	p.log.LogInfof("Extracted %d frames at fps=%d", len(frames), fps)
	return len(frames), nil
}

// duplicateToWorkingDir rebuilds images/ as a full copy of input/. Any
// previous working copy is removed wholesale first, so stale frames from
// an earlier run can never leak into reconstruction.
func (p *Preparer) duplicateToWorkingDir(l Layout) error {
	if err := os.RemoveAll(l.ImagesDir()); err != nil {
		return fmt.Errorf("remove working dir: %w", err)
	}
	if err := copyTree(l.InputDir(), l.ImagesDir()); err != nil {
		return fmt.Errorf("copy frames to working dir: %w", err)
	}
	return nil
}

// Reconstruct runs the colmap sparse pipeline against the working images:
// feature extraction, then exhaustive matching, then incremental mapping.
// The order is fixed; mapping depends on matches which depend on features.
// A database left over from an earlier run is removed first.
func (p *Preparer) Reconstruct(ctx context.Context, l Layout) error {
	if err := os.Remove(l.DatabasePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale database: %w", err)
	}
	if err := os.MkdirAll(l.SparseDir(), 0o755); err != nil {
		return fmt.Errorf("create sparse dir: %w", err)
	}

	gpu := "0"
	if p.pc.UseGPU {
		gpu = "1"
	}

	steps := [][]string{
		{
			"feature_extractor",
			"--database_path", l.DatabasePath(),
			"--image_path", l.ImagesDir(),
			"--ImageReader.camera_model", p.pc.CameraModel,
			"--ImageReader.single_camera", "1",
			"--SiftExtraction.use_gpu", gpu,
		},
		{
			"exhaustive_matcher",
			"--database_path", l.DatabasePath(),
			"--SiftMatching.use_gpu", gpu,
		},
		{
			"mapper",
			"--database_path", l.DatabasePath(),
			"--image_path", l.ImagesDir(),
			"--output_path", l.SparseDir(),
			"--Mapper.ba_refine_focal_length", "0",
			"--Mapper.ba_refine_extra_params", "0",
		},
	}
	for _, args := range steps {
		if _, err := p.runner.Run(ctx, p.pc.ColmapBin, args, ""); err != nil {
			return fmt.Errorf("colmap %s: %w", args[0], err)
		}
	}

	reconDir, err := p.selectReconstruction(l.SparseDir())
	if err != nil {
		return err
	}
	p.log.LogInfof("Sparse reconstruction at %s", reconDir)

	// Missing artifacts are logged but do not block training; the trainer
	// gives its own error if it truly cannot load the reconstruction.
	for _, name := range sparseArtifacts {
		path := filepath.Join(reconDir, name)
		if _, err := os.Stat(path); err != nil {
			p.log.LogWarnf("Missing expected reconstruction file: %s", path)
		}
	}
	return nil
}

// selectReconstruction picks the reconstruction directory: "0" by colmap
// convention, otherwise the first directory present as a fallback.
func (p *Preparer) selectReconstruction(sparseDir string) (string, error) {
	conventional := filepath.Join(sparseDir, "0")
	if fi, err := os.Stat(conventional); err == nil && fi.IsDir() {
		return conventional, nil
	}

	entries, err := os.ReadDir(sparseDir)
	if err != nil {
		return "", fmt.Errorf("read sparse dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 0 {
		return "", ErrNoReconstruction
	}
	sort.Strings(dirs)
	fallback := filepath.Join(sparseDir, dirs[0])
	p.log.LogWarnf("No reconstruction at %s, falling back to %s", conventional, fallback)
	return fallback, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
