package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gsplat/internal/config"
	"gsplat/internal/platform/command"
)

// fakeRunner stands in for ffmpeg and colmap. It writes frame files when
// "ffmpeg" is invoked and reconstruction directories when the mapper runs,
// recording every invocation. With bareRecon set the reconstruction
// directories are created empty, without the usual .bin artifacts.
type fakeRunner struct {
	frames    int
	reconDirs []string
	bareRecon bool
	calls     []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, dir string) (command.Result, error) {
	tag := name
	if name == "colmap" && len(args) > 0 {
		tag = "colmap " + args[0]
	}
	f.calls = append(f.calls, tag)

	switch tag {
	case "ffmpeg":
		outDir := filepath.Dir(args[len(args)-1])
		for i := 1; i <= f.frames; i++ {
			name := fmt.Sprintf("frame_%05d.jpg", i)
			if err := os.WriteFile(filepath.Join(outDir, name), []byte("jpg"), 0o644); err != nil {
				return command.Result{}, err
			}
		}
	case "colmap mapper":
		sparse := argValue(args, "--output_path")
		for _, d := range f.reconDirs {
			recon := filepath.Join(sparse, d)
			if err := os.MkdirAll(recon, 0o755); err != nil {
				return command.Result{}, err
			}
			if f.bareRecon {
				continue
			}
			for _, a := range sparseArtifacts {
				if err := os.WriteFile(filepath.Join(recon, a), []byte("bin"), 0o644); err != nil {
					return command.Result{}, err
				}
			}
		}
	}
	return command.Result{}, nil
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		FfmpegBin:   "ffmpeg",
		ColmapBin:   "colmap",
		CameraModel: "OPENCV",
		JPEGQuality: 2,
	}
}

func TestPrepareTooFewFrames(t *testing.T) {
	for _, frames := range []int{0, 1, 2} {
		runner := &fakeRunner{frames: frames}
		p := NewPreparer(runner, testPipeline())
		l := Layout{Root: t.TempDir()}

		err := p.Prepare(context.Background(), l, 2)

		var insufficientErr *InsufficientFramesError
		if !errors.As(err, &insufficientErr) {
			t.Fatalf("frames=%d: err = %v, want *InsufficientFramesError", frames, err)
		}
		if insufficientErr.Extracted != frames {
			t.Errorf("Extracted = %d, want %d", insufficientErr.Extracted, frames)
		}
		if !strings.Contains(err.Error(), "3") {
			t.Errorf("error %q should mention the 3-frame minimum", err)
		}
		for _, call := range runner.calls {
			if strings.HasPrefix(call, "colmap") {
				t.Errorf("frames=%d: reconstruction attempted: %v", frames, runner.calls)
			}
		}
	}
}

func TestExtractFramesCount(t *testing.T) {
	runner := &fakeRunner{frames: 42}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	n, err := p.ExtractFrames(context.Background(), l.VideoPath(), l.InputDir(), 2)
	if err != nil {
		t.Fatalf("ExtractFrames: %v", err)
	}
	if n != 42 {
		t.Errorf("frame count = %d, want 42", n)
	}
}

func TestPrepareStageOrder(t *testing.T) {
	runner := &fakeRunner{frames: 5, reconDirs: []string{"0"}}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	if err := p.Prepare(context.Background(), l, 2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := []string{"ffmpeg", "colmap feature_extractor", "colmap exhaustive_matcher", "colmap mapper"}
	if len(runner.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", runner.calls, want)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, runner.calls[i], want[i])
		}
	}
}

func TestPrepareReplacesWorkingDir(t *testing.T) {
	runner := &fakeRunner{frames: 4, reconDirs: []string{"0"}}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	// Simulate a working copy left behind by an earlier run.
	if err := os.MkdirAll(l.ImagesDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(l.ImagesDir(), "stale.jpg")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.Prepare(context.Background(), l, 2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale working-copy file survived duplication")
	}
	copies, _ := filepath.Glob(filepath.Join(l.ImagesDir(), "*.jpg"))
	if len(copies) != 4 {
		t.Errorf("working dir has %d frames, want 4", len(copies))
	}
}

func TestPrepareStaleDatabaseRemoved(t *testing.T) {
	runner := &fakeRunner{frames: 4, reconDirs: []string{"0"}}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	if err := os.WriteFile(l.DatabasePath(), []byte("previous run"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Prepare(context.Background(), l, 2); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := os.Stat(l.DatabasePath()); !os.IsNotExist(err) {
		t.Error("stale database.db should be removed before feature extraction")
	}
}

func TestReconstructionFallbackDir(t *testing.T) {
	runner := &fakeRunner{frames: 4, reconDirs: []string{"7"}}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	if err := p.Prepare(context.Background(), l, 2); err != nil {
		t.Fatalf("Prepare should select the fallback reconstruction dir: %v", err)
	}
}

func TestReconstructionMissingArtifactsNotFatal(t *testing.T) {
	runner := &fakeRunner{frames: 4, reconDirs: []string{"0"}, bareRecon: true}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	// A reconstruction directory without cameras.bin/images.bin/points3D.bin
	// is only warned about; the trainer reports its own error if it truly
	// cannot load the reconstruction.
	if err := p.Prepare(context.Background(), l, 2); err != nil {
		t.Fatalf("Prepare should tolerate missing reconstruction files: %v", err)
	}
}

func TestReconstructionMissing(t *testing.T) {
	runner := &fakeRunner{frames: 4, reconDirs: nil}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}

	err := p.Prepare(context.Background(), l, 2)
	if !errors.Is(err, ErrNoReconstruction) {
		t.Fatalf("err = %v, want ErrNoReconstruction", err)
	}
}

func TestReconstructCommandFailure(t *testing.T) {
	runner := &failingRunner{failOn: "exhaustive_matcher"}
	p := NewPreparer(runner, testPipeline())
	l := Layout{Root: t.TempDir()}
	if err := os.MkdirAll(l.ImagesDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	err := p.Reconstruct(context.Background(), l)
	var exitErr *command.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want wrapped *command.ExitError", err)
	}
}

type failingRunner struct{ failOn string }

func (f *failingRunner) Run(ctx context.Context, name string, args []string, dir string) (command.Result, error) {
	if len(args) > 0 && args[0] == f.failOn {
		return command.Result{}, &command.ExitError{Name: name, Args: args, ExitCode: 1, Stderr: "boom"}
	}
	return command.Result{}, nil
}
