package scene

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"gsplat/internal/config"
	"gsplat/internal/core/dataset"
	"gsplat/internal/core/job"
	"gsplat/internal/core/publish"
	"gsplat/internal/logger"
	"gsplat/internal/platform/command"
	"gsplat/internal/platform/fetch"
)

// Fetcher downloads the input video.
type Fetcher interface {
	Download(ctx context.Context, url, dst string) (int64, error)
}

// Preparer builds the training dataset inside the workspace.
type Preparer interface {
	Prepare(ctx context.Context, l dataset.Layout, fps int) error
}

// Publisher archives and delivers the training output.
type Publisher interface {
	Publish(ctx context.Context, resultDir, sceneID string) (string, error)
}

// Pipeline sequences one scene job: download → prepare → train → publish.
// Stages run strictly in order; the first failure is terminal and the
// workspace is removed best-effort on every exit path.
type Pipeline struct {
	cfg       config.Config
	fetcher   Fetcher
	preparer  Preparer
	runner    command.Runner
	publisher Publisher
	log       *logger.Logger
}

// NewPipeline wires the production collaborators from config.
func NewPipeline(cfg config.Config) *Pipeline {
	runner := command.NewExec()
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetch.New(cfg.FetchTimeout),
		preparer:  dataset.NewPreparer(runner, cfg.Pipeline),
		runner:    runner,
		publisher: publish.New(cfg),
		log:       logger.New("Pipeline"),
	}
}

// NewPipelineWith wires explicit collaborators; used by tests.
func NewPipelineWith(cfg config.Config, f Fetcher, p Preparer, r command.Runner, pub Publisher) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: f, preparer: p, runner: r, publisher: pub, log: logger.New("Pipeline")}
}

// Run executes the full pipeline for one request and always returns a
// terminal result; no error escapes to the caller. Progress milestones
// are reported through report (may be nil).
func (p *Pipeline) Run(ctx context.Context, req Request, report ProgressFunc) job.SceneResult {
	sceneID := req.SceneID
	if sceneID == "" {
		sceneID = uuid.NewString()
	}
	iterations := req.Params.Iterations
	if iterations <= 0 {
		iterations = p.cfg.DefaultIterations
	}
	fps := req.Params.FPS
	if fps <= 0 {
		fps = p.cfg.DefaultFPS
	}

	reached := 0
	milestone := func(progress int, stage string) {
		reached = progress
		if report != nil {
			report(progress, stage)
		}
	}
	fail := func(err error) job.SceneResult {
		p.log.LogErrorf("Scene %s failed at %d%%: %v", sceneID, reached, err)
		return job.SceneResult{Status: "fail", SceneID: sceneID, Progress: reached, Error: err.Error()}
	}

	l := dataset.Layout{Root: filepath.Join(p.cfg.WorkDir, "scenes", sceneID)}
	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return fail(fmt.Errorf("allocate workspace: %w", err))
	}
	defer p.cleanup(l.Root)

	p.log.LogInfof("Scene %s: %s (fps=%d iterations=%d)", sceneID, req.VideoURL, fps, iterations)

	milestone(0, "downloading_video")
	if _, err := p.fetcher.Download(ctx, req.VideoURL, l.VideoPath()); err != nil {
		return fail(fmt.Errorf("download error: %w", err))
	}
	milestone(10, "video_downloaded")

	milestone(10, "preparing_dataset")
	if err := p.preparer.Prepare(ctx, l, fps); err != nil {
		return fail(err)
	}
	milestone(30, "dataset_ready")

	milestone(30, "training")
	if err := p.train(ctx, l, iterations); err != nil {
		return fail(err)
	}
	milestone(90, "training_complete")

	milestone(90, "uploading")
	url, err := p.publisher.Publish(ctx, l.OutputDir(), sceneID)
	if err != nil {
		return fail(err)
	}
	milestone(100, "done")

	return job.SceneResult{Status: "success", SceneID: sceneID, Progress: 100, PltURL: url}
}

func (p *Pipeline) train(ctx context.Context, l dataset.Layout, iterations int) error {
	if err := os.MkdirAll(l.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	args := []string{
		p.cfg.Pipeline.TrainerScript,
		"-s", l.Root,
		"-m", l.OutputDir(),
		fmt.Sprintf("--iterations=%d", iterations),
	}
	if _, err := p.runner.Run(ctx, p.cfg.Pipeline.TrainerBin, args, p.cfg.WorkDir); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	return nil
}

// cleanup removes the scene workspace. Failures are logged only and never
// change the job's outcome.
func (p *Pipeline) cleanup(root string) {
	if err := os.RemoveAll(root); err != nil {
		p.log.LogWarnf("Failed to clean up workspace %s: %v", root, err)
	}
}
