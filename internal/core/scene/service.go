package scene

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"gsplat/internal/config"
	"gsplat/internal/core/job"
	"gsplat/internal/logger"
	tasks "gsplat/internal/platform/tasks"
)

// Service is the queue-facing front of the pipeline: it enqueues scene
// tasks and handles them on the worker side, mirroring job state and
// progress into the job store.
type Service struct {
	pipeline *Pipeline
	jobs     *job.JobService
	log      *logger.Logger
}

func NewService(cfg config.Config, jobs *job.JobService) *Service {
	return &Service{pipeline: NewPipeline(cfg), jobs: jobs, log: logger.New("SceneService")}
}

func (s *Service) Enqueue(ctx context.Context, t *tasks.Client, req Request) (string, error) {
	jobID := uuid.NewString()
	payload, _ := json.Marshal(Payload{JobID: jobID, Request: req})
	if err := s.jobs.InitPending(ctx, jobID); err != nil {
		return "", err
	}
	task := asynq.NewTask(TaskTypeScene, payload)
	// Zero retries: any stage failure is terminal for the job.
	if err := t.Enqueue(task, "default", 0); err != nil {
		return "", err
	}
	return jobID, nil
}

// HandleTask runs one scene pipeline. It always returns nil: failures are
// recorded in the job result, and the queue must not retry them.
func (s *Service) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		s.log.LogError("Discarding malformed scene task", err)
		return nil
	}
	if err := s.jobs.SetProcessing(ctx, p.JobID); err != nil {
		s.log.LogErrorf("Failed to mark job %s processing: %v", p.JobID, err)
	}

	res := s.pipeline.Run(ctx, p.Request, func(progress int, stage string) {
		if err := s.jobs.SetProgress(ctx, p.JobID, progress, stage); err != nil {
			s.log.LogWarnf("Progress update %d%%/%s for job %s failed: %v", progress, stage, p.JobID, err)
		}
	})

	if err := s.jobs.Complete(ctx, p.JobID, res); err != nil {
		s.log.LogErrorf("Failed to store result for job %s: %v", p.JobID, err)
	}
	return nil
}
