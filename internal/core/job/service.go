package job

import (
	"context"
	"fmt"

	rds "gsplat/internal/platform/redis"
)

type JobService struct{ redis *rds.Service }

func NewJobService(redis *rds.Service) *JobService { return &JobService{redis: redis} }

func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &j, nil
}

func (s *JobService) InitPending(ctx context.Context, jobID string) error {
	return s.store(ctx, Job{JobID: jobID, Type: TypeScene, Status: StatusPending})
}

func (s *JobService) SetProcessing(ctx context.Context, jobID string) error {
	j := s.current(ctx, jobID)
	j.Status = StatusProcessing
	return s.store(ctx, j)
}

// SetProgress records a milestone update. Called from the pipeline's
// progress callback; progress is a fixed percentage, stage a short tag.
func (s *JobService) SetProgress(ctx context.Context, jobID string, progress int, stage string) error {
	j := s.current(ctx, jobID)
	j.Status = StatusProcessing
	j.Progress = progress
	j.Stage = stage
	return s.store(ctx, j)
}

// Complete stores the terminal result. The job status follows the result's
// own success/fail determination.
func (s *JobService) Complete(ctx context.Context, jobID string, res SceneResult) error {
	j := s.current(ctx, jobID)
	if res.Status == "success" {
		j.Status = StatusCompleted
	} else {
		j.Status = StatusFailed
	}
	j.Progress = res.Progress
	j.Result = &res
	return s.store(ctx, j)
}

func (s *JobService) current(ctx context.Context, jobID string) Job {
	var j Job
	_ = s.redis.CacheGet(ctx, key(jobID), &j)
	j.JobID = jobID
	j.Type = TypeScene
	return j
}

func (s *JobService) store(ctx context.Context, j Job) error {
	if err := s.redis.CacheSet(ctx, key(j.JobID), j, ttl(j.Status)); err != nil {
		return err
	}
	// Notify any listeners (SSE, pollers) that the record changed.
	_ = s.redis.Client().Publish(ctx, key(j.JobID), "updated").Err()
	return nil
}

func key(id string) string { return "job:" + id }

func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed {
		return 3600
	}
	return 600
}
