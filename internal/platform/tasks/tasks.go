package tasks

import (
	"github.com/hibiken/asynq"

	"gsplat/internal/platform/redis"
)

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

// Enqueue submits a task. Scene jobs are enqueued with maxRetries=0: every
// stage failure is terminal for the job, so the queue must not re-run it.
func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	return err
}
