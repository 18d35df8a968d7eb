// Package worker dispatches queue tasks to their handlers. The gsplat
// worker registers a single task type, scene:task, which runs one full
// scene pipeline per invocation.
package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// Handler processes one dequeued task. Scene handlers always return nil:
// every pipeline failure is terminal and recorded in the job store, so the
// queue must never see an error it would retry.
type Handler func(ctx context.Context, task *asynq.Task) error

type Mux struct{ mux *asynq.ServeMux }

func NewMux() *Mux { return &Mux{mux: asynq.NewServeMux()} }

func (m *Mux) HandleFunc(taskType string, h Handler) {
	m.mux.HandleFunc(taskType, h)
}

// Mux exposes the underlying ServeMux for asynq server startup.
func (m *Mux) Mux() *asynq.ServeMux { return m.mux }
