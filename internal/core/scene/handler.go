package scene

import (
	"github.com/gofiber/fiber/v2"

	"gsplat/internal/core/job"
	tasks "gsplat/internal/platform/tasks"
)

type Handler struct {
	service *Service
	tasks   *tasks.Client
	jobs    *job.JobService
}

func NewHandler(service *Service, tasks *tasks.Client, jobs *job.JobService) *Handler {
	return &Handler{service: service, tasks: tasks, jobs: jobs}
}

type createResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Success  bool             `json:"success"`
	JobID    string           `json:"job_id"`
	Status   job.Status       `json:"status"`
	Progress int              `json:"progress"`
	Stage    string           `json:"stage,omitempty"`
	Result   *job.SceneResult `json:"result,omitempty"`
}

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(createResponse{Error: "invalid body"})
	}
	if req.VideoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(createResponse{Error: "video_url is required"})
	}
	if req.Params.Iterations < 0 || req.Params.FPS < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(createResponse{Error: "iterations and fps must not be negative"})
	}

	id, err := h.service.Enqueue(c.Context(), h.tasks, req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(createResponse{Error: err.Error()})
	}
	return c.JSON(createResponse{Success: true, JobID: id})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(createResponse{Error: "job id is required"})
	}

	j, err := h.jobs.GetJobStatus(c.Context(), jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(createResponse{Error: "not_found"})
	}

	return c.JSON(statusResponse{
		Success:  true,
		JobID:    j.JobID,
		Status:   j.Status,
		Progress: j.Progress,
		Stage:    j.Stage,
		Result:   j.Result,
	})
}
