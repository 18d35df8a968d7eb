package server

import (
	"github.com/gofiber/fiber/v2"

	"gsplat/internal/core/job"
	"gsplat/internal/core/scene"
	"gsplat/internal/health"
	"gsplat/internal/platform/redis"
	tasks "gsplat/internal/platform/tasks"
)

type Dependencies struct {
	Job     *job.JobService
	Scene   *scene.Service
	Tasks   *tasks.Client
	Redis   *redis.Service
	WorkDir string
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	healthHandler := health.NewHealthHandler(d.Redis, d.WorkDir)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	sceneHandler := scene.NewHandler(d.Scene, d.Tasks, d.Job)
	api.Post("/scenes", sceneHandler.HandleCreate)
	api.Get("/scenes/:jobId", sceneHandler.HandleGet)

	return healthHandler
}
