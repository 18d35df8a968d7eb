package health

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"gsplat/internal/logger"
	"gsplat/internal/platform/redis"
)

// HealthHandler reports service readiness and the status of the
// components a scene job depends on: redis and the workspace directory.
type HealthHandler struct {
	log          *logger.Logger
	redisService *redis.Service
	workDir      string
	startTime    time.Time
	isReady      bool
}

func NewHealthHandler(redisSvc *redis.Service, workDir string) *HealthHandler {
	return &HealthHandler{
		log:          logger.New("HealthCheck"),
		redisService: redisSvc,
		workDir:      workDir,
		startTime:    time.Now(),
	}
}

// SetReady marks the application as ready to receive traffic
func (h *HealthHandler) SetReady() {
	h.isReady = true
	h.log.LogInfof("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type OverallHealth struct {
	OverallStatus string                     `json:"overall_status"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// HealthLimiter caps health-check traffic so aggressive probes cannot
// starve the worker.
func HealthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
	})
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 8*time.Second)
	defer cancel()

	components := map[string]ComponentStatus{}
	healthy := true

	if err := h.redisService.HealthCheck(ctx); err != nil {
		components["redis"] = ComponentStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		components["redis"] = ComponentStatus{Status: "healthy"}
	}

	if err := checkWritable(h.workDir); err != nil {
		components["workspace"] = ComponentStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		components["workspace"] = ComponentStatus{Status: "healthy"}
	}

	overall := "healthy"
	status := fiber.StatusOK
	if !healthy {
		overall = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(OverallHealth{
		OverallStatus: overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Ready:         h.isReady,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    components,
	})
}

// checkWritable verifies the scene workspace root exists and accepts
// writes; jobs cannot run without it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
