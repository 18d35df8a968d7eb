package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"gsplat/internal/config"
	"gsplat/internal/core/job"
	"gsplat/internal/core/scene"
	"gsplat/internal/logger"
	rds "gsplat/internal/platform/redis"
	tasks "gsplat/internal/platform/tasks"
	"gsplat/internal/server"
	"gsplat/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[gsplat] starting at %s (env=%s workdir=%s)\n", cfg.HTTPAddr, cfg.AppEnv, cfg.WorkDir)

	logr := logger.New("main")

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		log.Fatalf("workdir %s: %v", cfg.WorkDir, err)
	}

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server. Scene jobs are long-running and GPU-bound,
	// so concurrency stays low.
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	jobSvc := job.NewJobService(redisSvc)
	sceneSvc := scene.NewService(cfg, jobSvc)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(scene.TaskTypeScene, sceneSvc.HandleTask)

	_, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Gsplat Scene Worker",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	deps := server.Dependencies{
		Job:     jobSvc,
		Scene:   sceneSvc,
		Tasks:   taskClient,
		Redis:   redisSvc,
		WorkDir: cfg.WorkDir,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		workerCancel()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
