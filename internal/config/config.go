package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	RedisAddr     string
	RedisPassword string

	// WorkDir is the root under which per-scene workspaces are created.
	WorkDir     string
	Concurrency int

	FetchTimeout  time.Duration
	UploadTimeout time.Duration

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	// Generic HTTP sink; used when supabase storage is not configured or
	// its client cannot be initialized.
	OutputBucketURL string
	OutputBucketKey string

	DefaultFPS        int
	DefaultIterations int

	Pipeline PipelineConfig
}

// PipelineConfig names the external tools and their tuning knobs. Defaults
// match the production container image; a YAML file pointed to by
// PIPELINE_CONFIG overrides individual fields.
type PipelineConfig struct {
	FfmpegBin     string `yaml:"ffmpeg_bin"`
	ColmapBin     string `yaml:"colmap_bin"`
	TrainerBin    string `yaml:"trainer_bin"`
	TrainerScript string `yaml:"trainer_script"`

	CameraModel string `yaml:"camera_model"`
	UseGPU      bool   `yaml:"use_gpu"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func defaultPipeline() PipelineConfig {
	return PipelineConfig{
		FfmpegBin:     "ffmpeg",
		ColmapBin:     "colmap",
		TrainerBin:    "python3",
		TrainerScript: "train.py",
		CameraModel:   "OPENCV",
		UseGPU:        true,
		JPEGQuality:   2,
	}
}

func Load() Config {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "development"),
		HTTPAddr: getenv("HTTP_ADDR", ":8082"),

		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		WorkDir:     getenv("WORK_DIR", "/workspace"),
		Concurrency: getenvInt("SCENE_CONCURRENCY", 1),

		FetchTimeout:  getenvDuration("FETCH_TIMEOUT", 2*time.Minute),
		UploadTimeout: getenvDuration("UPLOAD_TIMEOUT", 10*time.Minute),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "gsplat-results"),

		OutputBucketURL: os.Getenv("OUTPUT_BUCKET_URL"),
		OutputBucketKey: os.Getenv("OUTPUT_BUCKET_KEY"),

		DefaultFPS:        getenvInt("DEFAULT_FPS", 2),
		DefaultIterations: getenvInt("DEFAULT_ITERATIONS", 30000),

		Pipeline: defaultPipeline(),
	}
	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := loadPipelineFile(path, &cfg.Pipeline); err != nil {
			panic(fmt.Errorf("PIPELINE_CONFIG %s: %w", path, err))
		}
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

func loadPipelineFile(path string, pc *PipelineConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, pc)
}
