package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	ClipsDir      string
	WorkDir       string
	DBPath        string
	HTTPPort      string
	WebhookURL    string
	Environment   string
	WorkerCount   int
	QueueSize     int
	EnableWatcher bool
	TuningPath    string
	Tuning        Tuning
}

// Load reads configuration from environment and optional .env file.
// If TUNING_PATH points at a YAML file, its values replace the default
// analysis thresholds.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ClipsDir:      getenv("CLIPS_DIR", "./clips"),
		WorkDir:       getenv("WORK_DIR", "./work"),
		DBPath:        getenv("DB_PATH", "./armsight.db"),
		HTTPPort:      getenv("PORT", "8080"),
		WebhookURL:    getenv("WEBHOOK_URL", ""),
		Environment:   getenv("ENVIRONMENT", "local"),
		WorkerCount:   clampInt(getenvInt("WORKER_COUNT", 4), 1, 64),
		QueueSize:     clampInt(getenvInt("QUEUE_SIZE", 128), 8, 1024),
		EnableWatcher: getenvBool("ENABLE_WATCHER", true),
		TuningPath:    getenv("TUNING_PATH", ""),
		Tuning:        DefaultTuning(),
	}

	if cfg.TuningPath != "" {
		t, err := LoadTuning(cfg.TuningPath)
		if err != nil {
			log.Printf("config: tuning file %s: %v (using defaults)", cfg.TuningPath, err)
		} else {
			cfg.Tuning = t
		}
	}

	log.Printf("config: clips_dir=%s work_dir=%s db=%s env=%s", cfg.ClipsDir, cfg.WorkDir, cfg.DBPath, cfg.Environment)
	return cfg
}

// LoadTuning reads a YAML tuning file, starting from defaults so a partial
// file only overrides the thresholds it names.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return DefaultTuning(), fmt.Errorf("parse tuning: %w", err)
	}
	return t, nil
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
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
