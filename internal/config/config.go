package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/photo-validator/internal/pipeline"
)

// Config holds everything the process needs, resolved once at startup.
type Config struct {
	ListenAddr string

	// Pipeline preset, resolved from PHOTO_PRESET.
	PresetName string
	Pipeline   pipeline.Config

	// Path to the pigo facefinder cascade. Empty disables face detection.
	CascadePath string

	// Local persistence of processed photos.
	PhotosDir string

	// Remote object storage (Supabase-style). Empty URL or key disables it.
	StorageURL     string
	StorageKey     string
	StorageBucket  string
	StorageTimeout time.Duration

	DatabaseDSN string
	RedisAddr   string

	// Guards /metrics when non-empty.
	JWTSecret   string
	JWTAudience string

	MaxUploadBytes int64
}

// Load reads .env (when present) and the environment, and resolves the
// selected pipeline preset. Unknown preset names are an error so a typo in
// deployment config cannot silently change crop behavior.
func Load() (*Config, error) {
	_ = godotenv.Load()

	presetName := getEnv("PHOTO_PRESET", "face")
	preset, err := pipeline.PresetByName(presetName)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PHOTO_MAX_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PHOTO_MAX_BYTES %q", v)
		}
		preset.MaxBytes = n
	}

	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		PresetName:     presetName,
		Pipeline:       preset,
		CascadePath:    os.Getenv("FACEFINDER_PATH"),
		PhotosDir:      getEnv("PHOTOS_DIR", "photos"),
		StorageURL:     os.Getenv("STORAGE_URL"),
		StorageKey:     os.Getenv("STORAGE_SERVICE_KEY"),
		StorageBucket:  getEnv("STORAGE_BUCKET", "student-photos"),
		StorageTimeout: 30 * time.Second,
		DatabaseDSN:    getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=photos port=5432 sslmode=disable"),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTAudience:    os.Getenv("JWT_AUDIENCE"),
		MaxUploadBytes: 10 << 20,
	}

	if v := os.Getenv("STORAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid STORAGE_TIMEOUT %q", v)
		}
		cfg.StorageTimeout = d
	}

	return cfg, nil
}

// StorageConfigured reports whether remote uploads can be attempted.
func (c *Config) StorageConfigured() bool {
	return c.StorageURL != "" && c.StorageKey != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
