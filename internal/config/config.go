package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Node persistence
	StorePath string `yaml:"store_path"`

	// Downstream index sink (optional)
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`

	// Worker pool
	WorkerCount       int `yaml:"worker_count"`
	MaxQueueSize      int `yaml:"max_queue_size"`
	MaxConcurrentPush int `yaml:"max_concurrent_push"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Splitting defaults
	DefaultMode         string   `yaml:"default_mode"`
	DefaultHeadingTypes []string `yaml:"default_heading_types"`
	DefaultSize         int      `yaml:"default_size"`
	DefaultIDStrategy   string   `yaml:"default_id_strategy"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                "8090",
		StorePath:           "docsplit.db",
		WorkerCount:         4,
		MaxQueueSize:        100,
		MaxConcurrentPush:   10,
		MaxUploadBytes:      52428800, // 50MB
		DefaultMode:         "heading",
		DefaultHeadingTypes: []string{"Heading 3", "Heading 2"},
		DefaultSize:         768,
		DefaultIDStrategy:   "hash",
		JobTTL:              1 * time.Hour,
		LogLevel:            "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DOCSPLIT_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DOCSPLIT_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCSPLIT_API_KEY", cfg.APIKey)
	cfg.StorePath = envOr("STORE_PATH", cfg.StorePath)
	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentPush = envInt("MAX_CONCURRENT_PUSH", cfg.MaxConcurrentPush)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.DefaultMode = envOr("DEFAULT_MODE", cfg.DefaultMode)
	cfg.DefaultHeadingTypes = envList("DEFAULT_HEADING_TYPES", cfg.DefaultHeadingTypes)
	cfg.DefaultSize = envInt("DEFAULT_SIZE", cfg.DefaultSize)
	cfg.DefaultIDStrategy = envOr("DEFAULT_ID_STRATEGY", cfg.DefaultIDStrategy)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	def := Defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.MaxConcurrentPush <= 0 {
		cfg.MaxConcurrentPush = def.MaxConcurrentPush
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCSPLIT_API_KEY is required")
	}
	if c.DefaultSize <= 0 {
		return fmt.Errorf("default size must be positive, got %d", c.DefaultSize)
	}
	if len(c.DefaultHeadingTypes) == 0 {
		return fmt.Errorf("at least one default heading type is required")
	}
	switch c.DefaultMode {
	case "heading", "size":
	default:
		return fmt.Errorf("unknown default mode: %q", c.DefaultMode)
	}
	switch c.DefaultIDStrategy {
	case "hash", "uuid", "sequence":
	default:
		return fmt.Errorf("unknown default id strategy: %q", c.DefaultIDStrategy)
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma-separated list, dropping empty entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if list := SplitList(v); len(list) > 0 {
		return list
	}
	return fallback
}

// SplitList splits a comma-separated value and trims each entry.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
