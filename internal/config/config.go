// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings
// like "90s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Gemini extraction
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Segmentation
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Extraction
	MaxAttempts       int `yaml:"max_attempts"`
	SubChunkSize      int `yaml:"sub_chunk_size"`
	SubChunkOverlap   int `yaml:"sub_chunk_overlap"`
	MaxRecursionDepth int `yaml:"max_recursion_depth"`

	// Job state
	JobTTL Duration `yaml:"job_ttl"`

	// LLM stats window
	StatsWindow Duration `yaml:"stats_window"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Load reads the YAML file named by COMPLIGEST_CONFIG (if set), then
// applies environment overrides and defaults.
func Load() (Config, error) {
	cfg := Config{PDFFallbackPdftotext: true}

	if path := os.Getenv("COMPLIGEST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("COMPLIGEST_API_KEY", cfg.APIKey)
	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.MaxAttempts = envInt("MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.SubChunkSize = envInt("SUB_CHUNK_SIZE", cfg.SubChunkSize)
	cfg.SubChunkOverlap = envInt("SUB_CHUNK_OVERLAP", cfg.SubChunkOverlap)
	cfg.MaxRecursionDepth = envInt("MAX_RECURSION_DEPTH", cfg.MaxRecursionDepth)
	cfg.JobTTL = Duration(envDuration("JOB_TTL", time.Duration(cfg.JobTTL)))
	cfg.StatsWindow = Duration(envDuration("STATS_WINDOW", time.Duration(cfg.StatsWindow)))
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8090"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash-lite"
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800 // 50MB
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 30000
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 200
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.SubChunkSize <= 0 {
		c.SubChunkSize = 3000
	}
	if c.SubChunkOverlap <= 0 {
		c.SubChunkOverlap = 200
	}
	if c.MaxRecursionDepth <= 0 {
		c.MaxRecursionDepth = 3
	}
	if c.JobTTL <= 0 {
		c.JobTTL = Duration(1 * time.Hour)
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = Duration(1 * time.Hour)
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("COMPLIGEST_API_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	return nil
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
