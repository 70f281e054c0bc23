// Package config loads server and detector settings from an optional file and
// the environment. Environment variables win over the file.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageHTTP  = "http"
	StorageAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	// Detector
	MaxSamples         int
	MinTrainingSamples int
	CacheSize          int
	EventPhotoRule     bool
	AuxiliaryFeatures  bool
	ParallelExtraction bool
	MaxWorkers         int

	// Model persistence
	ModelPath  string
	SnapshotDB string

	// Image sources
	StorageBackend      string
	AzureStorageAccount string
	AzureStorageKey     string
	LocalImageRoot      string
	AllowedHosts        []string

	// Watermark OCR
	WatermarkScan     bool
	WatermarkLanguage string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		ImageFetchTimeout:  15 * time.Second,
		AnalysisTimeout:    20 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		LogLevel:           "info",

		MaxSamples:         1000,
		MinTrainingSamples: 5,
		CacheSize:          256,
		EventPhotoRule:     true,
		AuxiliaryFeatures:  true,
		ParallelExtraction: true,

		StorageBackend:    StorageHTTP,
		WatermarkLanguage: "eng",
	}
}

// LoadFromEnv applies CONFIG_FILE, if set, then environment overrides, and
// validates the result.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", cfg.ImageFetchTimeout)
	cfg.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", cfg.AnalysisTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.MaxSamples = int(parseIntOrDefault("MAX_SAMPLES", int64(cfg.MaxSamples)))
	cfg.MinTrainingSamples = int(parseIntOrDefault("MIN_TRAINING_SAMPLES", int64(cfg.MinTrainingSamples)))
	cfg.CacheSize = int(parseIntOrDefault("CACHE_SIZE", int64(cfg.CacheSize)))
	cfg.EventPhotoRule = parseBoolOrDefault("EVENT_PHOTO_RULE", cfg.EventPhotoRule)
	cfg.AuxiliaryFeatures = parseBoolOrDefault("AUXILIARY_FEATURES", cfg.AuxiliaryFeatures)
	cfg.ParallelExtraction = parseBoolOrDefault("PARALLEL_EXTRACTION", cfg.ParallelExtraction)
	cfg.MaxWorkers = int(parseIntOrDefault("MAX_WORKERS", int64(cfg.MaxWorkers)))

	cfg.ModelPath = getEnvOrDefault("MODEL_PATH", cfg.ModelPath)
	cfg.SnapshotDB = getEnvOrDefault("SNAPSHOT_DB", cfg.SnapshotDB)

	cfg.StorageBackend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.AzureStorageAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", cfg.AzureStorageAccount)
	cfg.AzureStorageKey = getEnvOrDefault("AZURE_STORAGE_KEY", cfg.AzureStorageKey)
	cfg.LocalImageRoot = getEnvOrDefault("LOCAL_IMAGE_ROOT", cfg.LocalImageRoot)
	if hosts := os.Getenv("ALLOWED_HOSTS"); hosts != "" {
		cfg.AllowedHosts = splitList(hosts)
	}

	cfg.WatermarkScan = parseBoolOrDefault("WATERMARK_SCAN", cfg.WatermarkScan)
	cfg.WatermarkLanguage = getEnvOrDefault("WATERMARK_LANGUAGE", cfg.WatermarkLanguage)
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.MaxSamples <= 0 {
		return fmt.Errorf("MAX_SAMPLES must be > 0 (got %d)", c.MaxSamples)
	}
	if c.MinTrainingSamples < 1 {
		return fmt.Errorf("MIN_TRAINING_SAMPLES must be >= 1 (got %d)", c.MinTrainingSamples)
	}
	if c.MinTrainingSamples > c.MaxSamples {
		return fmt.Errorf("MIN_TRAINING_SAMPLES (%d) exceeds MAX_SAMPLES (%d)", c.MinTrainingSamples, c.MaxSamples)
	}
	if c.CacheSize < 0 || c.MaxWorkers < 0 {
		return fmt.Errorf("CACHE_SIZE and MAX_WORKERS must be >= 0")
	}
	switch c.StorageBackend {
	case StorageHTTP:
	case StorageAzure:
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" {
			return fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %q", c.StorageBackend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
