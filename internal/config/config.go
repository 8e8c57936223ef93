/**
 * Configuration for the text extraction worker
 *
 * Loads configuration from environment variables matching .env.textextract
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dv00d00/expo-text-extractor/unified"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (asynq broker and job tracking)
	RedisURL string

	// PostgreSQL configuration (result store); empty disables persistence
	DatabaseURL string

	// Queue configuration
	QueueName         string
	WorkerConcurrency int
	MaxRetry          int
	ProcessingTimeout int // milliseconds

	// Observability
	MetricsAddr string
	LogLevel    string
	LogFormat   string

	// Default recognition options applied to every job
	OCRLanguages     []string
	RecognitionLevel string
	MinConfidence    float64
	MaxImageBytes    int64

	// Node environment
	NodeEnv string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		QueueName:         getEnvOrDefault("QUEUE_NAME", "textextract"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		MaxRetry:          getEnvAsIntOrDefault("MAX_RETRY", 3),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 60000), // 1 minute
		MetricsAddr:       getEnvOrDefault("METRICS_ADDR", ":9102"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "json"),
		OCRLanguages:      getEnvAsListOrDefault("OCR_LANGUAGES", nil),
		RecognitionLevel:  getEnvOrDefault("OCR_RECOGNITION_LEVEL", string(unified.RecognitionLevelAccurate)),
		MinConfidence:     getEnvAsFloatOrDefault("OCR_MIN_CONFIDENCE", 0),
		MaxImageBytes:     getEnvAsInt64OrDefault("MAX_IMAGE_BYTES", 52428800), // 50MB
		NodeEnv:           getEnvOrDefault("NODE_ENV", "development"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.QueueName == "" {
		return fmt.Errorf("QUEUE_NAME is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxRetry < 0 || c.MaxRetry > 25 {
		return fmt.Errorf("MAX_RETRY must be between 0 and 25, got %d", c.MaxRetry)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	if c.MaxImageBytes < 1024 || c.MaxImageBytes > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_IMAGE_BYTES must be between 1KB and 1GB, got %d", c.MaxImageBytes)
	}

	if err := c.OCROptions().Validate(); err != nil {
		return fmt.Errorf("OCR defaults are invalid: %w", err)
	}

	return nil
}

// Timeout returns ProcessingTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ProcessingTimeout) * time.Millisecond
}

// OCROptions returns the recognition defaults applied to every job.
func (c *Config) OCROptions() unified.OCROptions {
	return unified.OCROptions{
		Languages:        c.OCRLanguages,
		RecognitionLevel: unified.RecognitionLevel(c.RecognitionLevel),
		MinConfidence:    unified.Float(c.MinConfidence),
	}
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsListOrDefault splits a comma separated variable, dropping blanks
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
