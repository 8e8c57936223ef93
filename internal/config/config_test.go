package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dv00d00/expo-text-extractor/unified"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"REDIS_URL", "DATABASE_URL", "QUEUE_NAME", "WORKER_CONCURRENCY", "MAX_RETRY",
		"PROCESSING_TIMEOUT", "OCR_LANGUAGES", "OCR_RECOGNITION_LEVEL", "OCR_MIN_CONFIDENCE",
		"MAX_IMAGE_BYTES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "textextract", cfg.QueueName)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, time.Minute, cfg.Timeout())
	assert.Nil(t, cfg.OCRLanguages)
	assert.Equal(t, unified.RecognitionLevelAccurate, cfg.OCROptions().RecognitionLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("QUEUE_NAME", "ocr")
	t.Setenv("WORKER_CONCURRENCY", "12")
	t.Setenv("OCR_LANGUAGES", "en-US, de ,,")
	t.Setenv("OCR_MIN_CONFIDENCE", "0.6")
	t.Setenv("PROCESSING_TIMEOUT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ocr", cfg.QueueName)
	assert.Equal(t, 12, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"en-US", "de"}, cfg.OCRLanguages)
	assert.Equal(t, 0.6, cfg.OCROptions().Threshold())
	// unparsable values fall back to the default
	assert.Equal(t, 60000, cfg.ProcessingTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RedisURL:          "redis://localhost:6379",
			QueueName:         "textextract",
			WorkerConcurrency: 4,
			MaxRetry:          3,
			ProcessingTimeout: 60000,
			MaxImageBytes:     1 << 20,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no redis", func(c *Config) { c.RedisURL = "" }, "REDIS_URL"},
		{"no queue", func(c *Config) { c.QueueName = "" }, "QUEUE_NAME"},
		{"concurrency", func(c *Config) { c.WorkerConcurrency = 0 }, "WORKER_CONCURRENCY"},
		{"retry", func(c *Config) { c.MaxRetry = 30 }, "MAX_RETRY"},
		{"timeout", func(c *Config) { c.ProcessingTimeout = 10 }, "PROCESSING_TIMEOUT"},
		{"image size", func(c *Config) { c.MaxImageBytes = 10 }, "MAX_IMAGE_BYTES"},
		{"confidence", func(c *Config) { c.MinConfidence = 1.5 }, "OCR defaults"},
		{"level", func(c *Config) { c.RecognitionLevel = "slow" }, "OCR defaults"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
