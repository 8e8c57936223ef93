/**
 * Text Extraction Worker - Main Entry Point
 *
 * Consumes extract-text tasks from Redis and runs one single-shot
 * recognition per task with the backend compiled into this binary.
 *
 * Architecture:
 * - Asynq consumer for the Redis-backed job queue
 * - Redis job tracking (status sets, results, pub/sub events)
 * - PostgreSQL persistence of unified OCR results (optional)
 * - Prometheus metrics and health endpoints over HTTP
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/internal/config"
	"github.com/dv00d00/expo-text-extractor/internal/logging"
	"github.com/dv00d00/expo-text-extractor/internal/metrics"
	"github.com/dv00d00/expo-text-extractor/internal/processor"
	"github.com/dv00d00/expo-text-extractor/internal/queue"
	"github.com/dv00d00/expo-text-extractor/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(".env.textextract"); err != nil {
		log.Printf("Warning: .env.textextract not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New("worker", logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Text extraction worker starting",
		"queue", cfg.QueueName,
		"workers", cfg.WorkerConcurrency,
		"persistence", cfg.DatabaseURL != "",
		"timeout", cfg.Timeout())

	recorder := metrics.NewRecorder()

	extractor := textextractor.New(
		textextractor.WithLogger(logger.Named("ocr").Zap()),
		textextractor.WithObserver(recorder),
	)
	if !extractor.IsSupported() {
		logger.Warn("No native recognizer in this build; every job will fail with MODEL_NOT_AVAILABLE")
	}

	// Redis job tracker
	tracker, err := storage.NewTracker(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return fmt.Errorf("failed to initialize job tracker: %w", err)
	}

	// PostgreSQL result store (optional)
	var postgres *storage.PostgresClient
	if cfg.DatabaseURL != "" {
		postgres, err = storage.NewPostgresClient(cfg.DatabaseURL)
		if err != nil {
			tracker.Close()
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = postgres.EnsureSchema(ctx)
		cancel()
		if err != nil {
			tracker.Close()
			postgres.Close()
			return err
		}
	}

	storageManager := storage.NewStorageManager(postgres, tracker, logger.Named("storage"))
	defer storageManager.Close()

	proc, err := processor.NewProcessor(&processor.Config{
		Recognizer:    extractor,
		Store:         storageManager,
		Recorder:      recorder,
		Defaults:      cfg.OCROptions(),
		MaxImageBytes: cfg.MaxImageBytes,
		Logger:        logger.Named("processor"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize processor: %w", err)
	}

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		Processor:         proc,
		ProcessingTimeout: cfg.Timeout(),
		Logger:            logger.Named("queue"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize queue consumer: %w", err)
	}

	if err := consumer.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           newHTTPHandler(recorder, storageManager, consumer, extractor),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	logger.Info("Worker is ready",
		"platform", extractor.Platform(),
		"metricsAddr", cfg.MetricsAddr)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Error stopping HTTP server", "error", err)
	}

	if err := consumer.Stop(); err != nil {
		logger.Warn("Error stopping queue consumer", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// pinger reports dependency health.
type pinger interface {
	Ping(ctx context.Context) error
}

// statser reports queue statistics.
type statser interface {
	GetStatistics() (map[string]interface{}, error)
}

type supporter interface {
	IsSupported() bool
}

func newHTTPHandler(recorder *metrics.Recorder, deps pinger, queueStats statser, ocr supporter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]interface{}{
			"status":    "ok",
			"supported": ocr.IsSupported(),
		}
		code := http.StatusOK
		if err := deps.Ping(ctx); err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := queueStats.GetStatistics()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
