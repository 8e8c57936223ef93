/**
 * Queue Consumer for the text extraction worker
 *
 * Consumes extract-text tasks with asynq and runs one recognition per task.
 * Failures whose error code is not worth retrying skip asynq's retry.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dv00d00/expo-text-extractor/internal/logging"
	"github.com/dv00d00/expo-text-extractor/internal/processor"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	server    *asynq.Server
	inspector *asynq.Inspector
	mux       *asynq.ServeMux
	handler   *Handler
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.JobProcessor
	ProcessingTimeout time.Duration
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}

	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	// Parse Redis connection options
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := cfg.Logger
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10, // Priority 10 for main queue
				"default":     1,  // Priority 1 for fallback
			},
			RetryDelayFunc: retryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				logger.Error("Task processing error",
					"type", task.Type(),
					"taskId", taskID,
					"code", ocrerror.CodeOf(err),
					"error", err)
			}),
			Logger: &asynqLogger{logger: logger.Named("asynq")},
		},
	)

	handler := NewHandler(cfg.Processor, cfg.ProcessingTimeout, logger)

	mux := asynq.NewServeMux()
	mux.Handle(TypeExtractText, handler)

	return &Consumer{
		server:    server,
		inspector: asynq.NewInspector(redisOpt),
		mux:       mux,
		handler:   handler,
		config:    cfg,
		logger:    logger,
	}, nil
}

// retryDelay is exponential backoff: 5s, 10s, 20s, capped at 60s.
func retryDelay(n int, err error, task *asynq.Task) time.Duration {
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > 60*time.Second || delay <= 0 {
		delay = 60 * time.Second
	}
	return delay
}

// Start starts the queue consumer. It does not block.
func (c *Consumer) Start() error {
	c.logger.Info("Starting queue consumer",
		"concurrency", c.config.Concurrency,
		"queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start queue consumer: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop() error {
	c.logger.Info("Stopping queue consumer")

	c.server.Shutdown()

	if err := c.inspector.Close(); err != nil {
		return fmt.Errorf("failed to close inspector: %w", err)
	}

	c.logger.Info("Queue consumer stopped")
	return nil
}

// GetStatistics returns queue statistics
func (c *Consumer) GetStatistics() (map[string]interface{}, error) {
	info, err := c.inspector.GetQueueInfo(c.config.QueueName)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue info: %w", err)
	}
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"pending":     info.Pending,
		"active":      info.Active,
		"retry":       info.Retry,
		"archived":    info.Archived,
		"completed":   info.Completed,
		"processed":   info.Processed,
		"failed":      info.Failed,
	}, nil
}

// Handler runs extract-text tasks. It implements asynq.Handler.
type Handler struct {
	processor processor.JobProcessor
	timeout   time.Duration
	logger    *logging.Logger
}

// NewHandler creates a task handler. A zero timeout defaults to one minute.
func NewHandler(p processor.JobProcessor, timeout time.Duration, logger *logging.Logger) *Handler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{processor: p, timeout: timeout, logger: logger}
}

// ProcessTask handles one extract-text task.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: invalid job: %v", asynq.SkipRetry, err)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	h.logger.Info("Processing job",
		"jobId", job.JobID,
		"attempt", retried+1,
		"maxRetry", maxRetry,
		"timeout", h.timeout)

	processCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err := h.processor.Process(processCtx, &processor.Request{
		JobID:        job.JobID,
		ImageURI:     job.ImageURI,
		ImageData:    job.ImageData,
		Options:      job.Options,
		Attempt:      retried + 1,
		FinalAttempt: retried >= maxRetry,
		Metadata:     job.Metadata,
	})
	return handlerError(err)
}

// handlerError tells asynq not to retry errors that would fail again.
func handlerError(err error) error {
	if err == nil {
		return nil
	}
	if !ocrerror.Retryable(ocrerror.CodeOf(err)) {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}

// asynqLogger adapts logging.Logger to asynq.Logger.
type asynqLogger struct {
	logger *logging.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	_ = l.logger.Sync()
	os.Exit(1)
}
