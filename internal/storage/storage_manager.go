/**
 * Storage Manager for the text extraction worker
 *
 * Coordinates job state across Redis (live status, results, events) and
 * PostgreSQL (durable record). Either side may be absent.
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dv00d00/expo-text-extractor/internal/logging"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// StorageManager coordinates PostgreSQL and Redis operations
type StorageManager struct {
	postgres *PostgresClient
	tracker  *Tracker
	logger   *logging.Logger
}

// JobStart describes a job that has been picked up.
type JobStart struct {
	JobID    string
	Source   string
	Attempt  int
	Metadata map[string]interface{}
}

// JobOutcome describes a finished extraction.
type JobOutcome struct {
	JobID          string
	Source         string
	Attempt        int
	Result         *unified.OCRResult
	ProcessingTime time.Duration
}

// NewStorageManager creates a storage manager. postgres may be nil when
// persistence is disabled; tracker may be nil in tests.
func NewStorageManager(postgres *PostgresClient, tracker *Tracker, logger *logging.Logger) *StorageManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &StorageManager{postgres: postgres, tracker: tracker, logger: logger}
}

// Started records that a job is being processed. Redis failures are logged;
// PostgreSQL failures are returned.
func (sm *StorageManager) Started(ctx context.Context, job JobStart) error {
	if sm.tracker != nil {
		if err := sm.tracker.MarkProcessing(ctx, job.JobID); err != nil {
			sm.logger.Warn("Failed to track job start", "jobId", job.JobID, "error", err)
		}
	}
	if sm.postgres == nil {
		return nil
	}
	return sm.postgres.UpdateJobStatus(ctx, &JobUpdate{
		JobID:    job.JobID,
		Source:   job.Source,
		Status:   StatusProcessing,
		Attempts: job.Attempt,
		Metadata: job.Metadata,
	})
}

// Completed stores the result of a successful extraction.
func (sm *StorageManager) Completed(ctx context.Context, outcome JobOutcome) error {
	update, err := completedUpdate(outcome)
	if err != nil {
		return err
	}
	if sm.tracker != nil {
		if err := sm.tracker.MarkCompleted(ctx, outcome.JobID, update.Result); err != nil {
			sm.logger.Warn("Failed to track job completion", "jobId", outcome.JobID, "error", err)
		}
	}
	if sm.postgres == nil {
		return nil
	}
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// Failed records a rejected extraction.
func (sm *StorageManager) Failed(ctx context.Context, jobID, source string, attempt int, oe *ocrerror.OCRError) error {
	if oe == nil {
		oe = ocrerror.New(ocrerror.ErrorUnknown, "", "Job failed without an error", nil)
	}
	update := failedUpdate(jobID, source, attempt, oe)
	if sm.tracker != nil {
		if err := sm.tracker.MarkFailed(ctx, jobID, oe.ToMap()); err != nil {
			sm.logger.Warn("Failed to track job failure", "jobId", jobID, "error", err)
		}
	}
	if sm.postgres == nil {
		return nil
	}
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// Ping checks both stores.
func (sm *StorageManager) Ping(ctx context.Context) error {
	if sm.tracker != nil {
		if err := sm.tracker.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if sm.postgres != nil {
		if err := sm.postgres.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

// Close closes both stores.
func (sm *StorageManager) Close() error {
	var firstErr error
	if sm.tracker != nil {
		firstErr = sm.tracker.Close()
	}
	if sm.postgres != nil {
		if err := sm.postgres.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func completedUpdate(outcome JobOutcome) (*JobUpdate, error) {
	if outcome.Result == nil {
		return nil, fmt.Errorf("result is required")
	}
	res := outcome.Result

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var platform string
	if res.Platform != nil {
		platform = string(res.Platform.Platform())
	}
	var languages []string
	for _, l := range res.Languages {
		languages = append(languages, l.Code)
	}

	return &JobUpdate{
		JobID:            outcome.JobID,
		Source:           outcome.Source,
		Status:           StatusCompleted,
		Platform:         platform,
		Confidence:       res.Confidence,
		ProcessingTimeMs: outcome.ProcessingTime.Milliseconds(),
		BlockCount:       len(res.Blocks),
		Languages:        languages,
		Attempts:         outcome.Attempt,
		Result:           data,
	}, nil
}

func failedUpdate(jobID, source string, attempt int, oe *ocrerror.OCRError) *JobUpdate {
	update := &JobUpdate{
		JobID:    jobID,
		Source:   source,
		Status:   StatusFailed,
		Attempts: attempt,
	}
	if oe != nil {
		update.ErrorCode = string(oe.Code)
		update.ErrorMessage = oe.Message
		if platform, ok := oe.Details["platform"].(string); ok {
			update.Platform = platform
		}
		update.Metadata = map[string]interface{}{"error": oe.ToMap()}
	}
	return update
}
