/**
 * Redis job tracker for the text extraction worker
 *
 * Keeps processing/completed/failed sets, result and error hashes, and
 * publishes a job event on every transition for streaming consumers.
 */

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event is published on the events channel for each status change.
type Event struct {
	Event     string `json:"event"`
	JobID     string `json:"jobId"`
	Timestamp string `json:"timestamp"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Tracker records job status in Redis under a key prefix.
type Tracker struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewTracker connects to redisURL and tracks jobs under prefix.
func NewTracker(redisURL, prefix string) (*Tracker, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t := NewTrackerFromClient(client, prefix)
	t.owned = true
	return t, nil
}

// NewTrackerFromClient wraps an existing client. Close leaves it open.
func NewTrackerFromClient(client redis.UniversalClient, prefix string) *Tracker {
	if prefix == "" {
		prefix = "textextract"
	}
	return &Tracker{client: client, prefix: prefix}
}

func (t *Tracker) key(suffix string) string {
	return fmt.Sprintf("%s:%s", t.prefix, suffix)
}

// EventsChannel is the pub/sub channel events are published on.
func (t *Tracker) EventsChannel() string {
	return t.key("events")
}

func newEvent(status, jobID, code string, now time.Time) Event {
	return Event{
		Event:     fmt.Sprintf("job:%s", status),
		JobID:     jobID,
		Timestamp: now.UTC().Format(time.RFC3339),
		ErrorCode: code,
	}
}

// MarkProcessing moves jobID into the processing set.
func (t *Tracker) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, t.key(StatusFailed), jobID)
		pipe.SAdd(ctx, t.key(StatusProcessing), jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s processing: %w", jobID, err)
	}
	return t.publish(ctx, newEvent(StatusProcessing, jobID, "", time.Now()))
}

// MarkCompleted stores result and moves jobID into the completed set.
func (t *Tracker) MarkCompleted(ctx context.Context, jobID string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, t.key(StatusProcessing), jobID)
		pipe.SAdd(ctx, t.key(StatusCompleted), jobID)
		pipe.HSet(ctx, t.key("results"), jobID, data)
		pipe.HDel(ctx, t.key("errors"), jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", jobID, err)
	}
	return t.publish(ctx, newEvent(StatusCompleted, jobID, "", time.Now()))
}

// MarkFailed stores errorMap and moves jobID into the failed set.
func (t *Tracker) MarkFailed(ctx context.Context, jobID string, errorMap map[string]interface{}) error {
	data, err := json.Marshal(errorMap)
	if err != nil {
		return fmt.Errorf("failed to marshal error: %w", err)
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, t.key(StatusProcessing), jobID)
		pipe.SAdd(ctx, t.key(StatusFailed), jobID)
		pipe.HSet(ctx, t.key("errors"), jobID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	code, _ := errorMap["error_code"].(string)
	return t.publish(ctx, newEvent(StatusFailed, jobID, code, time.Now()))
}

// Result returns the stored result JSON of a completed job.
func (t *Tracker) Result(ctx context.Context, jobID string) (json.RawMessage, error) {
	data, err := t.client.HGet(ctx, t.key("results"), jobID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("no result for job %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return json.RawMessage(data), nil
}

// Status reports which set jobID is in, or "" when untracked.
func (t *Tracker) Status(ctx context.Context, jobID string) (string, error) {
	for _, status := range []string{StatusCompleted, StatusFailed, StatusProcessing} {
		ok, err := t.client.SIsMember(ctx, t.key(status), jobID).Result()
		if err != nil {
			return "", fmt.Errorf("failed to get job status: %w", err)
		}
		if ok {
			return status, nil
		}
	}
	return "", nil
}

// GetStats returns the size of each status set.
func (t *Tracker) GetStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, status := range []string{StatusProcessing, StatusCompleted, StatusFailed} {
		n, err := t.client.SCard(ctx, t.key(status)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get %s count: %w", status, err)
		}
		stats[status] = n
	}
	return stats, nil
}

// Ping checks Redis connectivity.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the client if the tracker opened it.
func (t *Tracker) Close() error {
	if t.owned {
		return t.client.Close()
	}
	return nil
}

func (t *Tracker) publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := t.client.Publish(ctx, t.EventsChannel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
