package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

func TestSanitizeConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.9632000000000001, 0.9632},
		{0.12346, 0.1235},
		{-0.2, 0},
		{1.7, 1},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeConfidence(tt.in), "in=%v", tt.in)
	}
}

func TestValidateUpdate(t *testing.T) {
	assert.Error(t, validateUpdate(nil))
	assert.Error(t, validateUpdate(&JobUpdate{Status: StatusCompleted}))
	assert.Error(t, validateUpdate(&JobUpdate{JobID: "j"}))
	assert.NoError(t, validateUpdate(&JobUpdate{JobID: "j", Status: StatusQueued}))
}

func sampleResult() *unified.OCRResult {
	return &unified.OCRResult{
		Blocks: []unified.RecognizedTextBlock{
			{Text: "Hello", Confidence: 0.9},
			{Text: "World", Confidence: 0.8},
		},
		Text:       "Hello\nWorld",
		Confidence: 0.85,
		ImageSize:  geometry.Size{Width: 100, Height: 50},
		Languages:  []unified.DetectedLanguage{{Code: "en", Confidence: 0.9}},
		Platform:   unified.AndroidResult{},
	}
}

func TestCompletedUpdate(t *testing.T) {
	update, err := completedUpdate(JobOutcome{
		JobID:          "job-1",
		Source:         "file:///tmp/a.png",
		Attempt:        2,
		Result:         sampleResult(),
		ProcessingTime: 1500 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, update.Status)
	assert.Equal(t, "android", update.Platform)
	assert.Equal(t, 0.85, update.Confidence)
	assert.Equal(t, int64(1500), update.ProcessingTimeMs)
	assert.Equal(t, 2, update.BlockCount)
	assert.Equal(t, []string{"en"}, update.Languages)
	assert.Equal(t, 2, update.Attempts)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(update.Result, &decoded))
	assert.Equal(t, "Hello\nWorld", decoded["text"])

	_, err = completedUpdate(JobOutcome{JobID: "job-1"})
	assert.Error(t, err)
}

func TestFailedUpdate(t *testing.T) {
	oe := ocrerror.NewModelNotAvailableError("call-1", "ios", nil)
	update := failedUpdate("job-2", "", 1, oe)

	assert.Equal(t, StatusFailed, update.Status)
	assert.Equal(t, string(ocrerror.ErrorModelNotAvailable), update.ErrorCode)
	assert.Equal(t, "ios", update.Platform)
	assert.Equal(t, oe.Message, update.ErrorMessage)
	require.Contains(t, update.Metadata, "error")
}

func TestNewEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	ev := newEvent(StatusFailed, "job-3", "TIMEOUT", now)

	assert.Equal(t, "job:failed", ev.Event)
	assert.Equal(t, "job-3", ev.JobID)
	assert.Equal(t, "2026-03-01T11:00:00Z", ev.Timestamp)
	assert.Equal(t, "TIMEOUT", ev.ErrorCode)
}

func TestTrackerKeys(t *testing.T) {
	tr := NewTrackerFromClient(nil, "")
	assert.Equal(t, "textextract:processing", tr.key(StatusProcessing))
	assert.Equal(t, "textextract:events", tr.EventsChannel())
	assert.NoError(t, tr.Close())
}

func TestStorageManagerWithoutStores(t *testing.T) {
	sm := NewStorageManager(nil, nil, nil)
	ctx := context.Background()

	assert.NoError(t, sm.Started(ctx, JobStart{JobID: "j"}))
	assert.NoError(t, sm.Completed(ctx, JobOutcome{JobID: "j", Result: sampleResult()}))
	assert.NoError(t, sm.Failed(ctx, "j", "", 1, nil))
	assert.NoError(t, sm.Ping(ctx))
	assert.NoError(t, sm.Close())
}

// Integration tests run only against a live server.

func TestTrackerIntegration(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	tr, err := NewTracker(redisURL, "textextract-test-"+uuid.NewString())
	require.NoError(t, err)
	defer tr.Close()

	jobID := uuid.NewString()
	require.NoError(t, tr.MarkProcessing(ctx, jobID))
	status, err := tr.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	require.NoError(t, tr.MarkCompleted(ctx, jobID, map[string]string{"text": "hi"}))
	raw, err := tr.Result(ctx, jobID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, string(raw))

	stats, err := tr.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats[StatusProcessing])
	assert.Equal(t, int64(1), stats[StatusCompleted])
}

func TestPostgresIntegration(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := NewPostgresClient(databaseURL)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.EnsureSchema(ctx))

	jobID := uuid.NewString()
	require.NoError(t, pg.UpdateJobStatus(ctx, &JobUpdate{JobID: jobID, Status: StatusProcessing, Attempts: 1}))

	update, err := completedUpdate(JobOutcome{JobID: jobID, Attempt: 1, Result: sampleResult(), ProcessingTime: time.Second})
	require.NoError(t, err)
	require.NoError(t, pg.UpdateJobStatus(ctx, update))

	rec, err := pg.GetJobByID(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, 0.85, rec.Confidence)
	assert.Equal(t, []string{"en"}, rec.Languages)
	assert.Equal(t, 2, rec.BlockCount)
}
