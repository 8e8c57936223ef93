/**
 * Task payloads for the text extraction queue
 *
 * Compatible with producers that serialize image bytes either as a base64
 * string or as a Node.js Buffer object.
 */

package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dv00d00/expo-text-extractor/unified"
)

// TypeExtractText is the asynq task type handled by the worker.
const TypeExtractText = "extract-text"

// JobData represents the payload of an extract-text task
type JobData struct {
	JobID     string                 `json:"jobId"`
	ImageURI  string                 `json:"imageUri,omitempty"`
	ImageData []byte                 `json:"imageData,omitempty"` // set by custom UnmarshalJSON
	Options   unified.OCROptions     `json:"options,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// UnmarshalJSON handles imageData as a base64 string (optionally a data:
// URI) or as a Node.js Buffer object.
func (j *JobData) UnmarshalJSON(data []byte) error {
	// Create alias type to avoid recursion
	type Alias JobData
	aux := &struct {
		ImageData interface{} `json:"imageData,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(j),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal JobData: %w", err)
	}

	if aux.ImageData == nil {
		return nil
	}

	switch v := aux.ImageData.(type) {
	case string:
		if i := strings.Index(v, ";base64,"); strings.HasPrefix(v, "data:") && i >= 0 {
			v = v[i+len(";base64,"):]
		}
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("failed to decode base64 imageData: %w", err)
		}
		j.ImageData = decoded

	case map[string]interface{}:
		bufferType, ok := v["type"].(string)
		if !ok || bufferType != "Buffer" {
			return fmt.Errorf("invalid Buffer object format (missing or incorrect 'type' field)")
		}
		dataArray, ok := v["data"].([]interface{})
		if !ok {
			return fmt.Errorf("Buffer object missing 'data' array")
		}
		j.ImageData = make([]byte, len(dataArray))
		for i, val := range dataArray {
			byteVal, ok := val.(float64)
			if !ok || byteVal < 0 || byteVal > 255 {
				return fmt.Errorf("invalid byte value in Buffer data array at index %d", i)
			}
			j.ImageData[i] = byte(byteVal)
		}

	default:
		return fmt.Errorf("imageData must be either base64 string or Buffer object, got %T", v)
	}

	return nil
}

// Validate checks that the job names exactly one image source.
func (j *JobData) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("jobId is required")
	}
	if _, err := uuid.Parse(j.JobID); err != nil {
		return fmt.Errorf("jobId must be a UUID: %w", err)
	}
	hasURI := j.ImageURI != ""
	hasData := len(j.ImageData) > 0
	if hasURI == hasData {
		return fmt.Errorf("exactly one of imageUri or imageData is required")
	}
	return nil
}

// NewExtractTextTask builds a task for job, assigning a job id when unset.
// The job id doubles as the asynq task id so duplicates are rejected.
func NewExtractTextTask(job *JobData, queueName string, maxRetry int, timeout time.Duration) (*asynq.Task, error) {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(job.JobID),
		asynq.MaxRetry(maxRetry),
	}
	if queueName != "" {
		opts = append(opts, asynq.Queue(queueName))
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(TypeExtractText, payload, opts...), nil
}

// Producer submits extract-text tasks.
type Producer struct {
	client    *asynq.Client
	queueName string
	maxRetry  int
	timeout   time.Duration
}

// NewProducer connects a producer to redisURL.
func NewProducer(redisURL, queueName string, maxRetry int, timeout time.Duration) (*Producer, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Producer{
		client:    asynq.NewClient(redisOpt),
		queueName: queueName,
		maxRetry:  maxRetry,
		timeout:   timeout,
	}, nil
}

// Enqueue submits job and returns its job id.
func (p *Producer) Enqueue(ctx context.Context, job *JobData) (string, error) {
	task, err := NewExtractTextTask(job, p.queueName, p.maxRetry, p.timeout)
	if err != nil {
		return "", err
	}
	info, err := p.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job %s: %w", job.JobID, err)
	}
	return info.ID, nil
}

// Close closes the underlying client.
func (p *Producer) Close() error {
	return p.client.Close()
}
