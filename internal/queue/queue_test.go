package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dv00d00/expo-text-extractor/internal/processor"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

const testJobID = "5f0c6d0e-8a4b-4c43-9a53-2f6b8f1d7c11"

func TestJobDataUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []byte
		wantErr bool
	}{
		{"base64", `{"jobId":"j","imageData":"aGk="}`, []byte("hi"), false},
		{"data uri", `{"jobId":"j","imageData":"data:image/png;base64,aGk="}`, []byte("hi"), false},
		{"node buffer", `{"jobId":"j","imageData":{"type":"Buffer","data":[104,105]}}`, []byte("hi"), false},
		{"absent", `{"jobId":"j","imageUri":"file:///a.png"}`, nil, false},
		{"bad base64", `{"jobId":"j","imageData":"!!"}`, nil, true},
		{"wrong buffer type", `{"jobId":"j","imageData":{"type":"Blob","data":[1]}}`, nil, true},
		{"byte out of range", `{"jobId":"j","imageData":{"type":"Buffer","data":[300]}}`, nil, true},
		{"number", `{"jobId":"j","imageData":42}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var job JobData
			err := json.Unmarshal([]byte(tt.payload), &job)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "j", job.JobID)
			assert.Equal(t, tt.want, job.ImageData)
		})
	}
}

func TestJobDataRoundTrip(t *testing.T) {
	in := JobData{
		JobID:     testJobID,
		ImageData: []byte{0x89, 'P', 'N', 'G'},
		Options:   unified.OCROptions{Languages: []string{"de"}, MinConfidence: unified.Float(0.4)},
		Metadata:  map[string]interface{}{"user": "u1"},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out JobData
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ImageData, out.ImageData)
	assert.Equal(t, []string{"de"}, out.Options.Languages)
	assert.Equal(t, 0.4, out.Options.Threshold())
	assert.Equal(t, "u1", out.Metadata["user"])
}

func TestJobDataValidate(t *testing.T) {
	assert.Error(t, (&JobData{}).Validate())
	assert.Error(t, (&JobData{JobID: "not-a-uuid", ImageURI: "file:///a"}).Validate())
	assert.Error(t, (&JobData{JobID: testJobID}).Validate())
	assert.Error(t, (&JobData{JobID: testJobID, ImageURI: "file:///a", ImageData: []byte{1}}).Validate())
	assert.NoError(t, (&JobData{JobID: testJobID, ImageURI: "file:///a"}).Validate())
}

func TestNewExtractTextTask(t *testing.T) {
	job := &JobData{ImageURI: "file:///tmp/a.png"}
	task, err := NewExtractTextTask(job, "textextract", 3, time.Minute)
	require.NoError(t, err)

	_, err = uuid.Parse(job.JobID)
	require.NoError(t, err, "a job id is assigned")
	assert.Equal(t, TypeExtractText, task.Type())

	var decoded JobData
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, job.JobID, decoded.JobID)
	assert.Equal(t, "file:///tmp/a.png", decoded.ImageURI)

	_, err = NewExtractTextTask(&JobData{JobID: testJobID}, "q", 1, 0)
	assert.Error(t, err)
}

type fakeProcessor struct {
	req *processor.Request
	err error
}

func (f *fakeProcessor) Process(ctx context.Context, req *processor.Request) (*processor.Result, error) {
	f.req = req
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Result{JobID: req.JobID}, nil
}

func taskFor(t *testing.T, job JobData) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return asynq.NewTask(TypeExtractText, payload)
}

func TestHandlerProcessTask(t *testing.T) {
	fp := &fakeProcessor{}
	h := NewHandler(fp, 0, nil)

	err := h.ProcessTask(context.Background(), taskFor(t, JobData{
		JobID:    testJobID,
		ImageURI: "file:///tmp/a.png",
		Options:  unified.OCROptions{RecognitionLevel: unified.RecognitionLevelFast},
	}))
	require.NoError(t, err)
	require.NotNil(t, fp.req)
	assert.Equal(t, testJobID, fp.req.JobID)
	assert.Equal(t, 1, fp.req.Attempt)
	assert.Equal(t, unified.RecognitionLevelFast, fp.req.Options.RecognitionLevel)
}

func TestHandlerErrors(t *testing.T) {
	valid := JobData{JobID: testJobID, ImageURI: "file:///tmp/a.png"}

	tests := []struct {
		name     string
		task     *asynq.Task
		err      error
		wantSkip bool
	}{
		{"malformed payload", asynq.NewTask(TypeExtractText, []byte("{")), nil, true},
		{"invalid job", taskFor(t, JobData{JobID: testJobID}), nil, true},
		{"permanent OCR error", taskFor(t, valid), ocrerror.NewInvalidImageError("c", "corrupt", nil), true},
		{"retryable OCR error", taskFor(t, valid), ocrerror.NewTimeoutError("c", time.Second, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeProcessor{err: tt.err}, time.Second, nil)
			err := h.ProcessTask(context.Background(), tt.task)
			require.Error(t, err)
			assert.Equal(t, tt.wantSkip, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandlerErrorPassesNil(t *testing.T) {
	assert.NoError(t, handlerError(nil))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, retryDelay(0, nil, nil))
	assert.Equal(t, 20*time.Second, retryDelay(2, nil, nil))
	assert.Equal(t, 60*time.Second, retryDelay(6, nil, nil))
}

func TestNewConsumerValidation(t *testing.T) {
	_, err := NewConsumer(&ConsumerConfig{QueueName: "q", Processor: &fakeProcessor{}})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", Processor: &fakeProcessor{}})
	assert.Error(t, err)
	_, err = NewConsumer(&ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"})
	assert.Error(t, err)
}
