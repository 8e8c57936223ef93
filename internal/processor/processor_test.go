package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/internal/storage"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

type fakeRecognizer struct {
	mu   sync.Mutex
	src  textextractor.Source
	opts unified.OCROptions
	err  error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, src textextractor.Source, opts unified.OCROptions) (*unified.OCRResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &unified.OCRResult{
		Blocks:     []unified.RecognizedTextBlock{{Text: "Hello", Confidence: 0.9}},
		Text:       "Hello",
		Confidence: 0.9,
	}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	started   []storage.JobStart
	completed []storage.JobOutcome
	failed    []ocrerror.ErrorCode
}

func (s *fakeStore) Started(ctx context.Context, job storage.JobStart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, job)
	return nil
}

func (s *fakeStore) Completed(ctx context.Context, outcome storage.JobOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, outcome)
	return nil
}

func (s *fakeStore) Failed(ctx context.Context, jobID, source string, attempt int, oe *ocrerror.OCRError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, oe.Code)
	return nil
}

type fakeRecorder struct {
	active   int
	outcomes []string
}

func (r *fakeRecorder) JobStarted()               { r.active++ }
func (r *fakeRecorder) JobFinished(status string) { r.active--; r.outcomes = append(r.outcomes, status) }

func newTestProcessor(t *testing.T, rec *fakeRecognizer, mutate func(*Config)) (*Processor, *fakeStore, *fakeRecorder) {
	t.Helper()
	store := &fakeStore{}
	recorder := &fakeRecorder{}
	cfg := &Config{
		Recognizer:     rec,
		Store:          store,
		Recorder:       recorder,
		Defaults:       unified.OCROptions{Languages: []string{"en"}},
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
	if mutate != nil {
		mutate(cfg)
	}
	p, err := NewProcessor(cfg)
	require.NoError(t, err)
	return p, store, recorder
}

func TestNewProcessorRequiresRecognizer(t *testing.T) {
	_, err := NewProcessor(nil)
	assert.Error(t, err)
	_, err = NewProcessor(&Config{})
	assert.Error(t, err)
}

func TestProcessInlineData(t *testing.T) {
	rec := &fakeRecognizer{}
	p, store, recorder := newTestProcessor(t, rec, nil)

	data := []byte("not really an image")
	res, err := p.Process(context.Background(), &Request{
		JobID:     "job-1",
		ImageData: data,
		Options:   unified.OCROptions{MinConfidence: unified.Float(0.5)},
		Attempt:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.OCR.Text)

	assert.Equal(t, textextractor.SourceBytes, rec.src.Kind)
	assert.Equal(t, data, rec.src.Data)

	// job options are merged over the worker defaults
	assert.Equal(t, []string{"en"}, rec.opts.Languages)
	assert.Equal(t, 0.5, rec.opts.Threshold())

	require.Len(t, store.started, 1)
	assert.Equal(t, "inline:19", store.started[0].Source)
	require.Len(t, store.completed, 1)
	assert.Equal(t, 1, store.completed[0].Attempt)
	assert.Equal(t, []string{OutcomeCompleted}, recorder.outcomes)
	assert.Zero(t, recorder.active)
}

func TestProcessLocalURIPassesThrough(t *testing.T) {
	rec := &fakeRecognizer{}
	p, _, _ := newTestProcessor(t, rec, nil)

	_, err := p.Process(context.Background(), &Request{JobID: "job-2", ImageURI: "file:///tmp/receipt.png", Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, textextractor.FromURI("file:///tmp/receipt.png"), rec.src)
}

func TestProcessJobOptionsResetDefaults(t *testing.T) {
	rec := &fakeRecognizer{}
	p, _, _ := newTestProcessor(t, rec, func(c *Config) {
		c.Defaults.MinConfidence = unified.Float(0.8)
		c.Defaults.IncludeCharacters = unified.Bool(true)
	})

	_, err := p.Process(context.Background(), &Request{
		JobID:    "job-reset",
		ImageURI: "file:///tmp/receipt.png",
		Options:  unified.OCROptions{MinConfidence: unified.Float(0), IncludeCharacters: unified.Bool(false)},
		Attempt:  1,
	})
	require.NoError(t, err)
	assert.Zero(t, rec.opts.Threshold())
	require.NotNil(t, rec.opts.IncludeCharacters)
	assert.False(t, *rec.opts.IncludeCharacters)
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		final       bool
		wantCode    ocrerror.ErrorCode
		wantStored  bool
		wantOutcome string
	}{
		{
			name:        "retryable error before the last attempt",
			err:         ocrerror.NewTimeoutError("c", time.Second, nil),
			wantCode:    ocrerror.ErrorTimeout,
			wantOutcome: OutcomeRetry,
		},
		{
			name:        "retryable error on the last attempt",
			err:         ocrerror.NewTimeoutError("c", time.Second, nil),
			final:       true,
			wantCode:    ocrerror.ErrorTimeout,
			wantStored:  true,
			wantOutcome: OutcomeFailed,
		},
		{
			name:        "permanent error",
			err:         ocrerror.NewInvalidImageError("c", "corrupt", nil),
			wantCode:    ocrerror.ErrorInvalidImage,
			wantStored:  true,
			wantOutcome: OutcomeFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{err: tt.err}
			p, store, recorder := newTestProcessor(t, rec, nil)

			_, err := p.Process(context.Background(), &Request{
				JobID:        "job-3",
				ImageData:    []byte{1},
				Attempt:      1,
				FinalAttempt: tt.final,
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, ocrerror.CodeOf(err))
			assert.Equal(t, tt.wantStored, len(store.failed) == 1)
			assert.Empty(t, store.completed)
			assert.Equal(t, []string{tt.wantOutcome}, recorder.outcomes)
		})
	}
}

func TestProcessRejectsMissingSource(t *testing.T) {
	p, store, _ := newTestProcessor(t, &fakeRecognizer{}, nil)

	_, err := p.Process(context.Background(), &Request{JobID: "job-4", Attempt: 1})
	assert.True(t, ocrerror.Is(err, ocrerror.ErrorInvalidImage))
	assert.Equal(t, []ocrerror.ErrorCode{ocrerror.ErrorInvalidImage}, store.failed)

	_, err = p.Process(context.Background(), &Request{})
	assert.True(t, ocrerror.Is(err, ocrerror.ErrorProcessingFailed))
}

func TestProcessEnforcesMaxImageBytes(t *testing.T) {
	p, _, _ := newTestProcessor(t, &fakeRecognizer{}, func(c *Config) { c.MaxImageBytes = 4 })

	_, err := p.Process(context.Background(), &Request{JobID: "job-5", ImageData: []byte("12345"), Attempt: 1})
	assert.True(t, ocrerror.Is(err, ocrerror.ErrorInvalidImage))
}

func TestProcessDownloadsRemoteImages(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	rec := &fakeRecognizer{}
	p, store, _ := newTestProcessor(t, rec, nil)

	_, err := p.Process(context.Background(), &Request{JobID: "job-6", ImageURI: srv.URL + "/a.png", Attempt: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	assert.Equal(t, textextractor.SourceBytes, rec.src.Kind)
	assert.Equal(t, "image-bytes", string(rec.src.Data))
	assert.Equal(t, srv.URL+"/a.png", store.started[0].Source)
}

func TestProcessDownloadErrors(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		p, _, _ := newTestProcessor(t, &fakeRecognizer{}, nil)
		_, err := p.Process(context.Background(), &Request{JobID: "job-7", ImageURI: srv.URL, Attempt: 1})
		assert.True(t, ocrerror.Is(err, ocrerror.ErrorInvalidImage))
		assert.EqualValues(t, 1, hits.Load())
	})

	t.Run("server errors exhaust retries", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		p, _, _ := newTestProcessor(t, &fakeRecognizer{}, func(c *Config) { c.DownloadRetries = 2 })
		_, err := p.Process(context.Background(), &Request{JobID: "job-8", ImageURI: srv.URL, Attempt: 1})
		assert.True(t, ocrerror.Is(err, ocrerror.ErrorNetwork))
		assert.EqualValues(t, 2, hits.Load())
	})

	t.Run("oversized body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(make([]byte, 64))
		}))
		defer srv.Close()

		p, _, _ := newTestProcessor(t, &fakeRecognizer{}, func(c *Config) { c.MaxImageBytes = 16 })
		_, err := p.Process(context.Background(), &Request{JobID: "job-9", ImageURI: srv.URL, Attempt: 1})
		assert.True(t, ocrerror.Is(err, ocrerror.ErrorInvalidImage))
	})
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1, time.Second, 10*time.Second))
	assert.Equal(t, 4*time.Second, backoff(3, time.Second, 10*time.Second))
	assert.Equal(t, 10*time.Second, backoff(8, time.Second, 10*time.Second))
}
