/**
 * Job Processor for the text extraction worker
 *
 * Runs one single-shot recognition per job:
 * - loads the image from an inline buffer, a local URI or an HTTP(S) URL
 * - recognizes it with the job's options merged over the worker defaults
 * - records the outcome in Redis and PostgreSQL
 */

package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/internal/logging"
	"github.com/dv00d00/expo-text-extractor/internal/storage"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// JobProcessor defines the interface the queue consumer drives
type JobProcessor interface {
	Process(ctx context.Context, req *Request) (*Result, error)
}

// Recognizer is the part of textextractor.Extractor the processor uses.
type Recognizer interface {
	Recognize(ctx context.Context, src textextractor.Source, opts unified.OCROptions) (*unified.OCRResult, error)
}

// Store records job state. *storage.StorageManager implements it.
type Store interface {
	Started(ctx context.Context, job storage.JobStart) error
	Completed(ctx context.Context, outcome storage.JobOutcome) error
	Failed(ctx context.Context, jobID, source string, attempt int, oe *ocrerror.OCRError) error
}

// Recorder counts job outcomes. *metrics.Recorder implements it.
type Recorder interface {
	JobStarted()
	JobFinished(status string)
}

// Job outcome labels reported to the Recorder.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRetry     = "retry"
)

// Config holds processor configuration
type Config struct {
	Recognizer    Recognizer
	Store         Store
	Recorder      Recorder
	Defaults      unified.OCROptions
	MaxImageBytes int64
	HTTPClient    *http.Client
	Logger        *logging.Logger

	// Download retry policy for HTTP(S) sources.
	DownloadRetries int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// Request represents one extraction job
type Request struct {
	JobID string
	// ImageURI is a file://, content:// or http(s):// location.
	ImageURI  string
	ImageData []byte
	Options   unified.OCROptions
	// Attempt is 1-based; FinalAttempt is set when no retry will follow.
	Attempt      int
	FinalAttempt bool
	Metadata     map[string]interface{}
}

// Result represents the processing result
type Result struct {
	JobID          string
	OCR            *unified.OCRResult
	ProcessingTime time.Duration
}

// Processor handles extraction jobs
type Processor struct {
	config *Config
	logger *logging.Logger
}

var _ JobProcessor = (*Processor)(nil)

// NewProcessor creates a new job processor
func NewProcessor(cfg *Config) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if cfg.Store == nil {
		cfg.Store = storage.NewStorageManager(nil, nil, cfg.Logger)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if cfg.DownloadRetries <= 0 {
		cfg.DownloadRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 16 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Processor{config: cfg, logger: logger}, nil
}

// Process runs one job. Every error it returns is an *ocrerror.OCRError.
func (p *Processor) Process(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.JobID == "" {
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", "Job ID is required", nil)
	}
	startTime := time.Now()
	source := describeSource(req)
	log := p.logger.With("jobId", req.JobID, "attempt", req.Attempt)

	if p.config.Recorder != nil {
		p.config.Recorder.JobStarted()
	}
	if err := p.config.Store.Started(ctx, storage.JobStart{
		JobID:    req.JobID,
		Source:   source,
		Attempt:  req.Attempt,
		Metadata: req.Metadata,
	}); err != nil {
		log.Warn("Failed to record job start", "error", err)
	}

	res, err := p.recognize(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		oe := ocrerror.Wrap("", err)
		final := req.FinalAttempt || !ocrerror.Retryable(oe.Code)
		log.Warn("Extraction failed",
			"code", oe.Code,
			"error", oe.Message,
			"duration", duration,
			"final", final)

		outcome := OutcomeRetry
		if final {
			outcome = OutcomeFailed
			if serr := p.config.Store.Failed(ctx, req.JobID, source, req.Attempt, oe); serr != nil {
				log.Error("Failed to record job failure", "error", serr)
			}
		}
		if p.config.Recorder != nil {
			p.config.Recorder.JobFinished(outcome)
		}
		return nil, oe
	}

	log.Info("Extraction completed",
		"blocks", len(res.Blocks),
		"confidence", res.Confidence,
		"duration", duration)

	if serr := p.config.Store.Completed(ctx, storage.JobOutcome{
		JobID:          req.JobID,
		Source:         source,
		Attempt:        req.Attempt,
		Result:         res,
		ProcessingTime: duration,
	}); serr != nil {
		log.Error("Failed to record job result", "error", serr)
	}
	if p.config.Recorder != nil {
		p.config.Recorder.JobFinished(OutcomeCompleted)
	}

	return &Result{JobID: req.JobID, OCR: res, ProcessingTime: duration}, nil
}

func (p *Processor) recognize(ctx context.Context, req *Request) (*unified.OCRResult, error) {
	src, err := p.loadSource(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.config.Recognizer.Recognize(ctx, src, p.config.Defaults.Merge(req.Options))
}

// loadSource turns the job's image reference into a Source. Remote URLs
// are downloaded here; local URIs are read by the extractor.
func (p *Processor) loadSource(ctx context.Context, req *Request) (textextractor.Source, error) {
	if len(req.ImageData) > 0 {
		if err := p.checkSize(int64(len(req.ImageData))); err != nil {
			return textextractor.Source{}, err
		}
		return textextractor.FromBytes(req.ImageData), nil
	}

	if isRemote(req.ImageURI) {
		data, err := p.download(ctx, req.JobID, req.ImageURI)
		if err != nil {
			return textextractor.Source{}, err
		}
		return textextractor.FromBytes(data), nil
	}

	if req.ImageURI == "" {
		return textextractor.Source{}, ocrerror.NewInvalidImageError("", "no image source provided (data or URI)", nil)
	}
	return textextractor.FromURI(req.ImageURI), nil
}

func (p *Processor) checkSize(n int64) error {
	if p.config.MaxImageBytes > 0 && n > p.config.MaxImageBytes {
		return ocrerror.NewInvalidImageError("",
			fmt.Sprintf("image size exceeds maximum: %d > %d bytes", n, p.config.MaxImageBytes), nil)
	}
	return nil
}

// download fetches an image over HTTP(S) with exponential backoff. Network
// failures and 5xx responses are retried; 4xx responses are not.
func (p *Processor) download(ctx context.Context, jobID, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.DownloadRetries; attempt++ {
		p.logger.Debug("Downloading image", "jobId", jobID, "attempt", attempt, "url", imageURL)

		data, retry, err := p.fetch(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || attempt == p.config.DownloadRetries {
			break
		}

		select {
		case <-time.After(backoff(attempt, p.config.InitialBackoff, p.config.MaxBackoff)):
		case <-ctx.Done():
			return nil, ocrerror.New(ocrerror.ErrorNetwork, "", "Download cancelled", ctx.Err())
		}
	}

	var oe *ocrerror.OCRError
	if errors.As(lastErr, &oe) {
		return nil, oe
	}
	return nil, ocrerror.New(ocrerror.ErrorNetwork, "", fmt.Sprintf("Failed to download image from %s", imageURL), lastErr).
		WithDetail("url", imageURL)
}

func (p *Processor) fetch(ctx context.Context, imageURL string) ([]byte, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, ocrerror.NewInvalidImageError("", "invalid image URL", err)
	}

	resp, err := p.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, true, err
		}
		return nil, false, ocrerror.NewInvalidImageError("", fmt.Sprintf("image URL returned HTTP %d", resp.StatusCode), err)
	}

	if resp.ContentLength > 0 {
		if err := p.checkSize(resp.ContentLength); err != nil {
			return nil, false, err
		}
	}

	limit := p.config.MaxImageBytes
	if limit <= 0 {
		limit = 1 << 30
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, true, err
	}
	if err := p.checkSize(int64(len(data))); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func backoff(attempt int, initial, max time.Duration) time.Duration {
	d := time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	if d > max || d <= 0 {
		return max
	}
	return d
}

func isRemote(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// describeSource is what gets stored as the job's source column.
func describeSource(req *Request) string {
	if req.ImageURI != "" {
		return req.ImageURI
	}
	if len(req.ImageData) > 0 {
		return fmt.Sprintf("inline:%d", len(req.ImageData))
	}
	return ""
}
