package textextractor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dv00d00/expo-text-extractor/backend"
	"github.com/dv00d00/expo-text-extractor/langdetect"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// Operation names, as reported to observers and logs.
const (
	OpExtractText        = "extractTextFromImage"
	OpExtractTextData    = "extractTextFromImageData"
	OpExtractDetails     = "extractTextFromImageWithDetails"
	OpExtractDetailsData = "extractTextFromImageDataWithDetails"
	OpRecognize          = "recognize"
)

// Observer is told about every finished call. code is empty on success.
type Observer interface {
	CallFinished(op string, platform unified.Platform, code ocrerror.ErrorCode, duration time.Duration)
}

// Extractor runs recognition calls against one backend. It holds no
// per-call state and is safe for concurrent use.
type Extractor struct {
	backend     backend.Backend
	logger      *zap.Logger
	defaults    unified.OCROptions
	detector    langdetect.Detector
	detectorSet bool
	observer    Observer
}

var _ Module = (*Extractor)(nil)

// Option configures an Extractor.
type Option func(*Extractor)

// WithBackend replaces the compiled-in backend.
func WithBackend(b backend.Backend) Option {
	return func(e *Extractor) { e.backend = b }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOptions sets the options used by the four extract calls and merged
// under the options given to Recognize.
func WithOptions(o unified.OCROptions) Option {
	return func(e *Extractor) { e.defaults = o }
}

// WithLanguageDetector sets the detector used by Recognize when the backend
// reports no languages. Passing nil disables detection.
func WithLanguageDetector(d langdetect.Detector) Option {
	return func(e *Extractor) {
		e.detector = d
		e.detectorSet = true
	}
}

// WithObserver registers a call observer, e.g. a metrics recorder.
func WithObserver(o Observer) Option {
	return func(e *Extractor) { e.observer = o }
}

// New builds an Extractor over backend.Default unless WithBackend is given.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.backend == nil {
		e.backend = backend.Default()
	}
	if !e.detectorSet {
		e.detector = langdetect.New(e.logger.Named("langdetect"))
	}
	return e
}

// IsSupported reports whether the extractor's backend can recognize text.
func (e *Extractor) IsSupported() bool {
	return e.backend.Platform() != unified.PlatformNone
}

// Platform names the backend in use.
func (e *Extractor) Platform() unified.Platform {
	return e.backend.Platform()
}

// ExtractTextFromImage returns the text of each detected region of the
// image at uri, in reading order.
func (e *Extractor) ExtractTextFromImage(ctx context.Context, uri string) ([]string, error) {
	res, err := e.run(ctx, OpExtractText, FromURI(uri), e.defaults, false)
	if err != nil {
		return nil, err
	}
	return res.Texts(), nil
}

// ExtractTextFromImageData is ExtractTextFromImage for a base64 payload.
func (e *Extractor) ExtractTextFromImageData(ctx context.Context, data string) ([]string, error) {
	res, err := e.run(ctx, OpExtractTextData, FromBase64(data), e.defaults, false)
	if err != nil {
		return nil, err
	}
	return res.Texts(), nil
}

// ExtractTextFromImageWithDetails returns text, confidence and pixel
// bounding box of each detected region of the image at uri.
func (e *Extractor) ExtractTextFromImageWithDetails(ctx context.Context, uri string) ([]RecognizedText, error) {
	res, err := e.run(ctx, OpExtractDetails, FromURI(uri), e.defaults, false)
	if err != nil {
		return nil, err
	}
	return toBridge(res.Regions()), nil
}

// ExtractTextFromImageDataWithDetails is ExtractTextFromImageWithDetails
// for a base64 payload.
func (e *Extractor) ExtractTextFromImageDataWithDetails(ctx context.Context, data string) ([]RecognizedText, error) {
	res, err := e.run(ctx, OpExtractDetailsData, FromBase64(data), e.defaults, false)
	if err != nil {
		return nil, err
	}
	return toBridge(res.Regions()), nil
}

// Recognize returns the full unified result. opts is merged over the
// extractor's defaults.
func (e *Extractor) Recognize(ctx context.Context, src Source, opts unified.OCROptions) (*unified.OCRResult, error) {
	return e.run(ctx, OpRecognize, src, e.defaults.Merge(opts), true)
}

// run executes one single-shot call: validate, load, invoke, convert,
// filter. Errors are always *ocrerror.OCRError.
func (e *Extractor) run(ctx context.Context, op string, src Source, opts unified.OCROptions, detect bool) (res *unified.OCRResult, err error) {
	c := newCall(op, e.backend.Platform(), e.logger)
	c.start()
	defer func() {
		if e.observer == nil {
			return
		}
		var code ocrerror.ErrorCode
		if err != nil {
			code = ocrerror.CodeOf(err)
		}
		e.observer.CallFinished(op, c.platform, code, time.Since(c.started))
	}()

	if verr := opts.Validate(); verr != nil {
		return nil, c.reject(verr)
	}

	img, lerr := load(c.id, src)
	if lerr != nil {
		return nil, c.reject(lerr)
	}
	c.logger.Debug("Image loaded",
		zap.String("format", img.Format),
		zap.Float64("width", img.Size.Width),
		zap.Float64("height", img.Size.Height))

	raw, ierr := c.invoke(ctx, e.backend, img, opts)
	if ierr != nil {
		return nil, c.reject(ierr)
	}

	res, cerr := unified.Convert(raw, opts)
	if cerr != nil {
		return nil, c.reject(cerr)
	}
	res = unified.ApplyMinConfidence(res, opts.Threshold())
	if detect {
		res = langdetect.Fill(res, e.detector, opts.Languages)
	}

	c.resolve()
	return res, nil
}
