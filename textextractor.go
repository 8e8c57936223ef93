// Package textextractor extracts text from images with the platform's own
// recognizer: ML Kit on Android, Apple Vision on iOS and macOS, and
// optionally Tesseract elsewhere. Results from every platform come back in
// one shape, with bounding boxes in pixel space and a top-left origin.
//
// Every call is single-shot: it validates the input, issues one native
// request and either resolves or rejects with an *ocrerror.OCRError. Calls
// share no mutable state and may run concurrently. The number of images
// being decoded at once is not limited here; that is left to the native
// SDK.
package textextractor

import (
	"context"
	"sync"

	"github.com/dv00d00/expo-text-extractor/backend"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// IsSupported reports whether this build has a working native recognizer.
// It is fixed at build time.
const IsSupported = backend.Supported

var defaultExtractor = sync.OnceValue(func() *Extractor { return New() })

// Default returns the process-wide extractor used by the package-level
// functions.
func Default() *Extractor { return defaultExtractor() }

// ExtractTextFromImage runs Extractor.ExtractTextFromImage on the default
// extractor.
func ExtractTextFromImage(ctx context.Context, uri string) ([]string, error) {
	return Default().ExtractTextFromImage(ctx, uri)
}

// ExtractTextFromImageData runs Extractor.ExtractTextFromImageData on the
// default extractor.
func ExtractTextFromImageData(ctx context.Context, data string) ([]string, error) {
	return Default().ExtractTextFromImageData(ctx, data)
}

// ExtractTextFromImageWithDetails runs
// Extractor.ExtractTextFromImageWithDetails on the default extractor.
func ExtractTextFromImageWithDetails(ctx context.Context, uri string) ([]RecognizedText, error) {
	return Default().ExtractTextFromImageWithDetails(ctx, uri)
}

// ExtractTextFromImageDataWithDetails runs
// Extractor.ExtractTextFromImageDataWithDetails on the default extractor.
func ExtractTextFromImageDataWithDetails(ctx context.Context, data string) ([]RecognizedText, error) {
	return Default().ExtractTextFromImageDataWithDetails(ctx, data)
}

// Recognize runs Extractor.Recognize on the default extractor.
func Recognize(ctx context.Context, src Source, opts unified.OCROptions) (*unified.OCRResult, error) {
	return Default().Recognize(ctx, src, opts)
}
