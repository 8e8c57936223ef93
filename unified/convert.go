package unified

import (
	"fmt"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// Convert dispatches a native result to its converter.
func Convert(raw PlatformResult, opts OCROptions) (*OCRResult, error) {
	switch r := raw.(type) {
	case AndroidResult:
		return FromMLKit(r.Raw, opts)
	case IOSResult:
		return FromVision(r.Raw, opts)
	case TesseractResult:
		return FromTesseract(r.Raw, opts)
	case nil:
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", "backend returned no result", nil)
	default:
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", fmt.Sprintf("unsupported platform result %T", raw), nil)
	}
}
