// Package backend invokes the platform's native text recognizer.
//
// Exactly one variant is compiled in, chosen by build constraints:
//
//	android                        ML Kit through a host-registered MLKitClient
//	darwin && cgo                  Apple Vision through cgo
//	tesseract (other platforms)    Tesseract through gosseract
//	otherwise                      no backend; every call fails MODEL_NOT_AVAILABLE
//
// Backends only run the native call and hand back the untranslated result;
// conversion into the unified shape happens in package unified.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// Image is a validated input. Path is set for file and content:// inputs,
// Data holds the bytes whenever they were read. Size is the pixel size
// decoded from the header, zero for formats whose header is not decoded
// locally (HEIC).
type Image struct {
	Path   string
	Data   []byte
	Format string
	Size   geometry.Size
}

// Backend runs one native recognition.
type Backend interface {
	Platform() unified.Platform
	Recognize(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error)
}

// Supported reports whether a real backend was compiled in. It never
// changes during the life of the process.
const Supported = supported

// Default returns the backend compiled for this platform.
func Default() Backend {
	return newDefault()
}

// Func adapts a function to Backend.
type Func struct {
	Name unified.Platform
	Fn   func(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error)
}

// Platform implements Backend.
func (f Func) Platform() unified.Platform { return f.Name }

// Recognize implements Backend.
func (f Func) Recognize(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error) {
	return f.Fn(ctx, img, opts)
}

// unavailable is the backend of builds without a recognizer.
type unavailable struct{}

func (unavailable) Platform() unified.Platform { return unified.PlatformNone }

func (unavailable) Recognize(context.Context, Image, unified.OCROptions) (unified.PlatformResult, error) {
	return nil, ocrerror.NewModelNotAvailableError("", string(unified.PlatformNone),
		fmt.Errorf("no text recognizer is compiled into this build"))
}

// nativeError classifies a failure reported by platform glue. Glue may
// prefix its message with a taxonomy code ("MODEL_NOT_AVAILABLE: ...");
// anything else is a processing failure.
func nativeError(platform unified.Platform, err error) error {
	if err == nil {
		return nil
	}
	if ocrerror.CodeOf(err) != ocrerror.ErrorUnknown {
		return err
	}
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		code := ocrerror.ErrorCode(strings.TrimSpace(msg[:i]))
		if code.Valid() {
			return ocrerror.New(code, "", strings.TrimSpace(msg[i+1:]), err).
				WithDetail("platform", string(platform))
		}
	}
	return ocrerror.NewProcessingFailedError("", string(platform), err)
}

// envelope is the JSON the cgo glue returns: either a result or an error.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    ocrerror.ErrorCode `json:"code"`
		Message string             `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(platform unified.Platform, data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ocrerror.NewProcessingFailedError("", string(platform),
			fmt.Errorf("failed to decode native response: %w", err))
	}
	if env.Error != nil {
		code := env.Error.Code
		if !code.Valid() {
			code = ocrerror.ErrorProcessingFailed
		}
		return nil, ocrerror.New(code, "", env.Error.Message, nil).
			WithDetail("platform", string(platform))
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, ocrerror.NewProcessingFailedError("", string(platform),
			fmt.Errorf("native response carried no result"))
	}
	return env.Result, nil
}
