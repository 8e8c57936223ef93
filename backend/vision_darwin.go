//go:build darwin && cgo

package backend

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Vision -framework Foundation -framework CoreGraphics -framework ImageIO

#include <stdlib.h>

// Implemented in vision_darwin.m. Returns a malloc'd JSON envelope.
extern char* etxRecognizeText(const char* path, const void* data, int length, const char* optionsJSON);
*/
import "C"

import (
	"context"
	"encoding/json"
	"fmt"
	"unsafe"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
	"github.com/dv00d00/expo-text-extractor/vision"
)

const supported = true

// IOSBackend runs VNRecognizeTextRequest through cgo. It serves macOS as
// well as iOS.
type IOSBackend struct{}

func newDefault() Backend { return IOSBackend{} }

// Platform implements Backend.
func (IOSBackend) Platform() unified.Platform { return unified.PlatformIOS }

// Recognize implements Backend. The cgo call itself cannot be interrupted;
// the caller's timeout race discards late results.
func (IOSBackend) Recognize(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optsJSON, err := json.Marshal(unified.ToVision(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to encode Vision options: %w", err)
	}

	cOpts := C.CString(string(optsJSON))
	defer C.free(unsafe.Pointer(cOpts))

	var cPath *C.char
	if img.Path != "" {
		cPath = C.CString(img.Path)
		defer C.free(unsafe.Pointer(cPath))
	}

	var cData unsafe.Pointer
	if img.Path == "" && len(img.Data) > 0 {
		cData = C.CBytes(img.Data)
		defer C.free(cData)
	}

	cResult := C.etxRecognizeText(cPath, cData, C.int(len(img.Data)), cOpts)
	if cResult == nil {
		return nil, ocrerror.NewProcessingFailedError("", string(unified.PlatformIOS),
			fmt.Errorf("Vision returned no response"))
	}
	defer C.free(unsafe.Pointer(cResult))

	raw, err := decodeEnvelope(unified.PlatformIOS, []byte(C.GoString(cResult)))
	if err != nil {
		return nil, err
	}
	res, err := vision.ParseResult(raw)
	if err != nil {
		return nil, ocrerror.NewProcessingFailedError("", string(unified.PlatformIOS), err)
	}
	return unified.IOSResult{Raw: res}, nil
}
