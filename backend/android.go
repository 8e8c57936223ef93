//go:build android

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

const supported = true

// MLKitClient is implemented by the host's Kotlin glue and registered
// through gomobile's reverse binding. Process runs one
// TextRecognizer.process call: imagePath is a file path or content:// URI
// (empty when only data is given), optionsJSON is a serialized
// mlkit.RecognizerOptions, and the return value is a serialized
// mlkit.Result. Errors may start with a taxonomy code followed by a colon.
type MLKitClient interface {
	Process(imagePath string, imageData []byte, optionsJSON string) (string, error)
}

var (
	clientMu sync.RWMutex
	client   MLKitClient
)

// RegisterMLKitClient installs the host glue. It is called once from the
// Android application before any recognition.
func RegisterMLKitClient(c MLKitClient) {
	clientMu.Lock()
	defer clientMu.Unlock()
	client = c
}

func registeredClient() MLKitClient {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// AndroidBackend calls ML Kit through the registered MLKitClient.
type AndroidBackend struct{}

func newDefault() Backend { return AndroidBackend{} }

// Platform implements Backend.
func (AndroidBackend) Platform() unified.Platform { return unified.PlatformAndroid }

// Recognize implements Backend.
func (AndroidBackend) Recognize(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error) {
	c := registeredClient()
	if c == nil {
		return nil, ocrerror.NewModelNotAvailableError("", string(unified.PlatformAndroid),
			fmt.Errorf("no ML Kit client registered"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	optsJSON, err := json.Marshal(unified.ToMLKit(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to encode ML Kit options: %w", err)
	}

	data := img.Data
	if img.Path != "" {
		// The glue loads paths itself; avoid copying the bytes across JNI.
		data = nil
	}
	out, err := c.Process(img.Path, data, string(optsJSON))
	if err != nil {
		return nil, nativeError(unified.PlatformAndroid, err)
	}

	res, err := mlkit.ParseResult([]byte(out))
	if err != nil {
		return nil, ocrerror.NewProcessingFailedError("", string(unified.PlatformAndroid), err)
	}
	if res.ImageSize.Width == 0 && res.ImageSize.Height == 0 {
		res.ImageSize = mlkit.ImageSize{Width: int(img.Size.Width), Height: int(img.Size.Height)}
	}
	return unified.AndroidResult{Raw: res}, nil
}
