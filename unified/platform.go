package unified

import (
	"encoding/json"
	"fmt"

	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/tesseract"
	"github.com/dv00d00/expo-text-extractor/vision"
)

// Platform tags the backend a result came from.
type Platform string

const (
	PlatformAndroid   Platform = "android"
	PlatformIOS       Platform = "ios"
	PlatformTesseract Platform = "tesseract"
	PlatformNone      Platform = "none"
)

// PlatformResult is the untranslated native result. It is a closed union;
// consumers switch on the concrete type:
//
//	switch raw := res.Platform.(type) {
//	case unified.AndroidResult:
//		_ = raw.Raw.Text.TextBlocks
//	case unified.IOSResult:
//		_ = raw.Raw.Observations
//	}
type PlatformResult interface {
	Platform() Platform
	isPlatformResult()
}

// AndroidResult wraps an ML Kit result.
type AndroidResult struct {
	Raw *mlkit.Result
}

// IOSResult wraps a Vision result.
type IOSResult struct {
	Raw *vision.Result
}

// TesseractResult wraps a Tesseract result.
type TesseractResult struct {
	Raw *tesseract.Result
}

func (AndroidResult) Platform() Platform   { return PlatformAndroid }
func (IOSResult) Platform() Platform       { return PlatformIOS }
func (TesseractResult) Platform() Platform { return PlatformTesseract }

func (AndroidResult) isPlatformResult()   {}
func (IOSResult) isPlatformResult()       {}
func (TesseractResult) isPlatformResult() {}

type taggedResult struct {
	Platform Platform        `json:"platform"`
	Raw      json.RawMessage `json:"raw"`
}

func marshalTagged(p Platform, raw interface{}) ([]byte, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedResult{Platform: p, Raw: data})
}

func (r AndroidResult) MarshalJSON() ([]byte, error)   { return marshalTagged(PlatformAndroid, r.Raw) }
func (r IOSResult) MarshalJSON() ([]byte, error)       { return marshalTagged(PlatformIOS, r.Raw) }
func (r TesseractResult) MarshalJSON() ([]byte, error) { return marshalTagged(PlatformTesseract, r.Raw) }

// UnmarshalPlatformResult decodes the {"platform", "raw"} form.
func UnmarshalPlatformResult(data []byte) (PlatformResult, error) {
	var tagged taggedResult
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal platform result: %w", err)
	}
	switch tagged.Platform {
	case PlatformAndroid:
		raw, err := mlkit.ParseResult(tagged.Raw)
		if err != nil {
			return nil, err
		}
		return AndroidResult{Raw: raw}, nil
	case PlatformIOS:
		raw, err := vision.ParseResult(tagged.Raw)
		if err != nil {
			return nil, err
		}
		return IOSResult{Raw: raw}, nil
	case PlatformTesseract:
		var raw tesseract.Result
		if err := json.Unmarshal(tagged.Raw, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode Tesseract result: %w", err)
		}
		return TesseractResult{Raw: &raw}, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", tagged.Platform)
	}
}

// UnmarshalJSON implements custom JSON unmarshaling for OCRResult so the
// platform union round-trips.
func (r *OCRResult) UnmarshalJSON(data []byte) error {
	// Create alias type to avoid recursion
	type Alias OCRResult
	aux := &struct {
		Platform json.RawMessage `json:"platform,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal OCRResult: %w", err)
	}

	r.Platform = nil
	if len(aux.Platform) > 0 && string(aux.Platform) != "null" {
		p, err := UnmarshalPlatformResult(aux.Platform)
		if err != nil {
			return err
		}
		r.Platform = p
	}
	return nil
}
