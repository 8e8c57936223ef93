package unified

import (
	"fmt"
	"time"

	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// RecognitionLevel trades speed for accuracy where the platform allows it.
type RecognitionLevel string

const (
	RecognitionLevelFast     RecognitionLevel = "fast"
	RecognitionLevelAccurate RecognitionLevel = "accurate"
)

// AndroidOptions overrides the translated ML Kit options.
type AndroidOptions struct {
	Script mlkit.Script `json:"script,omitempty"`
}

// IOSOptions overrides the translated Vision options.
type IOSOptions struct {
	Revision                     int     `json:"revision,omitempty"`
	MinimumTextHeight            float64 `json:"minimumTextHeight,omitempty"`
	AutomaticallyDetectsLanguage *bool   `json:"automaticallyDetectsLanguage,omitempty"`
}

// TesseractOptions overrides the translated Tesseract options.
type TesseractOptions struct {
	PageSegMode *int   `json:"pageSegMode,omitempty"`
	Whitelist   string `json:"whitelist,omitempty"`
}

// PlatformOptions is the nested per-platform override block.
type PlatformOptions struct {
	Android   *AndroidOptions   `json:"android,omitempty"`
	IOS       *IOSOptions       `json:"ios,omitempty"`
	Tesseract *TesseractOptions `json:"tesseract,omitempty"`
}

// OCROptions configures one recognition call. The zero value recognizes
// with platform defaults, keeps words, drops characters and applies no
// confidence filter. Pointer fields are optional so that Merge can tell an
// explicit false or zero from an unset field.
type OCROptions struct {
	// Languages are BCP-47 tags in priority order.
	Languages        []string         `json:"languages,omitempty"`
	RecognitionLevel RecognitionLevel `json:"recognitionLevel,omitempty"`
	// MinConfidence drops entities below the threshold after conversion.
	// Nil or zero disables the filter.
	MinConfidence *float64 `json:"minConfidence,omitempty"`
	// UseLanguageCorrection defaults to true where supported.
	UseLanguageCorrection *bool    `json:"useLanguageCorrection,omitempty"`
	CustomWords           []string `json:"customWords,omitempty"`
	IncludeCharacters     *bool    `json:"includeCharacters,omitempty"`
	// IncludeWords defaults to true.
	IncludeWords      *bool `json:"includeWords,omitempty"`
	DetectOrientation *bool `json:"detectOrientation,omitempty"`
	// DetectStyle is accepted but no backend reports style.
	DetectStyle *bool `json:"detectStyle,omitempty"`
	// Timeout races the native call; zero means no timeout.
	Timeout  time.Duration   `json:"timeout,omitempty"`
	Platform PlatformOptions `json:"platform,omitempty"`
}

func (o OCROptions) includeWords() bool {
	return o.IncludeWords == nil || *o.IncludeWords
}

func (o OCROptions) languageCorrection() bool {
	return o.UseLanguageCorrection == nil || *o.UseLanguageCorrection
}

func (o OCROptions) includeCharacters() bool {
	return o.IncludeCharacters != nil && *o.IncludeCharacters
}

func (o OCROptions) detectOrientation() bool {
	return o.DetectOrientation != nil && *o.DetectOrientation
}

// Threshold is the effective MinConfidence, zero when unset.
func (o OCROptions) Threshold() float64 {
	if o.MinConfidence == nil {
		return 0
	}
	return *o.MinConfidence
}

// Bool returns a pointer to v, for the optional fields of OCROptions.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for MinConfidence.
func Float(v float64) *float64 { return &v }

// Validate checks option ranges. Violations are reported as
// PROCESSING_FAILED before any native work starts.
func (o OCROptions) Validate() error {
	invalid := func(option string, value interface{}, reason string) error {
		return ocrerror.New(ocrerror.ErrorProcessingFailed, "", fmt.Sprintf("Invalid option %s: %s", option, reason), nil).
			WithDetail("option", option).
			WithDetail("value", value)
	}

	if c := o.Threshold(); c < 0 || c > 1 {
		return invalid("minConfidence", c, "must be between 0 and 1")
	}
	switch o.RecognitionLevel {
	case "", RecognitionLevelFast, RecognitionLevelAccurate:
	default:
		return invalid("recognitionLevel", o.RecognitionLevel, "must be fast or accurate")
	}
	if o.Timeout < 0 {
		return invalid("timeout", o.Timeout.String(), "must not be negative")
	}
	if a := o.Platform.Android; a != nil && a.Script != "" && !a.Script.Valid() {
		return invalid("platform.android.script", a.Script, "unknown script")
	}
	if t := o.Platform.Tesseract; t != nil && t.PageSegMode != nil && (*t.PageSegMode < 0 || *t.PageSegMode > 13) {
		return invalid("platform.tesseract.pageSegMode", *t.PageSegMode, "must be between 0 and 13")
	}
	return nil
}

// Merge returns o with every field set in override replacing it. Optional
// fields set to false or zero in override do replace o's value.
func (o OCROptions) Merge(override OCROptions) OCROptions {
	out := o
	if len(override.Languages) > 0 {
		out.Languages = append([]string(nil), override.Languages...)
	}
	if override.RecognitionLevel != "" {
		out.RecognitionLevel = override.RecognitionLevel
	}
	if override.MinConfidence != nil {
		out.MinConfidence = override.MinConfidence
	}
	if override.UseLanguageCorrection != nil {
		out.UseLanguageCorrection = override.UseLanguageCorrection
	}
	if len(override.CustomWords) > 0 {
		out.CustomWords = append([]string(nil), override.CustomWords...)
	}
	if override.IncludeCharacters != nil {
		out.IncludeCharacters = override.IncludeCharacters
	}
	if override.IncludeWords != nil {
		out.IncludeWords = override.IncludeWords
	}
	if override.DetectOrientation != nil {
		out.DetectOrientation = override.DetectOrientation
	}
	if override.DetectStyle != nil {
		out.DetectStyle = override.DetectStyle
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.Platform.Android != nil {
		out.Platform.Android = override.Platform.Android
	}
	if override.Platform.IOS != nil {
		out.Platform.IOS = override.Platform.IOS
	}
	if override.Platform.Tesseract != nil {
		out.Platform.Tesseract = override.Platform.Tesseract
	}
	return out
}
