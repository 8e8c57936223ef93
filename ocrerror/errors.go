/**
 * Error taxonomy for text extraction
 *
 * Every failure of a recognition call surfaces as an *OCRError tagged with
 * one code from a closed set. Message text is informational only.
 */

package ocrerror

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidImage      ErrorCode = "INVALID_IMAGE"
	ErrorInvalidBase64     ErrorCode = "INVALID_BASE64"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// Processing errors
	ErrorProcessingFailed ErrorCode = "PROCESSING_FAILED"
	ErrorTimeout          ErrorCode = "TIMEOUT"

	// Environment errors
	ErrorNetwork           ErrorCode = "NETWORK_ERROR"
	ErrorModelNotAvailable ErrorCode = "MODEL_NOT_AVAILABLE"
	ErrorPermissionDenied  ErrorCode = "PERMISSION_DENIED"

	ErrorUnknown ErrorCode = "UNKNOWN_ERROR"
)

// Codes lists every member of the closed taxonomy.
var Codes = []ErrorCode{
	ErrorInvalidImage,
	ErrorInvalidBase64,
	ErrorProcessingFailed,
	ErrorTimeout,
	ErrorUnsupportedFormat,
	ErrorNetwork,
	ErrorModelNotAvailable,
	ErrorPermissionDenied,
	ErrorUnknown,
}

// Valid reports whether c belongs to the taxonomy.
func (c ErrorCode) Valid() bool {
	for _, known := range Codes {
		if c == known {
			return true
		}
	}
	return false
}

// OCRError represents a rejected recognition call
type OCRError struct {
	Code      ErrorCode
	Message   string
	CallID    string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *OCRError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key to Details and returns e for chaining.
func (e *OCRError) WithDetail(key string, value interface{}) *OCRError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCallID stamps the call id if none was set yet.
func (e *OCRError) WithCallID(callID string) *OCRError {
	if e.CallID == "" {
		e.CallID = callID
	}
	return e
}

// New builds an error of an arbitrary code.
func New(code ErrorCode, callID string, message string, cause error) *OCRError {
	if !code.Valid() {
		code = ErrorUnknown
	}
	return &OCRError{
		Code:      code,
		Message:   message,
		CallID:    callID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// Factory functions for common errors

func NewInvalidImageError(callID string, reason string, cause error) *OCRError {
	return New(ErrorInvalidImage, callID, fmt.Sprintf("Invalid image: %s", reason), cause)
}

func NewInvalidBase64Error(callID string, cause error) *OCRError {
	return New(ErrorInvalidBase64, callID, "Image payload is not valid base64", cause)
}

func NewUnsupportedFormatError(callID string, format string) *OCRError {
	return New(ErrorUnsupportedFormat, callID, fmt.Sprintf("Unsupported image format: %s", format), nil).
		WithDetail("format", format)
}

func NewProcessingFailedError(callID string, platform string, cause error) *OCRError {
	return New(ErrorProcessingFailed, callID, fmt.Sprintf("Text recognition failed on %s", platform), cause).
		WithDetail("platform", platform)
}

func NewTimeoutError(callID string, duration time.Duration, cause error) *OCRError {
	return New(ErrorTimeout, callID, fmt.Sprintf("Recognition timed out after %v", duration), cause).
		WithDetail("timeout_duration", duration.String())
}

func NewModelNotAvailableError(callID string, platform string, cause error) *OCRError {
	return New(ErrorModelNotAvailable, callID, fmt.Sprintf("No text recognition model available on %s", platform), cause).
		WithDetail("platform", platform)
}

func NewPermissionDeniedError(callID string, path string, cause error) *OCRError {
	return New(ErrorPermissionDenied, callID, fmt.Sprintf("Permission denied reading %s", path), cause).
		WithDetail("path", path)
}

// Wrap converts any error into an *OCRError. Existing OCR errors pass through
// with the call id filled in; anything else becomes UNKNOWN_ERROR.
func Wrap(callID string, err error) *OCRError {
	if err == nil {
		return nil
	}
	var oe *OCRError
	if errors.As(err, &oe) {
		return oe.WithCallID(callID)
	}
	return New(ErrorUnknown, callID, "Unexpected failure", err)
}

// CodeOf returns the code carried by err, UNKNOWN_ERROR for foreign errors
// and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var oe *OCRError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ErrorUnknown
}

// Is reports whether err carries code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Retryable reports whether a host may sensibly retry a call that failed
// with code. Recognition itself never retries.
func Retryable(code ErrorCode) bool {
	switch code {
	case ErrorTimeout, ErrorNetwork, ErrorModelNotAvailable:
		return true
	default:
		return false
	}
}

// ToMap converts error to map for database storage
func (e *OCRError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.CallID != "" {
		result["call_id"] = e.CallID
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
