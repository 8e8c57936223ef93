// Package mlkit mirrors the result and option shapes of Google ML Kit Text
// Recognition v2 as the Android glue serializes them.
//
// Geometry is integer pixels with a top-left origin. Fields the SDK may
// omit are pointers; nil means the SDK did not report a value.
package mlkit

import (
	"encoding/json"
	"fmt"

	"github.com/dv00d00/expo-text-extractor/geometry"
)

// Rect mirrors android.graphics.Rect.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width of the rect.
func (r Rect) Width() int { return r.Right - r.Left }

// Height of the rect.
func (r Rect) Height() int { return r.Bottom - r.Top }

// ToGeometry converts to a pixel-space geometry.Rect.
func (r Rect) ToGeometry() geometry.Rect {
	return geometry.Rect{
		X:      float64(r.Left),
		Y:      float64(r.Top),
		Width:  float64(r.Width()),
		Height: float64(r.Height()),
	}
}

// Point mirrors android.graphics.Point.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Symbol is a single recognized character.
type Symbol struct {
	Text         string   `json:"text"`
	BoundingBox  *Rect    `json:"boundingBox,omitempty"`
	CornerPoints []Point  `json:"cornerPoints,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Angle        *float64 `json:"angle,omitempty"`
}

// Element is roughly a word.
type Element struct {
	Text               string   `json:"text"`
	BoundingBox        *Rect    `json:"boundingBox,omitempty"`
	CornerPoints       []Point  `json:"cornerPoints,omitempty"`
	RecognizedLanguage string   `json:"recognizedLanguage,omitempty"`
	Confidence         *float64 `json:"confidence,omitempty"`
	Angle              *float64 `json:"angle,omitempty"`
	Symbols            []Symbol `json:"symbols,omitempty"`
}

// Line is a run of elements sharing a baseline.
type Line struct {
	Text               string    `json:"text"`
	BoundingBox        *Rect     `json:"boundingBox,omitempty"`
	CornerPoints       []Point   `json:"cornerPoints,omitempty"`
	RecognizedLanguage string    `json:"recognizedLanguage,omitempty"`
	Confidence         *float64  `json:"confidence,omitempty"`
	Angle              *float64  `json:"angle,omitempty"`
	Elements           []Element `json:"elements,omitempty"`
}

// TextBlock is a paragraph-like group of lines. ML Kit reports no
// block-level confidence.
type TextBlock struct {
	Text               string  `json:"text"`
	BoundingBox        *Rect   `json:"boundingBox,omitempty"`
	CornerPoints       []Point `json:"cornerPoints,omitempty"`
	RecognizedLanguage string  `json:"recognizedLanguage,omitempty"`
	Lines              []Line  `json:"lines,omitempty"`
}

// Text is the root object returned by TextRecognizer.process.
type Text struct {
	Text       string      `json:"text"`
	TextBlocks []TextBlock `json:"textBlocks"`
}

// ImageSize is the decoded InputImage size reported by the glue.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the envelope the Android glue sends across the bridge.
type Result struct {
	Text      Text      `json:"text"`
	ImageSize ImageSize `json:"imageSize"`
	Rotation  int       `json:"rotationDegrees,omitempty"`
}

// Size returns the image size as geometry.Size.
func (r *Result) Size() geometry.Size {
	return geometry.Size{Width: float64(r.ImageSize.Width), Height: float64(r.ImageSize.Height)}
}

// ParseResult decodes the glue's JSON payload.
func ParseResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode ML Kit result: %w", err)
	}
	return &r, nil
}

// ToGeometryPoints converts ML Kit corner points.
func ToGeometryPoints(points []Point) []geometry.Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		out[i] = geometry.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}
