// Package vision mirrors the result and option shapes of Apple Vision's
// VNRecognizeTextRequest.
//
// All geometry is normalized to [0,1] with the origin in the bottom-left
// corner of the image. Vision does not group observations into blocks or
// lines; each observation is one detected text region.
package vision

import (
	"encoding/json"
	"fmt"

	"github.com/dv00d00/expo-text-extractor/geometry"
)

// CGPoint is a normalized point.
type CGPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CGRect is a normalized rect; X/Y locate the bottom-left corner.
type CGRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToGeometry returns the rect unchanged as a geometry.Rect (still normalized).
func (r CGRect) ToGeometry() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// CharacterBox is the rect Vision returns from
// VNRecognizedText.boundingBox(for:) for one character range.
type CharacterBox struct {
	Text        string `json:"text"`
	BoundingBox CGRect `json:"boundingBox"`
}

// RecognizedText is one candidate transcription of an observation.
type RecognizedText struct {
	String         string         `json:"string"`
	Confidence     float64        `json:"confidence"`
	CharacterBoxes []CharacterBox `json:"characterBoxes,omitempty"`
}

// RecognizedTextObservation is one detected text region.
type RecognizedTextObservation struct {
	UUID        string           `json:"uuid,omitempty"`
	BoundingBox CGRect           `json:"boundingBox"`
	TopLeft     *CGPoint         `json:"topLeft,omitempty"`
	TopRight    *CGPoint         `json:"topRight,omitempty"`
	BottomRight *CGPoint         `json:"bottomRight,omitempty"`
	BottomLeft  *CGPoint         `json:"bottomLeft,omitempty"`
	Confidence  float64          `json:"confidence"`
	Candidates  []RecognizedText `json:"candidates"`
}

// TopCandidate returns the best candidate, if any.
func (o *RecognizedTextObservation) TopCandidate() (RecognizedText, bool) {
	if len(o.Candidates) == 0 {
		return RecognizedText{}, false
	}
	return o.Candidates[0], true
}

// Corners returns the four corner points in top-left, top-right,
// bottom-right, bottom-left order, or nil unless all four are present.
func (o *RecognizedTextObservation) Corners() []geometry.Point {
	if o.TopLeft == nil || o.TopRight == nil || o.BottomRight == nil || o.BottomLeft == nil {
		return nil
	}
	return []geometry.Point{
		{X: o.TopLeft.X, Y: o.TopLeft.Y},
		{X: o.TopRight.X, Y: o.TopRight.Y},
		{X: o.BottomRight.X, Y: o.BottomRight.Y},
		{X: o.BottomLeft.X, Y: o.BottomLeft.Y},
	}
}

// ImageSize is the pixel size of the CGImage handed to Vision.
type ImageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is everything the Vision invoker returns for one request.
type Result struct {
	Observations []RecognizedTextObservation `json:"observations"`
	ImageSize    ImageSize                   `json:"imageSize"`
	Revision     int                         `json:"revision,omitempty"`
}

// Size returns the image size as geometry.Size.
func (r *Result) Size() geometry.Size {
	return geometry.Size{Width: r.ImageSize.Width, Height: r.ImageSize.Height}
}

// ParseResult decodes the invoker's JSON payload.
func ParseResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode Vision result: %w", err)
	}
	return &r, nil
}
