package textextractor

import (
	"context"

	"github.com/dv00d00/expo-text-extractor/unified"
)

// TextBoundingBox is a region in pixel space with a top-left origin, on
// every platform.
type TextBoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RecognizedText is one detected region as returned by the detail calls.
type RecognizedText struct {
	Text        string          `json:"text"`
	Confidence  float64         `json:"confidence"`
	BoundingBox TextBoundingBox `json:"boundingBox"`
}

// Module is the call surface exposed to host applications.
type Module interface {
	ExtractTextFromImage(ctx context.Context, uri string) ([]string, error)
	ExtractTextFromImageData(ctx context.Context, data string) ([]string, error)
	ExtractTextFromImageWithDetails(ctx context.Context, uri string) ([]RecognizedText, error)
	ExtractTextFromImageDataWithDetails(ctx context.Context, data string) ([]RecognizedText, error)
	IsSupported() bool
}

func toBridge(regions []unified.RecognizedText) []RecognizedText {
	out := make([]RecognizedText, len(regions))
	for i, r := range regions {
		out[i] = RecognizedText{
			Text:       r.Text,
			Confidence: r.Confidence,
			BoundingBox: TextBoundingBox{
				X:      r.BoundingBox.X,
				Y:      r.BoundingBox.Y,
				Width:  r.BoundingBox.Width,
				Height: r.BoundingBox.Height,
			},
		}
	}
	return out
}
