// Package tesseract describes the raw output of the Tesseract backend: one
// flat list of boxes per page-iterator level, each in Tesseract's reading
// order, in pixel space with a top-left origin.
package tesseract

import "github.com/dv00d00/expo-text-extractor/geometry"

// Level is a Tesseract page iterator level.
type Level string

const (
	LevelBlock  Level = "block"
	LevelLine   Level = "textline"
	LevelWord   Level = "word"
	LevelSymbol Level = "symbol"
)

// Box is one entry returned by GetBoundingBoxes. Confidence is Tesseract's
// 0-100 scale.
type Box struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Rect       geometry.Rect `json:"rect"`
}

// Result holds the boxes of every level for one image.
type Result struct {
	ImageSize geometry.Size `json:"imageSize"`
	Languages []string      `json:"languages,omitempty"`
	Blocks    []Box         `json:"blocks"`
	Lines     []Box         `json:"lines"`
	Words     []Box         `json:"words"`
	Symbols   []Box         `json:"symbols,omitempty"`
}

// Options configures one Tesseract run.
type Options struct {
	// Languages are traineddata names ("eng", "deu"); empty means "eng".
	Languages []string `json:"languages,omitempty"`
	// PageSegMode is Tesseract's PSM (0-13); nil keeps the engine default.
	PageSegMode *int `json:"pageSegMode,omitempty"`
	// Whitelist restricts recognized characters.
	Whitelist string `json:"whitelist,omitempty"`
	// Symbols asks for symbol-level boxes.
	Symbols bool `json:"symbols,omitempty"`
}
