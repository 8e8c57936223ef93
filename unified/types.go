// Package unified defines the platform-independent recognition result and
// the pure converters that build it from each platform's native shape.
//
// The hierarchy is block ⊃ lines ⊃ words ⊃ characters. Children keep the
// order the native SDK returned them in, which is taken as reading order.
// A parent's text is the ordered concatenation of its children's text.
// Every value is built fresh per call and never mutated afterwards.
package unified

import (
	"strings"

	"github.com/dv00d00/expo-text-extractor/geometry"
)

// DefaultConfidence is used for any entity whose native SDK omitted a
// confidence and that has no children carrying one. ML Kit never reports
// block-level confidence and older ML Kit releases report none at all.
const DefaultConfidence = 0.5

// DetectedLanguage is an ISO 639-1 code with a confidence.
type DetectedLanguage struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// Orientation is the baseline rotation of a line, in degrees clockwise.
type Orientation struct {
	Angle float64 `json:"angle"`
}

// TextStyle is reserved for style detection. No current backend reports
// style, so it is always nil.
type TextStyle struct {
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// RecognizedCharacter is a single recognized symbol.
type RecognizedCharacter struct {
	Text        string               `json:"text"`
	Confidence  float64              `json:"confidence"`
	BoundingBox geometry.BoundingBox `json:"boundingBox"`
}

// RecognizedWord is a whitespace-delimited token.
type RecognizedWord struct {
	Text        string                `json:"text"`
	Confidence  float64               `json:"confidence"`
	BoundingBox geometry.BoundingBox  `json:"boundingBox"`
	Languages   []DetectedLanguage    `json:"languages,omitempty"`
	Characters  []RecognizedCharacter `json:"characters,omitempty"`
}

// RecognizedLine is a run of words on one baseline.
type RecognizedLine struct {
	Text        string               `json:"text"`
	Confidence  float64              `json:"confidence"`
	BoundingBox geometry.BoundingBox `json:"boundingBox"`
	Languages   []DetectedLanguage   `json:"languages,omitempty"`
	Orientation *Orientation         `json:"orientation,omitempty"`
	Style       *TextStyle           `json:"style,omitempty"`
	Words       []RecognizedWord     `json:"words,omitempty"`
}

// RecognizedTextBlock is a paragraph-like group of lines.
type RecognizedTextBlock struct {
	Text        string               `json:"text"`
	Confidence  float64              `json:"confidence"`
	BoundingBox geometry.BoundingBox `json:"boundingBox"`
	Languages   []DetectedLanguage   `json:"languages,omitempty"`
	Lines       []RecognizedLine     `json:"lines"`
}

// OCRResult is the root of a unified recognition result.
type OCRResult struct {
	Blocks     []RecognizedTextBlock `json:"blocks"`
	Text       string                `json:"text"`
	Confidence float64               `json:"confidence"`
	ImageSize  geometry.Size         `json:"imageSize"`
	Languages  []DetectedLanguage    `json:"languages,omitempty"`
	// Platform carries the untranslated native result.
	Platform PlatformResult `json:"platform,omitempty"`
}

// RecognizedText is the flat {text, confidence, boundingBox} record the
// detail calls return, one per detected region.
type RecognizedText struct {
	Text        string        `json:"text"`
	Confidence  float64       `json:"confidence"`
	BoundingBox geometry.Rect `json:"boundingBox"`
}

// Texts returns one string per detected region, in order.
func (r *OCRResult) Texts() []string {
	out := make([]string, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = b.Text
	}
	return out
}

// Regions returns one RecognizedText per detected region, in order.
func (r *OCRResult) Regions() []RecognizedText {
	out := make([]RecognizedText, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = RecognizedText{Text: b.Text, Confidence: b.Confidence, BoundingBox: b.BoundingBox.Rect}
	}
	return out
}

func joinLines(lines []RecognizedLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

func joinWords(words []RecognizedWord) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func joinCharacters(chars []RecognizedCharacter) string {
	var sb strings.Builder
	for _, c := range chars {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func joinBlocks(blocks []RecognizedTextBlock) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n")
}

// meanConfidence averages the values that were reported, falling back to
// DefaultConfidence when none were.
func meanConfidence(values []float64) float64 {
	if len(values) == 0 {
		return DefaultConfidence
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func blockConfidences(blocks []RecognizedTextBlock) []float64 {
	out := make([]float64, len(blocks))
	for i, b := range blocks {
		out[i] = b.Confidence
	}
	return out
}
