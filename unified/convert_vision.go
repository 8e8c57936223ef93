package unified

import (
	"strings"
	"unicode/utf8"

	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/vision"
)

// FlatObservations documents the structural asymmetry between platforms:
// Vision does not group observations, and no grouping heuristic is applied,
// so every iOS observation becomes its own block holding exactly one line.
// Android results keep ML Kit's real block/line grouping.
const FlatObservations = true

// FromVision converts a Vision result. Each observation becomes one block
// and one line. Words are split from the top candidate on whitespace; they
// are boxed from the candidate's character boxes when the invoker supplied
// them and inherit the line box otherwise. Vision reports confidence per
// candidate only, so every level shares it.
func FromVision(res *vision.Result, opts OCROptions) (*OCRResult, error) {
	if res == nil {
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", "Vision returned no result", nil)
	}
	size := res.Size()

	blocks := make([]RecognizedTextBlock, 0, len(res.Observations))
	for i := range res.Observations {
		obs := &res.Observations[i]
		box, err := geometry.NormalizeBottomLeft(obs.BoundingBox.ToGeometry(), obs.Corners(), size)
		if err != nil {
			return nil, err
		}

		text, confidence := "", obs.Confidence
		var charBoxes []vision.CharacterBox
		if top, ok := obs.TopCandidate(); ok {
			text = top.String
			confidence = top.Confidence
			charBoxes = top.CharacterBoxes
		}

		line := RecognizedLine{
			Text:        text,
			Confidence:  confidence,
			BoundingBox: box,
		}
		if opts.detectOrientation() {
			if a, ok := geometry.Angle(box.CornerPoints); ok {
				line.Orientation = &Orientation{Angle: a}
			}
		}
		if opts.includeWords() {
			line.Words = visionWords(text, confidence, box, charBoxes, size, opts.includeCharacters())
		}

		blocks = append(blocks, RecognizedTextBlock{
			Text:        text,
			Confidence:  confidence,
			BoundingBox: box,
			Lines:       []RecognizedLine{line},
		})
	}

	out := finalize(blocks, size)
	out.Platform = IOSResult{Raw: res}
	return out, nil
}

func visionWords(text string, confidence float64, lineBox geometry.BoundingBox, charBoxes []vision.CharacterBox, size geometry.Size, includeChars bool) []RecognizedWord {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	// Character boxes are only usable when there is exactly one per
	// non-space rune of the candidate.
	usable := len(charBoxes) > 0 && len(charBoxes) == utf8.RuneCountInString(strings.Join(fields, ""))

	words := make([]RecognizedWord, 0, len(fields))
	next := 0
	for _, f := range fields {
		word := RecognizedWord{Text: f, Confidence: confidence, BoundingBox: geometry.BoundingBox{Rect: lineBox.Rect}}
		if usable {
			n := utf8.RuneCountInString(f)
			var rects []geometry.Rect
			var chars []RecognizedCharacter
			for _, cb := range charBoxes[next : next+n] {
				// size was validated by the observation's own normalization.
				b, _ := geometry.NormalizeBottomLeft(cb.BoundingBox.ToGeometry(), nil, size)
				rects = append(rects, b.Rect)
				chars = append(chars, RecognizedCharacter{Text: cb.Text, Confidence: confidence, BoundingBox: b})
			}
			next += n
			word.BoundingBox = geometry.BoundingBox{Rect: geometry.Union(rects...)}
			if includeChars {
				word.Characters = chars
			}
		}
		words = append(words, word)
	}
	return words
}
