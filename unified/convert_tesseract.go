package unified

import (
	"math"
	"strings"

	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/tesseract"
)

// FromTesseract converts a Tesseract result. Tesseract returns one flat list
// per iterator level, so the hierarchy is rebuilt by assigning each child to
// the parent that contains its center, falling back to the nearest parent.
// Confidences are rescaled from 0-100.
func FromTesseract(res *tesseract.Result, opts OCROptions) (*OCRResult, error) {
	if res == nil {
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", "Tesseract returned no result", nil)
	}
	size := res.ImageSize
	if len(res.Blocks) > 0 || len(res.Lines) > 0 {
		if _, err := geometry.NormalizePixelTopLeft(geometry.Rect{}, nil, size); err != nil {
			return nil, err
		}
	}

	parents := res.Blocks
	if len(parents) == 0 {
		parents = res.Lines
	}
	linesOf := groupBoxes(parents, res.Lines)
	wordsOf := groupBoxes(res.Lines, res.Words)
	symbolsOf := groupBoxes(res.Words, res.Symbols)

	blocks := make([]RecognizedTextBlock, 0, len(parents))
	for bi, b := range parents {
		block := RecognizedTextBlock{
			Confidence:  tesseractConfidence(b.Confidence),
			BoundingBox: geometry.BoundingBox{Rect: b.Rect},
		}
		for _, li := range linesOf[bi] {
			l := res.Lines[li]
			line := RecognizedLine{
				Text:        strings.TrimSpace(l.Text),
				Confidence:  tesseractConfidence(l.Confidence),
				BoundingBox: geometry.BoundingBox{Rect: l.Rect},
			}
			var words []RecognizedWord
			for _, wi := range wordsOf[li] {
				w := res.Words[wi]
				word := RecognizedWord{
					Text:        strings.TrimSpace(w.Text),
					Confidence:  tesseractConfidence(w.Confidence),
					BoundingBox: geometry.BoundingBox{Rect: w.Rect},
				}
				if opts.includeCharacters() {
					for _, si := range symbolsOf[wi] {
						s := res.Symbols[si]
						word.Characters = append(word.Characters, RecognizedCharacter{
							Text:        strings.TrimSpace(s.Text),
							Confidence:  tesseractConfidence(s.Confidence),
							BoundingBox: geometry.BoundingBox{Rect: s.Rect},
						})
					}
				}
				words = append(words, word)
			}
			if line.Text == "" {
				line.Text = joinWords(words)
			}
			if opts.includeWords() {
				line.Words = words
			}
			block.Lines = append(block.Lines, line)
		}
		block.Text = joinLines(block.Lines)
		if block.Text == "" {
			block.Text = strings.TrimSpace(b.Text)
		}
		if block.Lines == nil {
			block.Lines = []RecognizedLine{}
		}
		blocks = append(blocks, block)
	}

	out := finalize(blocks, size)
	out.Platform = TesseractResult{Raw: res}
	return out, nil
}

// tesseractConfidence rescales 0-100 to 0-1. Tesseract reports -1 for
// boxes it did not score.
func tesseractConfidence(c float64) float64 {
	if c < 0 || math.IsNaN(c) {
		return DefaultConfidence
	}
	if c > 100 {
		c = 100
	}
	return c / 100
}

// groupBoxes returns, per parent, the indexes of the children assigned to
// it. Children keep their original order within each parent.
func groupBoxes(parents, children []tesseract.Box) [][]int {
	out := make([][]int, len(parents))
	if len(parents) == 0 {
		return out
	}
	for ci, c := range children {
		center := c.Rect.Center()
		best, bestDist := -1, math.Inf(1)
		for pi, p := range parents {
			if p.Rect.Contains(center) {
				best = pi
				break
			}
			pc := p.Rect.Center()
			if d := math.Hypot(pc.X-center.X, pc.Y-center.Y); d < bestDist {
				best, bestDist = pi, d
			}
		}
		out[best] = append(out[best], ci)
	}
	return out
}
