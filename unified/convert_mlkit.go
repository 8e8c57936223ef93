package unified

import (
	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// FromMLKit converts an ML Kit result. Blocks, lines, elements and symbols
// map 1:1 onto blocks, lines, words and characters. Geometry passes through.
// An entity's confidence is the SDK value when present, otherwise the mean
// of its children's values, otherwise DefaultConfidence.
func FromMLKit(res *mlkit.Result, opts OCROptions) (*OCRResult, error) {
	if res == nil {
		return nil, ocrerror.New(ocrerror.ErrorProcessingFailed, "", "ML Kit returned no result", nil)
	}
	size := res.Size()
	c := mlkitConverter{size: size, opts: opts}

	blocks := make([]RecognizedTextBlock, 0, len(res.Text.TextBlocks))
	for _, b := range res.Text.TextBlocks {
		block, err := c.block(b)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	out := finalize(blocks, size)
	out.Platform = AndroidResult{Raw: res}
	return out, nil
}

type mlkitConverter struct {
	size geometry.Size
	opts OCROptions
}

func (c mlkitConverter) box(r *mlkit.Rect, corners []mlkit.Point, children []geometry.BoundingBox) (geometry.BoundingBox, error) {
	var rect geometry.Rect
	if r != nil {
		rect = r.ToGeometry()
	} else {
		rect = geometry.UnionBoxes(children...).Rect
	}
	return geometry.NormalizePixelTopLeft(rect, mlkit.ToGeometryPoints(corners), c.size)
}

func (c mlkitConverter) block(b mlkit.TextBlock) (RecognizedTextBlock, error) {
	lines := make([]RecognizedLine, 0, len(b.Lines))
	var boxes []geometry.BoundingBox
	var confs []float64
	var langs [][]DetectedLanguage
	for _, l := range b.Lines {
		line, native, err := c.line(l)
		if err != nil {
			return RecognizedTextBlock{}, err
		}
		lines = append(lines, line)
		boxes = append(boxes, line.BoundingBox)
		if native {
			confs = append(confs, line.Confidence)
		}
		langs = append(langs, line.Languages)
	}

	box, err := c.box(b.BoundingBox, b.CornerPoints, boxes)
	if err != nil {
		return RecognizedTextBlock{}, err
	}

	languages := reportedLanguages(b.RecognizedLanguage)
	if len(languages) == 0 {
		languages = mergeLanguages(langs...)
	}

	return RecognizedTextBlock{
		Text:        joinLines(lines),
		Confidence:  meanConfidence(confs),
		BoundingBox: box,
		Languages:   languages,
		Lines:       lines,
	}, nil
}

// line reports whether its confidence came from the SDK (directly or via
// words) so that block aggregation does not average fallbacks.
func (c mlkitConverter) line(l mlkit.Line) (RecognizedLine, bool, error) {
	words := make([]RecognizedWord, 0, len(l.Elements))
	var boxes []geometry.BoundingBox
	var confs []float64
	for _, e := range l.Elements {
		word, native, err := c.word(e)
		if err != nil {
			return RecognizedLine{}, false, err
		}
		words = append(words, word)
		boxes = append(boxes, word.BoundingBox)
		if native {
			confs = append(confs, word.Confidence)
		}
	}

	box, err := c.box(l.BoundingBox, l.CornerPoints, boxes)
	if err != nil {
		return RecognizedLine{}, false, err
	}

	line := RecognizedLine{
		Text:        l.Text,
		BoundingBox: box,
		Languages:   reportedLanguages(l.RecognizedLanguage),
	}
	if line.Text == "" {
		line.Text = joinWords(words)
	}

	native := true
	switch {
	case l.Confidence != nil:
		line.Confidence = *l.Confidence
	case len(confs) > 0:
		line.Confidence = meanConfidence(confs)
	default:
		line.Confidence = DefaultConfidence
		native = false
	}

	if c.opts.detectOrientation() {
		if l.Angle != nil {
			line.Orientation = &Orientation{Angle: *l.Angle}
		} else if a, ok := geometry.Angle(box.CornerPoints); ok {
			line.Orientation = &Orientation{Angle: a}
		}
	}
	if c.opts.includeWords() {
		line.Words = words
	}
	return line, native, nil
}

func (c mlkitConverter) word(e mlkit.Element) (RecognizedWord, bool, error) {
	var chars []RecognizedCharacter
	var boxes []geometry.BoundingBox
	var confs []float64
	for _, s := range e.Symbols {
		box, err := c.box(s.BoundingBox, s.CornerPoints, nil)
		if err != nil {
			return RecognizedWord{}, false, err
		}
		ch := RecognizedCharacter{Text: s.Text, BoundingBox: box, Confidence: DefaultConfidence}
		if s.Confidence != nil {
			ch.Confidence = *s.Confidence
			confs = append(confs, *s.Confidence)
		}
		chars = append(chars, ch)
		boxes = append(boxes, box)
	}

	box, err := c.box(e.BoundingBox, e.CornerPoints, boxes)
	if err != nil {
		return RecognizedWord{}, false, err
	}

	word := RecognizedWord{
		Text:        e.Text,
		BoundingBox: box,
		Languages:   reportedLanguages(e.RecognizedLanguage),
	}
	if word.Text == "" {
		word.Text = joinCharacters(chars)
	}

	native := true
	switch {
	case e.Confidence != nil:
		word.Confidence = *e.Confidence
	case len(confs) > 0:
		word.Confidence = meanConfidence(confs)
	default:
		word.Confidence = DefaultConfidence
		native = false
	}

	if c.opts.includeCharacters() {
		word.Characters = chars
	}
	return word, native, nil
}

// finalize fills the root fields shared by every converter.
func finalize(blocks []RecognizedTextBlock, size geometry.Size) *OCRResult {
	out := &OCRResult{
		Blocks:    blocks,
		Text:      joinBlocks(blocks),
		ImageSize: size,
	}
	if len(blocks) > 0 {
		out.Confidence = meanConfidence(blockConfidences(blocks))
	}
	var langs [][]DetectedLanguage
	for _, b := range blocks {
		langs = append(langs, b.Languages)
	}
	out.Languages = mergeLanguages(langs...)
	return out
}
