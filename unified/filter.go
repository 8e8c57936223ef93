package unified

// ApplyMinConfidence returns a copy of res without the entities whose
// confidence is below min. res is never modified; with min <= 0 it is
// returned as is.
//
// Filtering runs bottom-up. An entity without children is judged by its own
// confidence. A parent is kept when at least one child is kept, whatever its
// own score, since block scores (and line scores when ML Kit omits them) are
// averages of their children. When children were dropped the parent is
// rebuilt from the survivors. Characters are never judged on their own:
// they stay with their word. Order is preserved.
func ApplyMinConfidence(res *OCRResult, min float64) *OCRResult {
	if res == nil || min <= 0 {
		return res
	}

	out := *res
	out.Blocks = make([]RecognizedTextBlock, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		if kept, ok := filterBlock(b, min); ok {
			out.Blocks = append(out.Blocks, kept)
		}
	}

	out.Text = joinBlocks(out.Blocks)
	out.Confidence = 0
	if len(out.Blocks) > 0 {
		out.Confidence = meanConfidence(blockConfidences(out.Blocks))
	}
	langs := make([][]DetectedLanguage, 0, len(out.Blocks))
	for _, b := range out.Blocks {
		langs = append(langs, b.Languages)
	}
	out.Languages = mergeLanguages(langs...)
	return &out
}

func filterBlock(b RecognizedTextBlock, min float64) (RecognizedTextBlock, bool) {
	if len(b.Lines) == 0 {
		return b, b.Confidence >= min
	}
	lines := make([]RecognizedLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		if kept, ok := filterLine(l, min); ok {
			lines = append(lines, kept)
		}
	}
	if len(lines) == 0 {
		return b, false
	}
	if !sameLines(lines, b.Lines) {
		b.Lines = lines
		b.Text = joinLines(lines)
		b.Confidence = meanConfidence(lineConfidences(lines))
		b.Languages = survivingLanguages(b.Languages, lineLanguages(lines))
	}
	return b, true
}

func filterLine(l RecognizedLine, min float64) (RecognizedLine, bool) {
	if len(l.Words) == 0 {
		return l, l.Confidence >= min
	}
	words := make([]RecognizedWord, 0, len(l.Words))
	for _, w := range l.Words {
		if w.Confidence >= min {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return l, false
	}
	if len(words) != len(l.Words) {
		l.Words = words
		l.Text = joinWords(words)
		l.Confidence = meanConfidence(wordConfidences(words))
		l.Languages = survivingLanguages(l.Languages, wordLanguages(words))
	}
	return l, true
}

// sameLines reports whether filtering left the lines untouched.
func sameLines(kept, orig []RecognizedLine) bool {
	if len(kept) != len(orig) {
		return false
	}
	for i := range kept {
		if len(kept[i].Words) != len(orig[i].Words) {
			return false
		}
	}
	return true
}

// survivingLanguages prefers the languages of the kept children and falls
// back to the parent's own list when the children carry none.
func survivingLanguages(own []DetectedLanguage, children [][]DetectedLanguage) []DetectedLanguage {
	if merged := mergeLanguages(children...); len(merged) > 0 {
		return merged
	}
	return own
}

func lineLanguages(lines []RecognizedLine) [][]DetectedLanguage {
	out := make([][]DetectedLanguage, len(lines))
	for i, l := range lines {
		out[i] = l.Languages
	}
	return out
}

func wordLanguages(words []RecognizedWord) [][]DetectedLanguage {
	out := make([][]DetectedLanguage, len(words))
	for i, w := range words {
		out[i] = w.Languages
	}
	return out
}

func lineConfidences(lines []RecognizedLine) []float64 {
	out := make([]float64, len(lines))
	for i, l := range lines {
		out[i] = l.Confidence
	}
	return out
}

func wordConfidences(words []RecognizedWord) []float64 {
	out := make([]float64, len(words))
	for i, w := range words {
		out[i] = w.Confidence
	}
	return out
}
