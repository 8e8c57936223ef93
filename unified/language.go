package unified

import (
	"strings"

	"golang.org/x/text/language"
)

// ReportedConfidence is attached to languages a vendor reported without a
// score (ML Kit's recognizedLanguage).
const ReportedConfidence = 1.0

// ISO6391 normalizes a BCP-47 tag to its ISO 639-1 code. It reports false
// for "und", empty input, and languages without a two-letter code.
func ISO6391(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, "und") {
		return "", false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	base, conf := t.Base()
	if conf == language.No {
		return "", false
	}
	code := base.String()
	if len(code) != 2 {
		return "", false
	}
	return code, true
}

// ISO6392 returns the three-letter ISO 639-2/T code Tesseract uses for its
// traineddata names ("en-US" -> "eng").
func ISO6392(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, "und") {
		return "", false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	base, conf := t.Base()
	if conf == language.No {
		return "", false
	}
	code := base.ISO3()
	if code == "" || code == "und" {
		return "", false
	}
	return code, true
}

// reportedLanguages turns a vendor tag into the unified list form.
func reportedLanguages(tag string) []DetectedLanguage {
	code, ok := ISO6391(tag)
	if !ok {
		return nil
	}
	return []DetectedLanguage{{Code: code, Confidence: ReportedConfidence}}
}

// mergeLanguages folds child languages into one list, keeping first-seen
// order and the highest confidence per code.
func mergeLanguages(lists ...[]DetectedLanguage) []DetectedLanguage {
	var out []DetectedLanguage
	index := map[string]int{}
	for _, list := range lists {
		for _, l := range list {
			if i, ok := index[l.Code]; ok {
				if l.Confidence > out[i].Confidence {
					out[i].Confidence = l.Confidence
				}
				continue
			}
			index[l.Code] = len(out)
			out = append(out, l)
		}
	}
	return out
}
