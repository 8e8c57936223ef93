package unified

import (
	"golang.org/x/text/language"

	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/tesseract"
	"github.com/dv00d00/expo-text-extractor/vision"
)

// ToMLKit maps options onto ML Kit. Only the recognizer script is
// configurable: RecognitionLevel, CustomWords and UseLanguageCorrection have
// no ML Kit equivalent and are ignored without error. MinConfidence is never
// enforced natively; see ApplyMinConfidence.
func ToMLKit(o OCROptions) mlkit.RecognizerOptions {
	opts := mlkit.RecognizerOptions{Script: mlkit.ScriptLatin}
	if len(o.Languages) > 0 {
		opts.Script = scriptFor(o.Languages[0])
	}
	if a := o.Platform.Android; a != nil && a.Script != "" {
		opts.Script = a.Script
	}
	return opts
}

var (
	scriptHans = language.MustParseScript("Hans")
	scriptHant = language.MustParseScript("Hant")
	scriptDeva = language.MustParseScript("Deva")
	scriptJpan = language.MustParseScript("Jpan")
	scriptKore = language.MustParseScript("Kore")
	scriptHang = language.MustParseScript("Hang")
)

func scriptFor(tag string) mlkit.Script {
	t, err := language.Parse(tag)
	if err != nil {
		return mlkit.ScriptLatin
	}
	s, _ := t.Script()
	switch s {
	case scriptHans, scriptHant:
		return mlkit.ScriptChinese
	case scriptDeva:
		return mlkit.ScriptDevanagari
	case scriptJpan:
		return mlkit.ScriptJapanese
	case scriptKore, scriptHang:
		return mlkit.ScriptKorean
	default:
		return mlkit.ScriptLatin
	}
}

// ToVision maps options onto a VNRecognizeTextRequest.
func ToVision(o OCROptions) vision.RequestOptions {
	opts := vision.DefaultRequestOptions()
	if o.RecognitionLevel == RecognitionLevelFast {
		opts.RecognitionLevel = vision.RecognitionLevelFast
	}
	opts.UsesLanguageCorrection = o.languageCorrection()
	for _, l := range o.Languages {
		if t, err := language.Parse(l); err == nil {
			opts.RecognitionLanguages = append(opts.RecognitionLanguages, t.String())
		}
	}
	if len(o.CustomWords) > 0 {
		opts.CustomWords = append([]string(nil), o.CustomWords...)
	}
	opts.CharacterBoxes = o.includeCharacters() || o.includeWords()
	if i := o.Platform.IOS; i != nil {
		opts.Revision = i.Revision
		opts.MinimumTextHeight = i.MinimumTextHeight
		if i.AutomaticallyDetectsLanguage != nil {
			opts.AutomaticallyDetectsLanguage = *i.AutomaticallyDetectsLanguage
		}
	}
	return opts
}

// ToTesseract maps options onto a Tesseract run. Languages become
// traineddata names; RecognitionLevel and CustomWords are ignored.
func ToTesseract(o OCROptions) tesseract.Options {
	var opts tesseract.Options
	for _, l := range o.Languages {
		if code, ok := ISO6392(l); ok {
			opts.Languages = append(opts.Languages, code)
		}
	}
	opts.Symbols = o.includeCharacters()
	if t := o.Platform.Tesseract; t != nil {
		opts.PageSegMode = t.PageSegMode
		opts.Whitelist = t.Whitelist
	}
	return opts
}
