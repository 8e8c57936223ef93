package mlkit

// Script selects which on-device recognizer the glue instantiates
// (TextRecognizerOptions, ChineseTextRecognizerOptions, ...).
type Script string

const (
	ScriptLatin      Script = "latin"
	ScriptChinese    Script = "chinese"
	ScriptDevanagari Script = "devanagari"
	ScriptJapanese   Script = "japanese"
	ScriptKorean     Script = "korean"
)

// Valid reports whether s names a recognizer ML Kit ships.
func (s Script) Valid() bool {
	switch s {
	case ScriptLatin, ScriptChinese, ScriptDevanagari, ScriptJapanese, ScriptKorean:
		return true
	}
	return false
}

// RecognizerOptions is everything the Android glue can configure. ML Kit has
// a single on-device model per script, no fast/accurate switch and no custom
// vocabulary.
type RecognizerOptions struct {
	Script Script `json:"script"`
}
