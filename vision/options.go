package vision

// RecognitionLevel mirrors VNRequestTextRecognitionLevel.
type RecognitionLevel string

const (
	RecognitionLevelFast     RecognitionLevel = "fast"
	RecognitionLevelAccurate RecognitionLevel = "accurate"
)

// RequestOptions configures one VNRecognizeTextRequest.
type RequestOptions struct {
	RecognitionLevel             RecognitionLevel `json:"recognitionLevel"`
	UsesLanguageCorrection       bool             `json:"usesLanguageCorrection"`
	RecognitionLanguages         []string         `json:"recognitionLanguages,omitempty"`
	CustomWords                  []string         `json:"customWords,omitempty"`
	MinimumTextHeight            float64          `json:"minimumTextHeight,omitempty"`
	AutomaticallyDetectsLanguage bool             `json:"automaticallyDetectsLanguage,omitempty"`
	Revision                     int              `json:"revision,omitempty"`
	// MaxCandidates is how many topCandidates the invoker serializes.
	MaxCandidates int `json:"maxCandidates"`
	// CharacterBoxes asks the invoker to serialize per-character rects.
	CharacterBoxes bool `json:"characterBoxes,omitempty"`
}

// DefaultRequestOptions matches a bare VNRecognizeTextRequest.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{
		RecognitionLevel:       RecognitionLevelAccurate,
		UsesLanguageCorrection: true,
		MaxCandidates:          1,
	}
}
