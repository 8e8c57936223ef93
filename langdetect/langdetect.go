// Package langdetect fills in document languages for results whose backend
// reports none (Vision, Tesseract).
package langdetect

import (
	"sort"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"github.com/dv00d00/expo-text-extractor/unified"
)

// Detector guesses the languages of a piece of text. hints are BCP-47 tags
// that restrict the candidate set; empty hints use CommonLanguages.
type Detector interface {
	Detect(text string, hints []string) []unified.DetectedLanguage
}

// CommonLanguages is the candidate set used when the caller gave no hints.
var CommonLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Swedish,
	lingua.Turkish,
	lingua.Russian,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

// Config tunes a LinguaDetector.
type Config struct {
	// MinConfidence drops candidates scoring below it.
	MinConfidence float64
	// MaxResults caps the returned list.
	MaxResults int
	// KeepAlive is how long a built detector stays cached (0 = forever).
	KeepAlive time.Duration
	// MaxDetectors bounds the number of cached candidate sets (0 = unlimited).
	MaxDetectors uint64
}

// DefaultConfig returns the settings used by New.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.1,
		MaxResults:    3,
		KeepAlive:     30 * time.Minute,
		MaxDetectors:  16,
	}
}

// LinguaDetector detects languages with lingua-go. Building a detector is
// expensive, so one is cached per candidate set.
type LinguaDetector struct {
	cfg    Config
	logger *zap.Logger
	cache  *ttlcache.Cache[string, lingua.LanguageDetector]
}

// New builds a LinguaDetector with DefaultConfig.
func New(logger *zap.Logger) *LinguaDetector {
	return NewWithConfig(DefaultConfig(), logger)
}

// NewWithConfig builds a LinguaDetector.
func NewWithConfig(cfg Config, logger *zap.Logger) *LinguaDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	keepAlive := cfg.KeepAlive
	if keepAlive == 0 {
		keepAlive = ttlcache.NoTTL
	}
	opts := []ttlcache.Option[string, lingua.LanguageDetector]{
		ttlcache.WithTTL[string, lingua.LanguageDetector](keepAlive),
	}
	if cfg.MaxDetectors > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, lingua.LanguageDetector](cfg.MaxDetectors))
	}
	return &LinguaDetector{
		cfg:    cfg,
		logger: logger,
		cache:  ttlcache.New(opts...),
	}
}

// Detect implements Detector.
func (d *LinguaDetector) Detect(text string, hints []string) []unified.DetectedLanguage {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	candidates := candidateSet(hints)
	detector := d.detectorFor(candidates)

	var out []unified.DetectedLanguage
	for _, cv := range detector.ComputeLanguageConfidenceValues(text) {
		if cv.Value() < d.cfg.MinConfidence {
			continue
		}
		code := strings.ToLower(cv.Language().IsoCode639_1().String())
		out = append(out, unified.DetectedLanguage{Code: code, Confidence: cv.Value()})
		if d.cfg.MaxResults > 0 && len(out) == d.cfg.MaxResults {
			break
		}
	}
	return out
}

func (d *LinguaDetector) detectorFor(languages []lingua.Language) lingua.LanguageDetector {
	key := cacheKey(languages)
	if item := d.cache.Get(key); item != nil {
		return item.Value()
	}
	d.logger.Debug("Building language detector", zap.String("languages", key))
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	d.cache.Set(key, detector, ttlcache.DefaultTTL)
	return detector
}

// candidateSet maps hints to lingua languages. lingua needs at least two
// candidates, so a narrower set is widened with CommonLanguages.
func candidateSet(hints []string) []lingua.Language {
	seen := map[lingua.Language]bool{}
	var out []lingua.Language
	for _, h := range hints {
		code, ok := unified.ISO6391(h)
		if !ok {
			continue
		}
		lang := lingua.GetLanguageFromIsoCode639_1(lingua.GetIsoCode639_1FromValue(strings.ToUpper(code)))
		if lang == lingua.Unknown || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	if len(out) >= 2 {
		return out
	}
	for _, lang := range CommonLanguages {
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	return out
}

func cacheKey(languages []lingua.Language) string {
	names := make([]string, len(languages))
	for i, l := range languages {
		names[i] = l.String()
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Fill returns res with document languages detected from its text when the
// backend reported none. res itself is not modified.
func Fill(res *unified.OCRResult, d Detector, hints []string) *unified.OCRResult {
	if res == nil || d == nil || len(res.Languages) > 0 || strings.TrimSpace(res.Text) == "" {
		return res
	}
	langs := d.Detect(res.Text, hints)
	if len(langs) == 0 {
		return res
	}
	out := *res
	out.Languages = langs
	return &out
}
