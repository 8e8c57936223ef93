package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/backend"
	"github.com/dv00d00/expo-text-extractor/mlkit"
	"github.com/dv00d00/expo-text-extractor/unified"
)

func f64(v float64) *float64 { return &v }

// useFakeBackend routes every command to a fixed ML Kit answer and records
// the options the extractor was built with.
func useFakeBackend(t *testing.T) *unified.OCROptions {
	t.Helper()
	seen := &unified.OCROptions{}
	fake := backend.Func{
		Name: unified.PlatformAndroid,
		Fn: func(ctx context.Context, img backend.Image, opts unified.OCROptions) (unified.PlatformResult, error) {
			return unified.AndroidResult{Raw: &mlkit.Result{
				ImageSize: mlkit.ImageSize{Width: int(img.Size.Width), Height: int(img.Size.Height)},
				Text: mlkit.Text{TextBlocks: []mlkit.TextBlock{
					{
						BoundingBox: &mlkit.Rect{Left: 0, Top: 0, Right: 40, Bottom: 10},
						Lines: []mlkit.Line{{
							Text:        "Hello",
							BoundingBox: &mlkit.Rect{Left: 0, Top: 0, Right: 40, Bottom: 10},
							Confidence:  f64(0.9),
						}},
					},
					{
						BoundingBox: &mlkit.Rect{Left: 0, Top: 20, Right: 40, Bottom: 30},
						Lines: []mlkit.Line{{
							Text:        "noise",
							BoundingBox: &mlkit.Rect{Left: 0, Top: 20, Right: 40, Bottom: 30},
							Confidence:  f64(0.2),
						}},
					},
				}},
			}}, nil
		},
	}

	orig := newExtractor
	newExtractor = func(logger *zap.Logger, opts unified.OCROptions) *textextractor.Extractor {
		*seen = opts
		return textextractor.New(
			textextractor.WithLogger(logger),
			textextractor.WithOptions(opts),
			textextractor.WithBackend(fake),
			textextractor.WithLanguageDetector(nil),
		)
	}
	t.Cleanup(func() { newExtractor = orig })
	return seen
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 32))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	seen := useFakeBackend(t)
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	b := writePNG(t, dir, "b.png")

	out, err := execute(t, "extract", "--languages", "de,en", "--min-confidence", "0.5", "--parallel", "2", a, b)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Source)
	assert.Equal(t, []string{"Hello"}, results[0].Texts)
	assert.Equal(t, b, results[1].Source)

	assert.Equal(t, []string{"de", "en"}, seen.Languages)
	assert.Equal(t, 0.5, seen.Threshold())
}

func TestExtractCommandBase64AndFailures(t *testing.T) {
	useFakeBackend(t)
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png")
	missing := filepath.Join(dir, "missing.png")

	out, err := execute(t, "extract", "--base64", good, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 images failed")

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Equal(t, []string{"Hello", "noise"}, results[0].Texts)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, "INVALID_IMAGE", string(results[1].Error.Code))
}

func TestDetailsCommand(t *testing.T) {
	useFakeBackend(t)
	path := writePNG(t, t.TempDir(), "a.png")

	out, err := execute(t, "details", path)
	require.NoError(t, err)

	var results []fileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results[0].Regions, 2)
	assert.Equal(t, textextractor.TextBoundingBox{X: 0, Y: 20, Width: 40, Height: 10}, results[0].Regions[1].BoundingBox)
	assert.Equal(t, 0.2, results[0].Regions[1].Confidence)
}

func TestRecognizeCommand(t *testing.T) {
	useFakeBackend(t)
	path := writePNG(t, t.TempDir(), "a.png")

	out, err := execute(t, "recognize", "--level", "fast", path)
	require.NoError(t, err)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Hello\nnoise", res["text"])
	assert.Len(t, res["blocks"], 2)
}

func TestRecognizeCommandRejectsBadOptions(t *testing.T) {
	useFakeBackend(t)
	path := writePNG(t, t.TempDir(), "a.png")

	_, err := execute(t, "recognize", "--level", "slow", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROCESSING_FAILED")
}

func TestSupportedCommand(t *testing.T) {
	useFakeBackend(t)

	out, err := execute(t, "supported")
	require.NoError(t, err)
	assert.JSONEq(t, `{"supported": true, "platform": "android"}`, out)
}

func TestConfigFileAndEnv(t *testing.T) {
	seen := useFakeBackend(t)
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png")
	cfg := filepath.Join(dir, "textextract.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("ocr:\n  min_confidence: 0.7\n"), 0o600))
	t.Setenv("TEXTEXTRACT_OCR_LEVEL", "accurate")

	_, err := execute(t, "extract", "--config", cfg, path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, seen.Threshold())
	assert.Equal(t, unified.RecognitionLevelAccurate, seen.RecognitionLevel)
}

func TestJobFor(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png")

	job, err := jobFor(path, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(job.ImageURI, "file://"))
	assert.True(t, strings.HasSuffix(job.ImageURI, "/a.png"))

	job, err = jobFor(path, true)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ImageData)
	assert.Empty(t, job.ImageURI)

	job, err = jobFor("https://example.com/a.png", true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", job.ImageURI)

	_, err = jobFor(filepath.Join(dir, "missing.png"), true)
	assert.Error(t, err)
}
