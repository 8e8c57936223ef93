//go:build tesseract && !android && !(darwin && cgo)

package backend

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/dv00d00/expo-text-extractor/geometry"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/tesseract"
	"github.com/dv00d00/expo-text-extractor/unified"
)

const supported = true

// TesseractBackend recognizes with a local Tesseract installation. A new
// client is created for every call and always closed.
type TesseractBackend struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractBackend constructs a Tesseract-backed recognizer.
func NewTesseractBackend() *TesseractBackend {
	return &TesseractBackend{clientFactory: gosseract.NewClient}
}

func newDefault() Backend { return NewTesseractBackend() }

// Platform implements Backend.
func (t *TesseractBackend) Platform() unified.Platform { return unified.PlatformTesseract }

// Recognize implements Backend.
func (t *TesseractBackend) Recognize(ctx context.Context, img Image, opts unified.OCROptions) (unified.PlatformResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close()

	topts := unified.ToTesseract(opts)
	res, err := recognizeWithClient(ctx, c, img, topts)
	if err != nil {
		return nil, ocrerror.NewProcessingFailedError("", string(unified.PlatformTesseract), err)
	}
	return unified.TesseractResult{Raw: res}, nil
}

func recognizeWithClient(ctx context.Context, c *gosseract.Client, img Image, opts tesseract.Options) (*tesseract.Result, error) {
	if len(img.Data) > 0 {
		if err := c.SetImageFromBytes(img.Data); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
	} else {
		if err := c.SetImage(img.Path); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
	}
	if len(opts.Languages) > 0 {
		if err := c.SetLanguage(opts.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if opts.PageSegMode != nil {
		if err := c.SetPageSegMode(gosseract.PageSegMode(*opts.PageSegMode)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if opts.Whitelist != "" {
		if err := c.SetWhitelist(opts.Whitelist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}

	res := &tesseract.Result{ImageSize: img.Size, Languages: opts.Languages}
	levels := []struct {
		level gosseract.PageIteratorLevel
		dst   *[]tesseract.Box
	}{
		{gosseract.RIL_BLOCK, &res.Blocks},
		{gosseract.RIL_TEXTLINE, &res.Lines},
		{gosseract.RIL_WORD, &res.Words},
	}
	if opts.Symbols {
		levels = append(levels, struct {
			level gosseract.PageIteratorLevel
			dst   *[]tesseract.Box
		}{gosseract.RIL_SYMBOL, &res.Symbols})
	}

	for _, l := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		boxes, err := c.GetBoundingBoxes(l.level)
		if err != nil {
			return nil, fmt.Errorf("bounding boxes: %w", err)
		}
		*l.dst = toBoxes(boxes)
	}
	return res, nil
}

func toBoxes(boxes []gosseract.BoundingBox) []tesseract.Box {
	out := make([]tesseract.Box, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, tesseract.Box{
			Text:       b.Word,
			Confidence: b.Confidence,
			Rect: geometry.Rect{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
		})
	}
	return out
}
