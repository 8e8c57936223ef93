package geometry

import (
	"math"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
)

// NormalizePixelTopLeft maps a rect that is already in pixel space with a
// top-left origin (ML Kit, Tesseract). The geometry passes through untouched;
// the image size is still checked so both platforms fail the same way.
func NormalizePixelTopLeft(r Rect, corners []Point, size Size) (BoundingBox, error) {
	if err := checkSize(size); err != nil {
		return BoundingBox{}, err
	}
	box := BoundingBox{Rect: r}
	if len(corners) > 0 {
		box.CornerPoints = append([]Point(nil), corners...)
	}
	return box, nil
}

// NormalizeBottomLeft maps a Vision rect, normalized to [0,1] with a
// bottom-left origin, into unified pixel space:
//
//	x' = x * W
//	y' = (1 - y - h) * H
//	w' = w * W
//	h' = h * H
//
// Corner points get the same transform (px*W, (1-py)*H).
func NormalizeBottomLeft(r Rect, corners []Point, size Size) (BoundingBox, error) {
	if err := checkSize(size); err != nil {
		return BoundingBox{}, err
	}
	box := BoundingBox{Rect: Rect{
		X:      r.X * size.Width,
		Y:      (1 - r.Y - r.Height) * size.Height,
		Width:  r.Width * size.Width,
		Height: r.Height * size.Height,
	}}
	if len(corners) > 0 {
		box.CornerPoints = make([]Point, len(corners))
		for i, p := range corners {
			box.CornerPoints[i] = NormalizePointBottomLeft(p, size)
		}
	}
	return box, nil
}

// NormalizePointBottomLeft maps one normalized bottom-left point into pixel
// space. The caller is responsible for having checked size.
func NormalizePointBottomLeft(p Point, size Size) Point {
	return Point{X: p.X * size.Width, Y: (1 - p.Y) * size.Height}
}

func checkSize(size Size) error {
	if size.IsEmpty() || math.IsNaN(size.Width) || math.IsNaN(size.Height) ||
		math.IsInf(size.Width, 0) || math.IsInf(size.Height, 0) {
		return ocrerror.NewInvalidImageError("", "image has no usable pixel size", nil).
			WithDetail("width", size.Width).
			WithDetail("height", size.Height)
	}
	return nil
}
