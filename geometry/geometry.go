// Package geometry holds the coordinate types shared by every result shape
// and the normalizer that maps platform coordinates into unified pixel space.
//
// Unified space is pixels with the origin in the upper-left corner of the
// source image, Y growing downwards.
package geometry

import "math"

// Point is an image-relative coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the pixel size of a source image.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether either dimension is non-positive.
func (s Size) IsEmpty() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is a four-number region.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty reports whether the rect has non-positive dimensions.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// BoundingBox locates a text entity. CornerPoints is set only when the
// source reported a rotated quadrilateral, in top-left, top-right,
// bottom-right, bottom-left order.
type BoundingBox struct {
	Rect
	CornerPoints []Point `json:"cornerPoints,omitempty"`
}

// Union returns the smallest rect covering every input. Empty rects are
// skipped; with no non-empty input the zero Rect is returned.
func Union(rects ...Rect) Rect {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	seen := false
	for _, r := range rects {
		if r.IsEmpty() {
			continue
		}
		seen = true
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	if !seen {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// UnionBoxes is Union over the rects of the given boxes. Corner points are
// not carried over.
func UnionBoxes(boxes ...BoundingBox) BoundingBox {
	rects := make([]Rect, len(boxes))
	for i, b := range boxes {
		rects[i] = b.Rect
	}
	return BoundingBox{Rect: Union(rects...)}
}

// Angle returns the baseline angle in degrees of a quadrilateral given in
// top-left, top-right, bottom-right, bottom-left order. Positive angles
// rotate clockwise in unified (Y-down) space.
func Angle(corners []Point) (float64, bool) {
	if len(corners) < 2 {
		return 0, false
	}
	dx := corners[1].X - corners[0].X
	dy := corners[1].Y - corners[0].Y
	if dx == 0 && dy == 0 {
		return 0, false
	}
	return math.Atan2(dy, dx) * 180 / math.Pi, true
}
