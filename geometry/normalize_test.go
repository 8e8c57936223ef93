package geometry

import (
	"math"
	"testing"

	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBottomLeft(t *testing.T) {
	size := Size{Width: 200, Height: 100}

	box, err := NormalizeBottomLeft(Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}, nil, size)
	require.NoError(t, err)

	// y' = (1 - 0.25 - 0.5) * 100 = 25
	assert.Equal(t, Rect{X: 50, Y: 25, Width: 100, Height: 50}, box.Rect)
	assert.Nil(t, box.CornerPoints)
}

func TestNormalizeBottomLeftFlipsY(t *testing.T) {
	size := Size{Width: 100, Height: 100}

	// A strip hugging the bottom edge in Vision space ends up at the bottom
	// of the image in unified space.
	box, err := NormalizeBottomLeft(Rect{X: 0, Y: 0, Width: 1, Height: 0.1}, nil, size)
	require.NoError(t, err)
	assert.InDelta(t, 90, box.Y, 1e-9)
	assert.InDelta(t, 10, box.Height, 1e-9)
}

func TestNormalizeBottomLeftCornerPoints(t *testing.T) {
	size := Size{Width: 200, Height: 100}
	corners := []Point{
		{X: 0.25, Y: 0.75}, // top-left
		{X: 0.75, Y: 0.75}, // top-right
		{X: 0.75, Y: 0.25}, // bottom-right
		{X: 0.25, Y: 0.25}, // bottom-left
	}

	box, err := NormalizeBottomLeft(Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}, corners, size)
	require.NoError(t, err)

	assert.Equal(t, []Point{
		{X: 50, Y: 25},
		{X: 150, Y: 25},
		{X: 150, Y: 75},
		{X: 50, Y: 75},
	}, box.CornerPoints)

	// The input slice is not aliased.
	assert.Equal(t, 0.25, corners[0].X)
}

func TestNormalizeRejectsZeroSizeImage(t *testing.T) {
	cases := []struct {
		name string
		size Size
	}{
		{"zero", Size{}},
		{"zero width", Size{Width: 0, Height: 10}},
		{"negative height", Size{Width: 10, Height: -1}},
		{"nan", Size{Width: math.NaN(), Height: 10}},
		{"inf", Size{Width: math.Inf(1), Height: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeBottomLeft(Rect{Width: 0.5, Height: 0.5}, nil, tc.size)
			require.Error(t, err)
			assert.Equal(t, ocrerror.ErrorInvalidImage, ocrerror.CodeOf(err))

			_, err = NormalizePixelTopLeft(Rect{Width: 5, Height: 5}, nil, tc.size)
			assert.Equal(t, ocrerror.ErrorInvalidImage, ocrerror.CodeOf(err))
		})
	}
}

func TestNormalizePixelTopLeftPassthrough(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	corners := []Point{{X: 10, Y: 20}, {X: 40, Y: 20}, {X: 40, Y: 60}, {X: 10, Y: 60}}

	box, err := NormalizePixelTopLeft(r, corners, Size{Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, r, box.Rect)
	assert.Equal(t, corners, box.CornerPoints)
}

func TestUnion(t *testing.T) {
	got := Union(
		Rect{X: 10, Y: 10, Width: 10, Height: 10},
		Rect{},
		Rect{X: 5, Y: 30, Width: 50, Height: 5},
	)
	assert.Equal(t, Rect{X: 5, Y: 10, Width: 50, Height: 25}, got)
	assert.Equal(t, Rect{}, Union())
	assert.Equal(t, Rect{}, Union(Rect{}, Rect{Width: -1, Height: 3}))
}

func TestAngle(t *testing.T) {
	angle, ok := Angle([]Point{{X: 0, Y: 0}, {X: 10, Y: 10}})
	require.True(t, ok)
	assert.InDelta(t, 45, angle, 1e-9)

	angle, ok = Angle([]Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}})
	require.True(t, ok)
	assert.InDelta(t, 0, angle, 1e-9)

	_, ok = Angle([]Point{{X: 1, Y: 1}})
	assert.False(t, ok)
	_, ok = Angle([]Point{{X: 1, Y: 1}, {X: 1, Y: 1}})
	assert.False(t, ok)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	assert.True(t, r.Contains(Point{X: 5, Y: 5}))
	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.False(t, r.Contains(Point{X: 11, Y: 5}))
	assert.Equal(t, Point{X: 5, Y: 5}, r.Center())
}
