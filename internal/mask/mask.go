// Package mask rasterizes freehand stroke paths into the black/white
// bitmap the inpainting model expects: white marks the region to repaint,
// black preserves the source image.
package mask

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"imagestudio/internal/domain"
)

// Mode selects what a stroke does to the mask.
type Mode string

const (
	ModeBrush  Mode = "brush"
	ModeEraser Mode = "eraser"
)

// Point is a canvas coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one pointer drag: a piecewise-linear path with a brush width.
// Brush strokes paint white; eraser strokes restore black.
type Stroke struct {
	Points []Point `json:"points"`
	Mode   Mode    `json:"mode"`
	Width  float64 `json:"width"`
}

const defaultStrokeWidth = 10

// Rasterize renders strokes onto an opaque black canvas in recorded order,
// so later strokes override earlier ones at overlapping pixels and an
// eraser only matters where something was painted before it.
func Rasterize(strokes []Stroke, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: mask dimensions must be positive, got %dx%d", domain.ErrInvalidInput, width, height)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	// NewGray zeroes the buffer, which already is the opaque black base.
	for _, s := range strokes {
		drawStroke(img, s)
	}
	return img, nil
}

func drawStroke(img *image.Gray, s Stroke) {
	if len(s.Points) == 0 {
		return
	}
	shade := color.Gray{Y: 255}
	if s.Mode == ModeEraser {
		shade = color.Gray{Y: 0}
	}
	w := s.Width
	if w <= 0 {
		w = defaultStrokeWidth
	}
	radius := w / 2
	if len(s.Points) == 1 {
		stampDisc(img, s.Points[0], radius, shade)
		return
	}
	for i := 1; i < len(s.Points); i++ {
		stampSegment(img, s.Points[i-1], s.Points[i], radius, shade)
	}
}

// stampSegment approximates a round-capped line by stamping discs at
// sub-pixel steps along the segment.
func stampSegment(img *image.Gray, from, to Point, radius float64, shade color.Gray) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	steps := int(math.Ceil(length * 2))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stampDisc(img, Point{X: from.X + dx*t, Y: from.Y + dy*t}, radius, shade)
	}
}

func stampDisc(img *image.Gray, center Point, radius float64, shade color.Gray) {
	if radius <= 0 {
		radius = 0.5
	}
	bounds := img.Bounds()
	minX := int(math.Floor(center.X - radius))
	maxX := int(math.Ceil(center.X + radius))
	minY := int(math.Floor(center.Y - radius))
	maxY := int(math.Ceil(center.Y + radius))
	rr := radius * radius
	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			ddx := float64(x) + 0.5 - center.X
			ddy := float64(y) + 0.5 - center.Y
			if ddx*ddx+ddy*ddy <= rr {
				img.SetGray(x, y, shade)
			}
		}
	}
}
