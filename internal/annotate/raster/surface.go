// Package raster renders annotation geometry onto pixel surfaces and
// implements the full-resolution export path. It is the only package that
// touches image buffers; all geometry comes from the annotate package.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/tenkenlab/tenken/backend/internal/annotate"
	"golang.org/x/image/vector"
)

// ImageSurface implements annotate.Surface on an RGBA raster using an
// antialiased scanline rasterizer.
type ImageSurface struct {
	dst *image.RGBA
}

// NewImageSurface wraps the destination raster.
func NewImageSurface(dst *image.RGBA) *ImageSurface {
	return &ImageSurface{dst: dst}
}

// StrokeCircle fills the ring between radius±width/2. A stroke wider than
// the diameter collapses into a filled disc.
func (s *ImageSurface) StrokeCircle(center annotate.Point, radius, width float64, col color.Color) {
	outer := radius + width/2
	inner := radius - width/2
	if outer <= 0 {
		return
	}

	z := s.newRasterizer()
	appendCircle(z, center, outer, false)
	if inner > 0 {
		// Opposite winding carves the hole.
		appendCircle(z, center, inner, true)
	}
	s.fill(z, col)
}

// StrokeLine fills the rectangle swept by a stroke of the given width
// between the two points.
func (s *ImageSurface) StrokeLine(from, to annotate.Point, width float64, col color.Color) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	px := -dy / length * width / 2
	py := dx / length * width / 2

	z := s.newRasterizer()
	z.MoveTo(float32(from.X+px), float32(from.Y+py))
	z.LineTo(float32(to.X+px), float32(to.Y+py))
	z.LineTo(float32(to.X-px), float32(to.Y-py))
	z.LineTo(float32(from.X-px), float32(from.Y-py))
	z.ClosePath()
	s.fill(z, col)
}

// FillTriangle fills the triangle spanned by the three points.
func (s *ImageSurface) FillTriangle(a, b, c annotate.Point, col color.Color) {
	z := s.newRasterizer()
	z.MoveTo(float32(a.X), float32(a.Y))
	z.LineTo(float32(b.X), float32(b.Y))
	z.LineTo(float32(c.X), float32(c.Y))
	z.ClosePath()
	s.fill(z, col)
}

func (s *ImageSurface) newRasterizer() *vector.Rasterizer {
	bounds := s.dst.Bounds()
	return vector.NewRasterizer(bounds.Dx(), bounds.Dy())
}

func (s *ImageSurface) fill(z *vector.Rasterizer, col color.Color) {
	z.Draw(s.dst, s.dst.Bounds(), image.NewUniform(col), image.Point{})
}

// appendCircle approximates a circle with line segments; the rasterizer's
// antialiasing hides the facets at any practical radius.
func appendCircle(z *vector.Rasterizer, center annotate.Point, radius float64, reverse bool) {
	segments := int(math.Max(32, radius/2))
	z.MoveTo(float32(center.X+radius), float32(center.Y))
	for i := 1; i <= segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		if reverse {
			angle = -angle
		}
		z.LineTo(
			float32(center.X+radius*math.Cos(angle)),
			float32(center.Y+radius*math.Sin(angle)),
		)
	}
	z.ClosePath()
}
