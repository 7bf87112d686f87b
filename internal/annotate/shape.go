package annotate

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the shape union.
type Kind string

const (
	// KindCircle is a stroked circle: center at From, radius the distance
	// from From to To.
	KindCircle Kind = "circle"
	// KindArrow is a stroked shaft with a filled triangular head at To.
	KindArrow Kind = "arrow"
)

// IsValid reports whether the kind is a recognized value.
func (k Kind) IsValid() bool {
	return k == KindCircle || k == KindArrow
}

// Shape is one committed annotation. Endpoints are normalized image
// coordinates and Width is expressed in image-space pixels, so the same
// shape is correct whether displayed small or exported at full resolution.
// Shapes are immutable once committed: append and undo only, no in-place
// edits.
type Shape struct {
	Kind  Kind      `json:"kind"`
	From  NormPoint `json:"from"`
	To    NormPoint `json:"to"`
	Color string    `json:"color"`
	Width float64   `json:"width"`
}

// ErrInvalidColor indicates a color string outside the #rrggbb form.
var ErrInvalidColor = errors.New("annotate: invalid color")

// ParseColor decodes a #rrggbb hex string into an opaque RGBA color.
func ParseColor(value string) (color.RGBA, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 7 || trimmed[0] != '#' {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}
	packed, err := strconv.ParseUint(trimmed[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}
	return color.RGBA{
		R: uint8(packed >> 16),
		G: uint8(packed >> 8),
		B: uint8(packed),
		A: 0xff,
	}, nil
}

// Space maps normalized shape geometry into a concrete coordinate space:
// the display canvas for the live preview, the image's own pixels for
// export.
type Space interface {
	Project(NormPoint) Point
	ProjectWidth(imageWidth float64) float64
}

// Surface is the rendering boundary. Implementations replay decomposed
// geometry onto any raster target.
type Surface interface {
	StrokeCircle(center Point, radius, width float64, col color.Color)
	StrokeLine(from, to Point, width float64, col color.Color)
	FillTriangle(a, b, c Point, col color.Color)
}

const (
	// Shafts shorter than this many projected pixels are not drawn.
	minShaftLength = 2
	minRadius      = 1

	headLengthFactor = 3.2
	headLengthFloor  = 14.0
	headWidthFactor  = 2.6
	headWidthFloor   = 12.0
)

// DrawShape decomposes one shape into surface primitives in the given
// space. Both the interactive preview and the export renderer go through
// here, so the two paths cannot diverge.
func DrawShape(s Surface, shape Shape, space Space) {
	col, err := ParseColor(shape.Color)
	if err != nil {
		col = color.RGBA{A: 0xff}
	}

	from := space.Project(shape.From)
	to := space.Project(shape.To)
	width := space.ProjectWidth(shape.Width)

	switch shape.Kind {
	case KindCircle:
		radius := math.Hypot(to.X-from.X, to.Y-from.Y)
		if radius < minRadius {
			return
		}
		s.StrokeCircle(from, radius, width, col)
	case KindArrow:
		drawArrow(s, from, to, width, col)
	}
}

// drawArrow renders a shaft stopping short of the end point, plus a filled
// triangular head whose tip sits exactly at the end point. Head dimensions
// scale with the stroke width but never shrink below a legible floor,
// expressed in the pixels of the space being rendered into.
func drawArrow(s Surface, from, to Point, width float64, col color.Color) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)
	if length < minShaftLength {
		return
	}

	headLen := math.Max(headLengthFloor, width*headLengthFactor)
	halfWidth := math.Max(headWidthFloor, width*headWidthFactor)
	if headLen > length {
		headLen = length
	}

	ux := dx / length
	uy := dy / length
	base := Point{X: to.X - ux*headLen, Y: to.Y - uy*headLen}

	s.StrokeLine(from, base, width, col)

	// Perpendicular to the shaft direction.
	px := -uy
	py := ux
	left := Point{X: base.X + px*halfWidth, Y: base.Y + py*halfWidth}
	right := Point{X: base.X - px*halfWidth, Y: base.Y - py*halfWidth}
	s.FillTriangle(to, left, right, col)
}
