// Package annotate implements the photo annotation engine: the contain-fit
// coordinate transform between an image's intrinsic pixel space and an
// on-screen canvas, the vector shape model in normalized image coordinates,
// and the drawing session with its undo stack. Geometry is kept pure; the
// raster subpackage adapts it onto pixel surfaces so the live preview and
// the full-resolution export share one code path.
package annotate

import "math"

// Point is a position in canvas (display) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormPoint is a position expressed as fractions of the image's own width
// and height, independent of display scale. Components are kept in [0,1].
type NormPoint struct {
	X float64 `json:"nx"`
	Y float64 `json:"ny"`
}

// Transform is the contain-fit mapping between an image's pixel space and a
// canvas of a given size. The scaled image is centered; aspect ratio is
// preserved and nothing is cropped.
type Transform struct {
	ImageW  float64
	ImageH  float64
	CanvasW float64
	CanvasH float64
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewTransform computes the contain fit for the given image and canvas
// dimensions. Recompute whenever the canvas is resized so previously drawn
// shapes re-render correctly after a layout change.
func NewTransform(imageW, imageH, canvasW, canvasH float64) Transform {
	t := Transform{ImageW: imageW, ImageH: imageH, CanvasW: canvasW, CanvasH: canvasH}
	if imageW <= 0 || imageH <= 0 || canvasW <= 0 || canvasH <= 0 {
		t.Scale = 1
		return t
	}
	t.Scale = math.Min(canvasW/imageW, canvasH/imageH)
	t.OffsetX = (canvasW - imageW*t.Scale) / 2
	t.OffsetY = (canvasH - imageH*t.Scale) / 2
	return t
}

// ToNormalized inverts the fit transform and divides by the image
// dimensions. The result is clamped to [0,1] on both axes: a stroke
// starting off-image snaps to the image edge rather than being rejected.
func (t Transform) ToNormalized(p Point) NormPoint {
	if t.Scale == 0 || t.ImageW == 0 || t.ImageH == 0 {
		return NormPoint{}
	}
	return NormPoint{
		X: clamp01((p.X - t.OffsetX) / t.Scale / t.ImageW),
		Y: clamp01((p.Y - t.OffsetY) / t.Scale / t.ImageH),
	}
}

// ToCanvas applies the forward fit transform.
func (t Transform) ToCanvas(n NormPoint) Point {
	return Point{
		X: n.X*t.ImageW*t.Scale + t.OffsetX,
		Y: n.Y*t.ImageH*t.Scale + t.OffsetY,
	}
}

// Project implements Space: shapes render into canvas coordinates.
func (t Transform) Project(n NormPoint) Point {
	return t.ToCanvas(n)
}

// ProjectWidth converts an image-space stroke width to display pixels.
func (t Transform) ProjectWidth(imageWidth float64) float64 {
	return imageWidth * t.Scale
}

// ImageSpace renders shapes at the image's intrinsic resolution: normalized
// coordinates map straight to absolute pixels and stroke widths are used as
// stored.
type ImageSpace struct {
	W float64
	H float64
}

// Project implements Space.
func (s ImageSpace) Project(n NormPoint) Point {
	return Point{X: n.X * s.W, Y: n.Y * s.H}
}

// ProjectWidth implements Space: widths are already image-space pixels.
func (s ImageSpace) ProjectWidth(imageWidth float64) float64 {
	return imageWidth
}

// BackingStore returns the pixel dimensions of a canvas backing store for
// the given CSS size and device pixel ratio. The drawing context must then
// be scaled by the same ratio so strokes stay crisp on high-density
// displays.
func BackingStore(cssW, cssH, devicePixelRatio float64) (int, int) {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	return int(math.Round(cssW * devicePixelRatio)), int(math.Round(cssH * devicePixelRatio))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
