package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/tenkenlab/tenken/backend/internal/annotate"
)

func solidImage(w, h int, col color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, col)
		}
	}
	return img
}

func TestExportPreservesIntrinsicDimensions(t *testing.T) {
	sizes := []struct{ w, h int }{{640, 480}, {123, 457}, {1920, 1080}}
	shapes := []annotate.Shape{
		{Kind: annotate.KindCircle, Color: "#e53935", Width: 8, From: annotate.NormPoint{X: 0.5, Y: 0.5}, To: annotate.NormPoint{X: 0.7, Y: 0.5}},
		{Kind: annotate.KindArrow, Color: "#1e88e5", Width: 6, From: annotate.NormPoint{X: 0.1, Y: 0.1}, To: annotate.NormPoint{X: 0.8, Y: 0.8}},
	}

	for _, size := range sizes {
		source := solidImage(size.w, size.h, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		payload, err := Export(source, shapes, 0)
		if err != nil {
			t.Fatalf("export failed for %dx%d: %v", size.w, size.h, err)
		}
		decoded, err := jpeg.Decode(bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("exported payload is not decodable JPEG: %v", err)
		}
		bounds := decoded.Bounds()
		if bounds.Dx() != size.w || bounds.Dy() != size.h {
			t.Fatalf("expected %dx%d output, got %dx%d", size.w, size.h, bounds.Dx(), bounds.Dy())
		}
	}
}

func TestExportBurnsShapesIn(t *testing.T) {
	source := solidImage(200, 200, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	shapes := []annotate.Shape{
		{Kind: annotate.KindCircle, Color: "#ff0000", Width: 10, From: annotate.NormPoint{X: 0.5, Y: 0.5}, To: annotate.NormPoint{X: 0.75, Y: 0.5}},
	}

	payload, err := Export(source, shapes, 92)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// Radius is 50px: the rightmost ring crossing sits near (150,100) and
	// should be strongly red; the center should still be white.
	r, g, b, _ := decoded.At(150, 100).RGBA()
	if r>>8 < 200 || g>>8 > 100 || b>>8 > 100 {
		t.Fatalf("expected red stroke at ring, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = decoded.At(100, 100).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b>>8 < 200 {
		t.Fatalf("expected untouched white center, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestExportWidthIsImageSpace(t *testing.T) {
	// The same shape list exported twice must not depend on any display
	// size: stroke extents derive only from stored image-space widths.
	source := solidImage(400, 400, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	shapes := []annotate.Shape{
		{Kind: annotate.KindArrow, Color: "#0000ff", Width: 12, From: annotate.NormPoint{X: 0.1, Y: 0.5}, To: annotate.NormPoint{X: 0.9, Y: 0.5}},
	}

	payload, err := Export(source, shapes, 92)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// Shaft runs y=200, width 12: 5px above the center line must be blue,
	// 12px above must be white.
	_, _, b, _ := decoded.At(120, 195).RGBA()
	if b>>8 < 150 {
		t.Fatalf("expected blue shaft coverage, got b=%d", b>>8)
	}
	r, g, b2, _ := decoded.At(120, 188).RGBA()
	if r>>8 < 200 || g>>8 < 200 || b2>>8 < 200 {
		t.Fatalf("expected white outside the stroke, got r=%d g=%d b=%d", r>>8, g>>8, b2>>8)
	}
}

func TestExportPayloadRoundTrip(t *testing.T) {
	source := solidImage(64, 48, color.RGBA{R: 10, G: 200, B: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, source); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}

	payload, err := ExportPayload(buf.Bytes(), nil, 92)
	if err != nil {
		t.Fatalf("export payload failed: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("output should be JPEG: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Fatalf("unexpected output size %v", decoded.Bounds())
	}

	if _, err := ExportPayload([]byte("not an image"), nil, 92); err == nil {
		t.Fatalf("expected error for undecodable payload")
	}
}

func TestStrokeCirclePaintsRingNotDisc(t *testing.T) {
	dst := solidImage(100, 100, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	surface := NewImageSurface(dst)
	surface.StrokeCircle(annotate.Point{X: 50, Y: 50}, 30, 6, color.RGBA{B: 255, A: 255})

	if c := dst.RGBAAt(50, 50); c.B != 255 || c.R != 255 {
		t.Fatalf("disc interior should stay white, got %#v", c)
	}
	if c := dst.RGBAAt(80, 50); c.B != 255 || c.R > 100 {
		t.Fatalf("ring should be blue at radius, got %#v", c)
	}
}
