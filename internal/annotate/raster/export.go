package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/tenkenlab/tenken/backend/internal/annotate"
	xdraw "golang.org/x/image/draw"
)

// DefaultJPEGQuality matches the interactive editor's save quality.
const DefaultJPEGQuality = 92

// DecodeImage decodes an encoded photo payload (JPEG, PNG or GIF).
func DecodeImage(payload []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

// Export flattens the shape list onto the source image at its original
// resolution and encodes the result as JPEG. The output dimensions always
// equal the source's intrinsic dimensions, independent of whatever canvas
// size the shapes were drawn on: normalized coordinates map straight to
// absolute pixels and stroke widths are already image-space.
func Export(source image.Image, shapes []annotate.Shape, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	bounds := source.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), source, bounds.Min, xdraw.Src)

	surface := NewImageSurface(dst)
	space := annotate.ImageSpace{W: float64(bounds.Dx()), H: float64(bounds.Dy())}
	for _, shape := range shapes {
		annotate.DrawShape(surface, shape, space)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode annotated photo: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPayload decodes an encoded photo, burns the shapes in, and returns
// the flattened JPEG. An empty shape list passes the payload through
// re-encoded, which keeps the output format uniform.
func ExportPayload(payload []byte, shapes []annotate.Shape, quality int) ([]byte, error) {
	img, err := DecodeImage(payload)
	if err != nil {
		return nil, err
	}
	return Export(img, shapes, quality)
}
