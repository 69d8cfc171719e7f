package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	"go-catfood-scanner/pkg/models"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// encodeCapture decodes a frame, applies zoom and frame crop, and re-encodes it as JPEG
func encodeCapture(frame []byte, opts models.CaptureOptions) ([]byte, image.Rectangle, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	if opts.Zoom != nil && *opts.Zoom > 1 {
		bounds = zoomRect(bounds, *opts.Zoom)
	}
	if opts.CropToFrame && opts.Region != nil {
		bounds = regionRect(bounds, *opts.Region)
	}
	if bounds.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("capture region is empty")
	}
	if bounds != img.Bounds() {
		sub, ok := img.(subImager)
		if !ok {
			return nil, image.Rectangle{}, fmt.Errorf("frame format does not support cropping")
		}
		img = sub.SubImage(bounds)
	}

	quality := int(math.Round(opts.Quality * 100))
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to encode photo: %w", err)
	}
	return buf.Bytes(), bounds, nil
}

// zoomRect keeps the centered 1/zoom portion of r
func zoomRect(r image.Rectangle, zoom float64) image.Rectangle {
	w := int(float64(r.Dx()) / zoom)
	h := int(float64(r.Dy()) / zoom)
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// regionRect maps a fractional region onto r, clamped to r
func regionRect(r image.Rectangle, region models.FrameRegion) image.Rectangle {
	x0 := r.Min.X + int(clamp01(region.X)*float64(r.Dx()))
	y0 := r.Min.Y + int(clamp01(region.Y)*float64(r.Dy()))
	x1 := r.Min.X + int(clamp01(region.X+region.Width)*float64(r.Dx()))
	y1 := r.Min.Y + int(clamp01(region.Y+region.Height)*float64(r.Dy()))
	return image.Rect(x0, y0, x1, y1).Intersect(r)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
