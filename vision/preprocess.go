// Package vision prepares raster images for OCR.
//
// preprocess.go holds the atoms (decode, upscale, greyscale, encode); variants.go
// composes them into the named variants handed to OCR engines.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image preprocessing errors
var (
	ErrInvalidImage      = errors.New("vision: invalid image data")
	ErrInvalidDimensions = errors.New("vision: invalid dimensions")
	ErrEmptyImage        = errors.New("vision: empty image data")
)

// MinOCRWidth is the width below which sources are upscaled before OCR.
// Engines lose small glyphs on narrow phone photos and low-DPI scans.
const MinOCRWidth = 1000

// DecodeImage decodes PNG, JPEG, GIF, WebP, BMP or TIFF data.
// This is a pure function with no side effects.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrInvalidDimensions
	}

	return img, nil
}

// PrepareSource returns the image variants are derived from: an origin-anchored
// RGBA copy, upscaled 2x with Catmull-Rom when narrower than MinOCRWidth.
func PrepareSource(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scale := 1
	if width < MinOCRWidth {
		scale = 2
	}

	dst := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// Grayscale converts any image to an origin-anchored 8-bit grey image.
// This is a pure function with no side effects.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	// Transparent pixels read as paper, not ink.
	draw.Draw(gray, gray.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Over)
	return gray
}

// Clone copies img into a fresh RGBA buffer.
func Clone(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// EncodePNG serialises img for engines that take encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("vision: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
