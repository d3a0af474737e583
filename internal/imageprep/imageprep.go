// Package imageprep prepares label photographs for local OCR: frost and
// glare on cryo-box labels read far better after grayscale, contrast and
// binarization.
package imageprep

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Options tune the preprocessing pipeline. Zero values select the defaults.
type Options struct {
	// MinWidth upscales narrower images; Tesseract struggles below ~1000px.
	MinWidth int
	// Contrast is passed to imaging.AdjustContrast (-100..100).
	Contrast float64
	// Threshold is the binarization cut-off (0..255).
	Threshold uint8
}

func (o Options) withDefaults() Options {
	if o.MinWidth <= 0 {
		o.MinWidth = 1200
	}
	if o.Contrast == 0 {
		o.Contrast = 30
	}
	if o.Threshold == 0 {
		o.Threshold = 140
	}
	return o
}

// ForOCR decodes data (JPEG, PNG, GIF or WebP), honours EXIF orientation,
// upscales small images, converts to high-contrast black and white and
// returns the result PNG-encoded.
func ForOCR(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() < opts.MinWidth {
		img = imaging.Resize(img, opts.MinWidth, 0, imaging.Lanczos)
	}
	var prepared image.Image = imaging.AdjustContrast(imaging.Grayscale(img), opts.Contrast)
	prepared = segment.Threshold(prepared, opts.Threshold)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
