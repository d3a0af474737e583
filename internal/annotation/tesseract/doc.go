// Package tesseract recognizes text locally with the Tesseract engine via
// gosseract. It needs cgo and the Tesseract/Leptonica libraries; builds
// without cgo get a stub whose constructor returns ErrUnavailable.
//
// Images are run through imageprep before recognition unless preprocessing is
// disabled. Whole videos are not handled here; pair the engine with a
// frames.Sampler for that.
package tesseract

import "errors"

var ErrUnavailable = errors.New("tesseract support requires a cgo build")

// Options configure the engine.
type Options struct {
	Languages  []string
	Preprocess bool
}
