//go:build cgo

package tesseract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/imageprep"
)

type Engine struct {
	opts          Options
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Engine, error) {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"eng"}
	}
	return &Engine{opts: opts, clientFactory: gosseract.NewClient, logger: logger}, nil
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Annotate(ctx context.Context, media domain.Media) (<-chan annotation.Event, error) {
	if media.Kind != domain.MediaImage && media.Kind != domain.MediaVideoFrame {
		return nil, fmt.Errorf("%w: %s", annotation.ErrUnsupportedMedia, media.Kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := media.Data
	if e.opts.Preprocess {
		prepared, err := imageprep.ForOCR(data, imageprep.Options{})
		if err != nil {
			// Fall back to the original bytes; Tesseract may still decode them.
			e.logger.Warn("image preprocessing failed", "name", media.Name, "error", err)
		} else {
			data = prepared
		}
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.opts.Languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if text == "" {
		return annotation.Batch(nil), nil
	}
	return annotation.Batch([]string{text}), nil
}
