//go:build !cgo

package tesseract

import (
	"context"
	"log/slog"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
)

type Engine struct{}

func New(Options, *slog.Logger) (*Engine, error) {
	return nil, ErrUnavailable
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Annotate(context.Context, domain.Media) (<-chan annotation.Event, error) {
	return nil, ErrUnavailable
}
