package annotation

import (
	"context"
	"fmt"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// Mux routes images and video frames to Image and whole videos to Video.
type Mux struct {
	Image Annotator
	Video Annotator
}

func (m *Mux) route(kind domain.MediaKind) (Annotator, error) {
	var a Annotator
	switch kind {
	case domain.MediaImage, domain.MediaVideoFrame:
		a = m.Image
	case domain.MediaVideo:
		a = m.Video
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no backend for %s", ErrUnsupportedMedia, kind)
	}
	return a, nil
}

func (m *Mux) Annotate(ctx context.Context, media domain.Media) (<-chan Event, error) {
	a, err := m.route(media.Kind)
	if err != nil {
		return nil, err
	}
	return a.Annotate(ctx, media)
}
