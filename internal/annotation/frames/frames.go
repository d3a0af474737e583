// Package frames recognizes text in a video by sampling every Nth frame and
// running each sampled frame through an image annotator, in order.
package frames

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
)

// Extractor decodes video and calls emit with every stride-th frame as PNG
// bytes, in playback order. Returning an error from emit stops extraction.
type Extractor interface {
	Extract(ctx context.Context, video domain.Media, stride int, emit func(frame []byte) error) error
}

// Sampler adapts an image annotator to whole videos.
type Sampler struct {
	frames Extractor
	images annotation.Annotator
	stride int
	logger *slog.Logger
}

func NewSampler(frames Extractor, images annotation.Annotator, stride int, logger *slog.Logger) *Sampler {
	if stride < 1 {
		stride = 1
	}
	return &Sampler{frames: frames, images: images, stride: stride, logger: logger}
}

func (s *Sampler) Name() string {
	return "frames+" + annotation.Name(s.images, domain.MediaVideoFrame)
}

// Annotate streams one event per frame that produced text. A frame whose OCR
// fails is logged and skipped; extraction failures end the stream with an
// error event.
func (s *Sampler) Annotate(ctx context.Context, media domain.Media) (<-chan annotation.Event, error) {
	if media.Kind != domain.MediaVideo {
		return nil, fmt.Errorf("%w: %s", annotation.ErrUnsupportedMedia, media.Kind)
	}

	ch := make(chan annotation.Event, 8)
	go func() {
		defer close(ch)

		index := 0
		err := s.frames.Extract(ctx, media, s.stride, func(frame []byte) error {
			index++
			texts, err := annotation.Collect(ctx, s.images, domain.Media{
				Name:     fmt.Sprintf("%s#frame%d", media.Name, index),
				MIMEType: "image/png",
				Kind:     domain.MediaVideoFrame,
				Data:     frame,
			}, 0)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("frame recognition failed", "frame", index, "error", err)
				return nil
			}
			for _, t := range texts {
				if !annotation.Send(ctx, ch, annotation.Event{Text: t}) {
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			annotation.Send(ctx, ch, annotation.Event{Err: fmt.Errorf("frame extraction failed: %w", err)})
			return
		}
		s.logger.Debug("video frames sampled", "frames", index, "stride", s.stride)
	}()
	return ch, nil
}
