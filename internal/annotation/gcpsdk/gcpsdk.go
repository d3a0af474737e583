// Package gcpsdk recognizes text with the Google Cloud client libraries,
// authenticating with a service-account file or application default
// credentials.
package gcpsdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	vision "cloud.google.com/go/vision/apiv1"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/api/option"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
)

// Client wraps an image annotator and a video intelligence client. The
// detect functions are fields so tests can replace the network calls.
type Client struct {
	detectText    func(ctx context.Context, data []byte) (string, error)
	annotateVideo func(ctx context.Context, data []byte) ([]string, error)
	closers       []func() error
	logger        *slog.Logger
}

// New dials both services. An empty credentialsFile falls back to
// application default credentials.
func New(ctx context.Context, credentialsFile string, logger *slog.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	ic, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	vc, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		_ = ic.Close()
		return nil, fmt.Errorf("failed to create video intelligence client: %w", err)
	}

	return &Client{
		detectText: func(ctx context.Context, data []byte) (string, error) {
			img, err := vision.NewImageFromReader(bytes.NewReader(data))
			if err != nil {
				return "", fmt.Errorf("failed to create image: %w", err)
			}
			ann, err := ic.DetectDocumentText(ctx, img, nil)
			if err != nil {
				return "", fmt.Errorf("failed to detect text: %w", err)
			}
			return ann.GetText(), nil
		},
		annotateVideo: func(ctx context.Context, data []byte) ([]string, error) {
			op, err := vc.AnnotateVideo(ctx, &videointelligencepb.AnnotateVideoRequest{
				InputContent: data,
				Features:     []videointelligencepb.Feature{videointelligencepb.Feature_TEXT_DETECTION},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to start video annotation: %w", err)
			}
			logger.Info("video annotation started", "operation", op.Name(), "bytes", len(data))
			resp, err := op.Wait(ctx)
			if err != nil {
				return nil, fmt.Errorf("video annotation failed: %w", err)
			}
			var texts []string
			for _, res := range resp.GetAnnotationResults() {
				if st := res.GetError(); st != nil && st.GetMessage() != "" {
					return nil, errors.New(st.GetMessage())
				}
				for _, ta := range res.GetTextAnnotations() {
					texts = append(texts, ta.GetText())
				}
			}
			return texts, nil
		},
		closers: []func() error{ic.Close, vc.Close},
		logger:  logger,
	}, nil
}

func (c *Client) Name() string { return "gcp-sdk" }

// Annotate blocks until the provider answers; the SDK does its own operation
// polling for videos.
func (c *Client) Annotate(ctx context.Context, media domain.Media) (<-chan annotation.Event, error) {
	switch media.Kind {
	case domain.MediaImage, domain.MediaVideoFrame:
		text, err := c.detectText(ctx, media.Data)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return annotation.Batch(nil), nil
		}
		return annotation.Batch([]string{text}), nil
	case domain.MediaVideo:
		texts, err := c.annotateVideo(ctx, media.Data)
		if err != nil {
			return nil, err
		}
		return annotation.Batch(texts), nil
	default:
		return nil, fmt.Errorf("%w: %s", annotation.ErrUnsupportedMedia, media.Kind)
	}
}

func (c *Client) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
