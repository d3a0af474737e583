// Package gcprest talks to the Google Cloud Vision and Video Intelligence
// REST endpoints with an API key. Images are answered in one round trip;
// videos start a long-running operation that is polled until done.
package gcprest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
)

const (
	DefaultVisionURL = "https://vision.googleapis.com"
	DefaultVideoURL  = "https://videointelligence.googleapis.com"
)

type Options struct {
	VisionURL    string
	VideoURL     string
	PollInterval time.Duration
	// RequestTimeout bounds each individual HTTP call; the overall deadline
	// comes from the caller's context.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Client struct {
	http         *resty.Client
	apiKey       string
	visionURL    string
	videoURL     string
	pollInterval time.Duration
	logger       *slog.Logger
}

func New(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:       apiKey,
		visionURL:    DefaultVisionURL,
		videoURL:     DefaultVideoURL,
		pollInterval: 5 * time.Second,
		logger:       slog.Default(),
	}
	if opts.VisionURL != "" {
		c.visionURL = strings.TrimRight(opts.VisionURL, "/")
	}
	if opts.VideoURL != "" {
		c.videoURL = strings.TrimRight(opts.VideoURL, "/")
	}
	if opts.PollInterval > 0 {
		c.pollInterval = opts.PollInterval
	}
	if opts.Logger != nil {
		c.logger = opts.Logger
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c.http = resty.New().
		SetDebug(false).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return c
}

func (c *Client) Name() string { return "gcp-rest" }

func (c *Client) Annotate(ctx context.Context, media domain.Media) (<-chan annotation.Event, error) {
	switch media.Kind {
	case domain.MediaImage, domain.MediaVideoFrame:
		text, err := c.detectImageText(ctx, media.Data)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return annotation.Batch(nil), nil
		}
		return annotation.Batch([]string{text}), nil
	case domain.MediaVideo:
		op, err := c.startVideoAnnotation(ctx, media.Data)
		if err != nil {
			return nil, err
		}
		ch := make(chan annotation.Event, 16)
		go c.pollVideo(ctx, op, ch)
		return ch, nil
	default:
		return nil, fmt.Errorf("%w: %s", annotation.ErrUnsupportedMedia, media.Kind)
	}
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	r := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey)
	if result != nil {
		r.SetResult(result)
	}
	return r
}

// handleError turns non-2xx responses into errors; resty reports them as
// successful otherwise.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d): %s",
			res.Request.Method, redactKey(res.Request.URL), res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return res, nil
}

func redactKey(url string) string {
	if i := strings.Index(url, "key="); i >= 0 {
		end := strings.IndexByte(url[i:], '&')
		if end < 0 {
			return url[:i] + "key=REDACTED"
		}
		return url[:i] + "key=REDACTED" + url[i+end:]
	}
	return url
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *apiStatus) err() error {
	if s == nil || (s.Code == 0 && s.Message == "") {
		return nil
	}
	return fmt.Errorf("provider error %d: %s", s.Code, s.Message)
}

type imageRequest struct {
	Requests []imageRequestItem `json:"requests"`
}

type imageRequestItem struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type imageResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *apiStatus `json:"error"`
	} `json:"responses"`
}

func (c *Client) detectImageText(ctx context.Context, data []byte) (string, error) {
	body := imageRequest{Requests: []imageRequestItem{{
		Image:    imageContent{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []feature{{Type: "TEXT_DETECTION"}},
	}}}

	var out imageResponse
	if _, err := handleError(c.req(ctx, &out).SetBody(body).Post(c.visionURL + "/v1/images:annotate")); err != nil {
		return "", fmt.Errorf("failed to annotate image: %w", err)
	}
	if len(out.Responses) == 0 {
		return "", nil
	}
	r := out.Responses[0]
	if err := r.Error.err(); err != nil {
		return "", err
	}
	if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
		return r.FullTextAnnotation.Text, nil
	}
	// The first text annotation spans the whole image.
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}

type videoRequest struct {
	InputContent string   `json:"inputContent"`
	Features     []string `json:"features"`
}

type operation struct {
	Name     string     `json:"name"`
	Done     bool       `json:"done"`
	Error    *apiStatus `json:"error"`
	Response *struct {
		AnnotationResults []struct {
			TextAnnotations []struct {
				Text string `json:"text"`
			} `json:"textAnnotations"`
			Error *apiStatus `json:"error"`
		} `json:"annotationResults"`
	} `json:"response"`
}

func (c *Client) startVideoAnnotation(ctx context.Context, data []byte) (*operation, error) {
	body := videoRequest{
		InputContent: base64.StdEncoding.EncodeToString(data),
		Features:     []string{"TEXT_DETECTION"},
	}

	var op operation
	if _, err := handleError(c.req(ctx, &op).SetBody(body).Post(c.videoURL + "/v1/videos:annotate")); err != nil {
		return nil, fmt.Errorf("failed to start video annotation: %w", err)
	}
	if op.Name == "" && !op.Done {
		return nil, errors.New("video annotation returned no operation name")
	}
	c.logger.Info("video annotation started", "operation", op.Name, "bytes", len(data))
	return &op, nil
}

func (c *Client) getOperation(ctx context.Context, name string) (*operation, error) {
	var op operation
	if _, err := handleError(c.req(ctx, &op).Get(c.videoURL + "/v1/" + strings.TrimLeft(name, "/"))); err != nil {
		return nil, fmt.Errorf("failed to poll operation %s: %w", name, err)
	}
	return &op, nil
}

// pollVideo checks the operation every pollInterval until it completes, then
// emits one event per text annotation. It stops when ctx is done.
func (c *Client) pollVideo(ctx context.Context, op *operation, ch chan<- annotation.Event) {
	defer close(ch)

	polls := 0
	for !op.Done {
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.pollInterval):
		}
		next, err := c.getOperation(ctx, op.Name)
		if err != nil {
			annotation.Send(ctx, ch, annotation.Event{Err: err})
			return
		}
		polls++
		if next.Name == "" {
			next.Name = op.Name
		}
		c.logger.Debug("video annotation polled", "operation", op.Name, "polls", polls, "done", next.Done)
		op = next
	}

	if err := op.Error.err(); err != nil {
		annotation.Send(ctx, ch, annotation.Event{Err: err})
		return
	}
	if op.Response == nil {
		return
	}
	for _, res := range op.Response.AnnotationResults {
		if err := res.Error.err(); err != nil {
			annotation.Send(ctx, ch, annotation.Event{Err: err})
			return
		}
		for _, ta := range res.TextAnnotations {
			if !annotation.Send(ctx, ch, annotation.Event{Text: ta.Text}) {
				return
			}
		}
	}
}
