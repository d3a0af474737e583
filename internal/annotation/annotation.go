// Package annotation is the boundary to OCR providers. An Annotator turns an
// image, a video frame or a whole video into a finite stream of recognized
// text; Collect drains that stream under a deadline.
package annotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// Annotator produces recognized text for a media item. Implementations send
// Events on the returned channel and close it when done or when ctx is
// cancelled. Batch backends may send everything at once; streaming backends
// send per frame.
type Annotator interface {
	Annotate(ctx context.Context, media domain.Media) (<-chan Event, error)
}

// Event is either one recognized text or a provider error.
type Event struct {
	Text string
	Err  error
}

var (
	ErrTimeout          = errors.New("annotation timed out")
	ErrUnsupportedMedia = errors.New("unsupported media kind")
)

// Error is a provider failure tagged with the backend that produced it.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s annotation failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Name returns the backend name used in logs and call records.
func Name(a Annotator, kind domain.MediaKind) string {
	if m, ok := a.(*Mux); ok {
		if routed, err := m.route(kind); err == nil {
			return Name(routed, kind)
		}
	}
	if n, ok := a.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

// Collect pulls every text from a.Annotate until the stream ends, the stream
// reports an error, or timeout elapses. Partial results are discarded on any
// failure. A non-positive timeout means only ctx bounds the call.
func Collect(ctx context.Context, a Annotator, media domain.Media, timeout time.Duration) ([]string, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	backend := Name(a, media.Kind)

	ch, err := a.Annotate(ctx, media)
	if err != nil {
		return nil, &Error{Backend: backend, Err: classify(ctx, err)}
	}

	var texts []string
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil, &Error{Backend: backend, Err: classify(ctx, ctx.Err())}
				}
				return texts, nil
			}
			if ev.Err != nil {
				return nil, &Error{Backend: backend, Err: classify(ctx, ev.Err)}
			}
			texts = append(texts, ev.Text)
		case <-ctx.Done():
			return nil, &Error{Backend: backend, Err: classify(ctx, ctx.Err())}
		}
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// Send delivers ev unless ctx is done first. It reports whether the event was
// delivered so producers can stop early.
func Send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Batch returns a closed channel pre-filled with texts, for providers that
// answer in a single response.
func Batch(texts []string) <-chan Event {
	ch := make(chan Event, len(texts))
	for _, t := range texts {
		ch <- Event{Text: t}
	}
	close(ch)
	return ch
}
