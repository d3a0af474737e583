package annotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/freezerinv/internal/domain"
)

// scriptedAnnotator emits events one by one, pausing delay between them.
type scriptedAnnotator struct {
	name     string
	events   []Event
	delay    time.Duration
	startErr error
}

func (s *scriptedAnnotator) Name() string { return s.name }

func (s *scriptedAnnotator) Annotate(ctx context.Context, _ domain.Media) (<-chan Event, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for _, ev := range s.events {
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					return
				}
			}
			if !Send(ctx, ch, ev) {
				return
			}
		}
	}()
	return ch, nil
}

var image = domain.Media{Kind: domain.MediaImage, Data: []byte{0xFF, 0xD8}}

func TestCollectDrainsStream(t *testing.T) {
	a := &scriptedAnnotator{name: "stub", events: []Event{{Text: "PBMC"}, {Text: "donor 14"}}}

	texts, err := Collect(context.Background(), a, image, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"PBMC", "donor 14"}, texts)
}

func TestCollectEmptyStream(t *testing.T) {
	texts, err := Collect(context.Background(), &scriptedAnnotator{name: "stub"}, image, time.Second)
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestCollectTimeoutDiscardsPartialResults(t *testing.T) {
	a := &scriptedAnnotator{
		name:   "slow",
		events: []Event{{Text: "first"}, {Text: "second"}},
		delay:  40 * time.Millisecond,
	}

	texts, err := Collect(context.Background(), a, image, 60*time.Millisecond)
	assert.Nil(t, texts)
	require.ErrorIs(t, err, ErrTimeout)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "slow", aerr.Backend)
}

func TestCollectProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := &scriptedAnnotator{name: "stub", events: []Event{{Text: "partial"}, {Err: boom}}}

	texts, err := Collect(context.Background(), a, image, time.Second)
	assert.Nil(t, texts)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCollectStartError(t *testing.T) {
	a := &scriptedAnnotator{name: "stub", startErr: errors.New("bad credentials")}

	_, err := Collect(context.Background(), a, image, time.Second)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "stub", aerr.Backend)
}

func TestBatch(t *testing.T) {
	var got []string
	for ev := range Batch([]string{"a", "b"}) {
		got = append(got, ev.Text)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestMuxRoutesByKind(t *testing.T) {
	m := &Mux{
		Image: &scriptedAnnotator{name: "img", events: []Event{{Text: "from image"}}},
		Video: &scriptedAnnotator{name: "vid", events: []Event{{Text: "from video"}}},
	}

	texts, err := Collect(context.Background(), m, domain.Media{Kind: domain.MediaVideoFrame}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"from image"}, texts)

	texts, err = Collect(context.Background(), m, domain.Media{Kind: domain.MediaVideo}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"from video"}, texts)

	assert.Equal(t, "img", Name(m, domain.MediaImage))
	assert.Equal(t, "vid", Name(m, domain.MediaVideo))
}

func TestMuxMissingBackend(t *testing.T) {
	m := &Mux{Image: &scriptedAnnotator{name: "img"}}

	_, err := Collect(context.Background(), m, domain.Media{Kind: domain.MediaVideo}, time.Second)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
}
