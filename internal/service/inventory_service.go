package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/freezerinv/internal/annotation"
	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/export"
	"github.com/vbonduro/freezerinv/internal/ledger"
	"github.com/vbonduro/freezerinv/internal/synth"
	"github.com/vbonduro/freezerinv/internal/textnorm"
)

var (
	ErrNoMedia       = errors.New("no media uploaded")
	ErrMixedMedia    = errors.New("videos cannot be combined with other uploads")
	ErrUnknownFormat = errors.New("unknown export format")
)

// callRepository is the subset of store.CallStore that InventoryService requires.
type callRepository interface {
	Record(ctx context.Context, call domain.AnnotationCall) (int64, error)
	Summary(ctx context.Context) ([]domain.BackendStats, error)
	Recent(ctx context.Context, limit int) ([]*domain.AnnotationCall, error)
}

type Timeouts struct {
	Image time.Duration
	Video time.Duration
}

func (t Timeouts) For(kind domain.MediaKind) time.Duration {
	if kind == domain.MediaVideo {
		return t.Video
	}
	return t.Image
}

type Options struct {
	InventoryName string
	Timeouts      Timeouts
	Validator     *ledger.CoordinateValidator
	// Synthesizer is optional; nil means descriptions are plain joins.
	Synthesizer synth.Synthesizer
}

type InventoryService struct {
	annotator     annotation.Annotator
	synthesizer   synth.Synthesizer
	calls         callRepository
	validator     *ledger.CoordinateValidator
	timeouts      Timeouts
	inventoryName string
	logger        *slog.Logger
}

func NewInventoryService(
	annotator annotation.Annotator,
	calls callRepository,
	opts Options,
	logger *slog.Logger,
) *InventoryService {
	validator := opts.Validator
	if validator == nil {
		validator, _ = ledger.NewCoordinateValidator("")
	}
	return &InventoryService{
		annotator:     annotator,
		synthesizer:   opts.Synthesizer,
		calls:         calls,
		validator:     validator,
		timeouts:      opts.Timeouts,
		inventoryName: opts.InventoryName,
		logger:        logger,
	}
}

// Recognition is the outcome of one recognize request. Nothing in it is
// stored; the caller decides whether to add Description to a ledger.
type Recognition struct {
	Coordinate   string               `json:"coordinate"`
	Observations []domain.Observation `json:"observations"`
	Description  string               `json:"description"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// HasText reports whether any media item produced text.
func (r *Recognition) HasText() bool { return r.Description != "" }

// Recognize runs every media item through the annotator in upload order.
// A failing item is skipped and reported in Warnings; the remaining items are
// still processed.
func (s *InventoryService) Recognize(ctx context.Context, coordinate string, media []domain.Media) (*Recognition, error) {
	if err := checkMedia(media); err != nil {
		return nil, err
	}

	rec := &Recognition{Coordinate: ledger.NormalizeCoordinate(coordinate)}
	s.logger.Info("recognition started", "coordinate", rec.Coordinate, "media", len(media))

	// Per-item normalized text, blank for items without text.
	texts := make([]string, len(media))
	var fragments []string
	for i, m := range media {
		raw, err := s.annotate(ctx, m)
		if err != nil {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: %s", itemLabel(i, m), describeError(err)))
			s.logger.Warn("media item skipped", "index", i+1, "name", m.Name, "error", err)
			continue
		}

		normalized := make([]string, 0, len(raw))
		for _, r := range raw {
			if n := textnorm.Normalize(r); n != "" {
				normalized = append(normalized, n)
			}
		}
		texts[i] = textnorm.Combine(normalized)
		fragments = append(fragments, normalized...)

		rec.Observations = append(rec.Observations, domain.Observation{
			SourceIndex: i + 1,
			RawText:     strings.Join(raw, "\n"),
			Text:        texts[i],
			HasText:     texts[i] != "",
		})
		if texts[i] == "" {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s: no text detected", itemLabel(i, m)))
		}
	}

	rec.Description = s.describe(ctx, rec.Coordinate, media, texts, fragments)
	s.logger.Info("recognition complete",
		"coordinate", rec.Coordinate,
		"observations", len(rec.Observations),
		"warnings", len(rec.Warnings),
		"has_text", rec.HasText())
	return rec, nil
}

func (s *InventoryService) describe(ctx context.Context, coordinate string, media []domain.Media, texts, fragments []string) string {
	if s.synthesizer == nil {
		return textnorm.Combine(texts)
	}
	if len(media) == 1 {
		return synth.Describe(ctx, s.synthesizer, coordinate, fragments, s.logger)
	}
	// The "Image i:" tags are prompt framing only; a failed synthesis falls
	// back to the per-item texts.
	tagged := textnorm.Tagged(texts)
	if tagged == "" {
		return ""
	}
	return synth.DescribeOr(ctx, s.synthesizer, coordinate, strings.Split(tagged, "\n"), textnorm.JoinFallback(texts), s.logger)
}

// annotate collects the text for one item under its kind's timeout and
// records the call. Recording failures are logged only.
func (s *InventoryService) annotate(ctx context.Context, m domain.Media) ([]string, error) {
	start := time.Now()
	texts, err := annotation.Collect(ctx, s.annotator, m, s.timeouts.For(m.Kind))

	call := domain.AnnotationCall{
		Backend:   annotation.Name(s.annotator, m.Kind),
		MediaKind: m.Kind.String(),
		Bytes:     len(m.Data),
		Outcome:   domain.OutcomeText,
		Fragments: len(texts),
		Duration:  time.Since(start),
	}
	switch {
	case errors.Is(err, annotation.ErrTimeout):
		call.Outcome = domain.OutcomeTimeout
	case err != nil:
		call.Outcome = domain.OutcomeError
	case textnorm.Combine(texts) == "":
		call.Outcome = domain.OutcomeNoText
	}
	if _, rerr := s.calls.Record(context.WithoutCancel(ctx), call); rerr != nil {
		s.logger.Error("failed to record annotation call", "backend", call.Backend, "error", rerr)
	}
	return texts, err
}

func checkMedia(media []domain.Media) error {
	if len(media) == 0 {
		return ErrNoMedia
	}
	videos := 0
	for _, m := range media {
		if m.Kind == domain.MediaVideo {
			videos++
		}
	}
	if videos > 0 && len(media) > 1 {
		return ErrMixedMedia
	}
	return nil
}

func itemLabel(i int, m domain.Media) string {
	if m.Name != "" {
		return fmt.Sprintf("%s %d (%s)", m.Kind, i+1, m.Name)
	}
	return fmt.Sprintf("%s %d", m.Kind, i+1)
}

func describeError(err error) string {
	if errors.Is(err, annotation.ErrTimeout) {
		return "recognition timed out"
	}
	var aerr *annotation.Error
	if errors.As(err, &aerr) {
		return aerr.Error()
	}
	return err.Error()
}

// AddEntry validates the coordinate and description and appends to l.
func (s *InventoryService) AddEntry(l *ledger.Ledger, coordinate, description string) (domain.Entry, error) {
	coord, desc, err := s.validate(coordinate, description)
	if err != nil {
		return domain.Entry{}, err
	}
	e, err := l.Add(coord, desc)
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("entry added", "coordinate", e.Coordinate, "entries", l.Len())
	return e, nil
}

// UpdateEntry replaces the description of an existing coordinate in l.
func (s *InventoryService) UpdateEntry(l *ledger.Ledger, coordinate, description string) (domain.Entry, error) {
	coord, desc, err := s.validate(coordinate, description)
	if err != nil {
		return domain.Entry{}, err
	}
	e, err := l.Update(coord, desc)
	if err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("entry updated", "coordinate", e.Coordinate)
	return e, nil
}

func (s *InventoryService) validate(coordinate, description string) (string, string, error) {
	coord, err := s.validator.Validate(coordinate)
	if err != nil {
		return "", "", err
	}
	desc := strings.TrimSpace(description)
	if desc == "" {
		return "", "", ledger.ErrEmptyDescription
	}
	return coord, desc, nil
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Download is a rendered export ready to be sent as an attachment.
type Download struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Export renders a snapshot of l. columns is a comma-separated column list;
// empty selects the default columns.
func (s *InventoryService) Export(l *ledger.Ledger, format Format, columns string, sortByCoordinate bool) (*Download, error) {
	cols, err := export.ParseColumns(columns)
	if err != nil {
		return nil, err
	}
	entries := l.Snapshot(sortByCoordinate)

	var d Download
	switch format {
	case FormatCSV:
		d.Data, err = export.ToCSV(entries, cols)
		d.ContentType = "text/csv; charset=utf-8"
	case FormatXLSX:
		d.Data, err = export.ToSpreadsheet(entries, export.SheetName(s.inventoryName), cols)
		d.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", format, err)
	}
	d.FileName = export.FileName(s.inventoryName, string(format))

	s.logger.Info("inventory exported", "format", format, "entries", len(entries), "bytes", len(d.Data))
	return &d, nil
}

func (s *InventoryService) InventoryName() string { return s.inventoryName }

func (s *InventoryService) Stats(ctx context.Context) ([]domain.BackendStats, error) {
	return s.calls.Summary(ctx)
}

const (
	DefaultRecentCalls = 20
	MaxRecentCalls     = 500
)

// RecentCalls returns the latest annotation calls, newest first. limit is
// clamped to [1, MaxRecentCalls]; zero or less means DefaultRecentCalls.
func (s *InventoryService) RecentCalls(ctx context.Context, limit int) ([]*domain.AnnotationCall, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentCalls
	case limit > MaxRecentCalls:
		limit = MaxRecentCalls
	}
	return s.calls.Recent(ctx, limit)
}
