// Package synth turns the raw text read from sample labels into a single
// short description. Synthesis is optional: every failure degrades to a plain
// join of the recognized text.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/dedent"

	"github.com/vbonduro/freezerinv/internal/textnorm"
)

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, coordinate string, texts []string) (string, error)
}

// Error reports a failed synthesis call. It is logged, never surfaced to the
// user.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesis via %s failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Describe returns the synthesized description for texts, or their fallback
// join when s is nil, fails, or answers with nothing.
func Describe(ctx context.Context, s Synthesizer, coordinate string, texts []string, logger *slog.Logger) string {
	return DescribeOr(ctx, s, coordinate, texts, textnorm.JoinFallback(texts), logger)
}

// DescribeOr is Describe with an explicit fallback, for callers whose prompt
// texts carry framing that should not end up in a stored description.
func DescribeOr(ctx context.Context, s Synthesizer, coordinate string, texts []string, fallback string, logger *slog.Logger) string {
	if s == nil || textnorm.JoinFallback(texts) == "" {
		return fallback
	}

	out, err := s.Synthesize(ctx, coordinate, texts)
	if err != nil {
		logger.Warn("description synthesis failed, using joined text",
			"error", &Error{Backend: s.Name(), Err: err},
			"coordinate", coordinate)
		return fallback
	}
	out = textnorm.Normalize(out)
	if out == "" {
		logger.Warn("description synthesis returned nothing, using joined text",
			"backend", s.Name(), "coordinate", coordinate)
		return fallback
	}
	return out
}

// Prompt builds the instruction shared by all backends.
func Prompt(coordinate string, texts []string) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(`
		The text below was read from the label of a sample tube stored at
		freezer box position %s. Several readings of the same label may be
		included, each prefixed with its image number.

		Write one short description of the sample (what it is, identifiers,
		dates, concentrations) using only information present in the text.
		Respond with the description only, on a single line, no quotes.

		Label text:
		%s
	`)), coordinate, strings.Join(texts, "\n"))
}
