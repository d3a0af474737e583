package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizeCoordinate trims, collapses inner whitespace and upper-cases a
// coordinate so "a1", " A1 " and "A1" address the same slot.
func NormalizeCoordinate(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CoordinateValidator checks user-entered coordinates. Without a pattern any
// non-blank text is accepted.
type CoordinateValidator struct {
	pattern *regexp.Regexp
}

// NewCoordinateValidator compiles pattern, which is matched against the
// normalized coordinate. An empty pattern accepts free-form text.
func NewCoordinateValidator(pattern string) (*CoordinateValidator, error) {
	v := &CoordinateValidator{}
	if pattern == "" {
		return v, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinate pattern %q: %w", pattern, err)
	}
	v.pattern = re
	return v, nil
}

// Validate returns the normalized coordinate or an error wrapping
// ErrInvalidCoordinate.
func (v *CoordinateValidator) Validate(input string) (string, error) {
	c := NormalizeCoordinate(input)
	if c == "" {
		return "", fmt.Errorf("%w: coordinate is required", ErrInvalidCoordinate)
	}
	if v.pattern != nil && !v.pattern.MatchString(c) {
		return "", fmt.Errorf("%w: %q does not match %s", ErrInvalidCoordinate, c, v.pattern)
	}
	return c, nil
}
