// Package textnorm cleans raw OCR output before it is shown to the user or
// handed to a description synthesizer.
package textnorm

import (
	"fmt"
	"strings"
)

// Normalize folds line breaks into spaces, collapses whitespace runs and trims
// the result. Empty input yields empty output.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Combine joins the non-blank fragments with a single space. An empty result
// means no text was detected.
func Combine(fragments []string) string {
	return strings.Join(nonBlank(fragments), " ")
}

// Tagged renders fragments as "Image i: <text>" lines, numbering by position
// in the input (1-based) so skipped blanks keep the original image numbers.
func Tagged(fragments []string) string {
	lines := make([]string, 0, len(fragments))
	for i, f := range fragments {
		f = Normalize(f)
		if f == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("Image %d: %s", i+1, f))
	}
	return strings.Join(lines, "\n")
}

// JoinFallback is the description used when synthesis is unavailable or fails.
func JoinFallback(fragments []string) string {
	return strings.Join(nonBlank(fragments), " | ")
}

func nonBlank(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = Normalize(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
