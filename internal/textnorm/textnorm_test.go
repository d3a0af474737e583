package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "newline and runs", raw: "Foo\nbar   baz ", want: "Foo bar baz"},
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: " \t\n\r\n ", want: ""},
		{name: "crlf and tabs", raw: "  CD4+\r\nT-cells\t2024-03-01  ", want: "CD4+ T-cells 2024-03-01"},
		{name: "already clean", raw: "Sample X", want: "Sample X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "Alpha", Combine([]string{"", "  ", "Alpha"}))
	assert.Equal(t, "", Combine([]string{"", ""}))
	assert.Equal(t, "", Combine(nil))
	assert.Equal(t, "Alpha Beta gamma", Combine([]string{"Alpha", "Beta\ngamma"}))
}

func TestTagged(t *testing.T) {
	got := Tagged([]string{"Plasma  lot 7", "", "exp\n2027"})
	assert.Equal(t, "Image 1: Plasma lot 7\nImage 3: exp 2027", got)
	assert.Equal(t, "", Tagged([]string{" ", ""}))
}

func TestJoinFallback(t *testing.T) {
	assert.Equal(t, "Plasma | lot 7", JoinFallback([]string{"Plasma", " ", "lot\n7"}))
	assert.Equal(t, "", JoinFallback(nil))
}
