package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{"shorter than budget returned as-is", "hello world", 100, "hello world"},
		{"zero budget returns as-is", "hello world", 0, "hello world"},
		{"trims to a whitespace boundary", "the quick brown fox jumps", 15, "the quick"},
		{"one long word falls back to a hard cut", strings.Repeat("a", 20), 10, strings.Repeat("a", 10)},
		{"trims surrounding whitespace first", "  padded text  ", 100, "padded text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, excerpt(tt.text, tt.maxChars))
		})
	}
}
