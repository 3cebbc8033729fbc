package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEstimatorCount(t *testing.T) {
	tk := &Tokenizer{}
	assert.False(t, tk.Exact())
	assert.Equal(t, 0, tk.Count(""))
	assert.Equal(t, 1, tk.Count("abc"))
	assert.Equal(t, 3, tk.Count(strings.Repeat("a", 12)))
}

func TestEstimatorTruncate(t *testing.T) {
	tk := &Tokenizer{}

	tests := []struct {
		name    string
		text    string
		limit   int
		wantLen int
		cut     bool
	}{
		{"disabled", strings.Repeat("x", 100), 0, 100, false},
		{"fits", "short text", 10, 10, false},
		{"cut", strings.Repeat("x", 100), 5, 20, true},
		{"empty", "", 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, cut := tk.Truncate(tt.text, tt.limit)
			assert.Equal(t, tt.cut, cut)
			assert.Len(t, out, tt.wantLen)
		})
	}
}

func TestEstimatorTruncateKeepsRunes(t *testing.T) {
	tk := &Tokenizer{}
	text := strings.Repeat("é", 50) // two bytes each
	out, cut := tk.Truncate(text, 3)
	assert.True(t, cut)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 12)
}

func TestDefaultIsUsable(t *testing.T) {
	tk := Default()
	assert.NotNil(t, tk)
	assert.Same(t, tk, Default())

	// works with or without the downloaded encoding
	out, cut := tk.Truncate("hello world", 1000)
	assert.False(t, cut)
	assert.Equal(t, "hello world", out)
	assert.Positive(t, tk.Count("hello world"))
}
