// Package tokenizer counts and trims text in model tokens.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the GPT-4 family.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts tokens with a tiktoken encoding. When the encoding
// cannot be loaded it estimates four bytes per token instead.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

var (
	shared     *Tokenizer
	sharedOnce sync.Once
)

// New loads the named encoding. The returned tokenizer is always usable.
func New(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Tokenizer{}, err
	}
	return &Tokenizer{enc: enc}, nil
}

// Default returns a process wide tokenizer for DefaultEncoding.
func Default() *Tokenizer {
	sharedOnce.Do(func() {
		shared, _ = New(DefaultEncoding)
	})
	return shared
}

// Exact reports whether counts come from a real encoding.
func (t *Tokenizer) Exact() bool {
	return t.enc != nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if t.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most limit tokens and whether it was cut.
// A non-positive limit disables truncation.
func (t *Tokenizer) Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || text == "" {
		return text, false
	}
	if t.enc == nil {
		maxBytes := limit * 4
		if len(text) <= maxBytes {
			return text, false
		}
		// back off to a rune boundary
		cut := maxBytes
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		return text[:cut], true
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, false
	}
	return t.enc.Decode(tokens[:limit]), true
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
