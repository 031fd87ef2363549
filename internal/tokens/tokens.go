// Package tokens measures and trims prompt context against a token budget.
package tokens

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts and truncates text in model tokens.
type Counter interface {
	Count(text string) int
	Truncate(text string, limit int) string
}

// Tiktoken counts tokens with the BPE encoding of an OpenAI model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for model, falling back to cl100k_base for
// models tiktoken does not know. Loading may fetch the vocabulary over the
// network on first use.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tiktoken encoding: %w", err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate keeps the first limit tokens of text.
func (t *Tiktoken) Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	ids := t.enc.Encode(text, nil, nil)
	if len(ids) <= limit {
		return text
	}
	return t.enc.Decode(ids[:limit])
}

// Words approximates tokens by whitespace-separated words. It is the
// fallback when no BPE vocabulary can be loaded.
type Words struct{}

func (Words) Count(text string) int { return len(strings.Fields(text)) }

func (Words) Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text
	}
	return strings.Join(fields[:limit], " ")
}

// Fit trims text to limit tokens, appending a marker when anything was cut.
// A nil counter or non-positive limit returns text unchanged.
func Fit(c Counter, text string, limit int) string {
	if c == nil || limit <= 0 || c.Count(text) <= limit {
		return text
	}
	return strings.TrimSpace(c.Truncate(text, limit)) + "\n[...truncated]"
}
