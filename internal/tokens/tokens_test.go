package tokens

import (
	"strings"
	"testing"
)

func TestWords(t *testing.T) {
	var w Words

	if got := w.Count("  the quick\nbrown fox "); got != 4 {
		t.Errorf("expected 4 words, got %d", got)
	}
	if got := w.Truncate("a b c d e", 3); got != "a b c" {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := w.Truncate("a b", 3); got != "a b" {
		t.Errorf("short text should be unchanged, got %q", got)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		counter Counter
		text    string
		limit   int
		want    string
	}{
		{name: "nil counter", counter: nil, text: "a b c", limit: 1, want: "a b c"},
		{name: "no limit", counter: Words{}, text: "a b c", limit: 0, want: "a b c"},
		{name: "within budget", counter: Words{}, text: "a b c", limit: 3, want: "a b c"},
		{name: "over budget", counter: Words{}, text: "a b c d", limit: 2, want: "a b\n[...truncated]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fit(tt.counter, tt.text, tt.limit); got != tt.want {
				t.Errorf("Fit() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Integration test: requires the BPE vocabulary to be downloadable.
func TestTiktoken(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test that downloads the tiktoken vocabulary")
	}

	tk, err := NewTiktoken("gpt-4o")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	text := strings.Repeat("The dragon sleeps beneath the mountain. ", 20)
	n := tk.Count(text)
	if n == 0 {
		t.Fatal("expected a positive token count")
	}
	cut := tk.Truncate(text, 10)
	if tk.Count(cut) > 10 {
		t.Errorf("truncated text exceeds limit: %d tokens", tk.Count(cut))
	}
}
