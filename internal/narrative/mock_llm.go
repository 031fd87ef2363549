package narrative

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing.
// It is safe for concurrent use by fan-out stages.
type MockLLM struct {
	// Response is the fixed text returned by Complete.
	// If empty, a default response is generated from the prompt.
	Response string

	// Error, if set, is returned by Complete instead of a response.
	Error error

	// Script is consumed one entry per call before Response/Error apply.
	Script []MockReply

	// Handler, if set, answers every call and takes precedence over the rest.
	Handler func(c Completion) (string, error)

	mu          sync.Mutex
	lastPrompt  string
	completions []Completion
}

// MockReply is one scripted answer.
type MockReply struct {
	Text string
	Err  error
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// NewMockLLMFunc creates a mock LLM that routes every call through fn.
func NewMockLLMFunc(fn func(c Completion) (string, error)) *MockLLM {
	return &MockLLM{Handler: fn}
}

// Complete returns the scripted, configured or derived response.
func (m *MockLLM) Complete(ctx context.Context, c Completion) (string, error) {
	m.mu.Lock()
	m.lastPrompt = c.User
	m.completions = append(m.completions, c)
	var reply *MockReply
	if m.Handler == nil && len(m.Script) > 0 {
		r := m.Script[0]
		m.Script = m.Script[1:]
		reply = &r
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Handler != nil {
		return m.Handler(c)
	}
	if reply != nil {
		return reply.Text, reply.Err
	}
	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return generateMockResponse(c.User), nil
}

// LastPrompt returns the most recent user prompt.
func (m *MockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Calls returns how many times Complete was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completions)
}

// Completions returns a copy of every exchange received.
func (m *MockLLM) Completions() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Completion(nil), m.completions...)
}

// generateMockResponse creates predictable prose from the prompt.
func generateMockResponse(prompt string) string {
	first := strings.TrimSpace(prompt)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if len(first) > 80 {
		first = first[:80]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("This passage responds to %q. ", first))
	b.WriteString("The characters move through a changing world as the story advances. ")
	b.WriteString("Each choice they make raises the stakes for what comes next.")
	return b.String()
}
