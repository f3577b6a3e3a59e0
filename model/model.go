// Package model abstracts the generative-text capability used by drivers,
// the system responder and the analysis synthesizer. Provider adapters live
// in the openai and anthropic subpackages; MockCompleter serves tests.
package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Request is a single completion request. Prompt wording is owned by the
// caller; the adapter only maps it onto the provider API.
type Request struct {
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	UserPrompt   string  `json:"userPrompt"`
	MaxTokens    int     `json:"maxTokens"`
	Temperature  float64 `json:"temperature"`
}

// Info contains metadata about a completer implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// Completer is the minimal interface the coordination core needs from a
// language model. Implementations must honor ctx cancellation; failures are
// returned, never panicked, and callers treat them as recoverable.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Info() Info
}

// MockCompleter is a lightweight in-memory Completer for tests and local
// development. It is safe for concurrent use.
type MockCompleter struct {
	mu         sync.Mutex
	info       Info
	responses  map[string]string
	defaultRes string
	err        error
	delay      time.Duration
	calls      int
}

// NewMockCompleter constructs a MockCompleter.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a user prompt.
func (m *MockCompleter) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// RespondWith registers a canned completion returned for every prompt that
// has no keyed response.
func (m *MockCompleter) RespondWith(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultRes = response
}

// FailWith makes every subsequent Complete call return err.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes Complete block for d before answering, to exercise timeout
// paths.
func (m *MockCompleter) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many Complete calls were observed.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	delay := m.delay
	resp, ok := m.responses[req.UserPrompt]
	if !ok && m.defaultRes != "" {
		resp, ok = m.defaultRes, true
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !ok {
		return fmt.Sprintf("Mock response to: %s", req.UserPrompt), nil
	}
	return resp, nil
}

// Info implements Completer.
func (m *MockCompleter) Info() Info { return m.info }
