package pipeline

import (
	"context"
	"sync"

	"github.com/quillaudit/quill/internal/llm"
)

// MockTextClient is a test implementation of the TextClient interface.
// It replays scripted responses in order and records every request it sees.
type MockTextClient struct {
	err       error
	responses []string
	calls     []llm.Request
	cursor    int
	mu        sync.Mutex
}

// NewMockTextClient creates a mock that returns the given responses in order.
// Once the script is exhausted, the last response repeats.
func NewMockTextClient(responses ...string) *MockTextClient {
	return &MockTextClient{responses: responses}
}

// NewFailingTextClient creates a mock whose every call returns err.
func NewFailingTextClient(err error) *MockTextClient {
	return &MockTextClient{err: err}
}

// Complete returns the next scripted response.
func (m *MockTextClient) Complete(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	idx := m.cursor
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.cursor++
	return m.responses[idx], nil
}

// Calls returns a copy of the recorded requests.
func (m *MockTextClient) Calls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Complete was invoked.
func (m *MockTextClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
