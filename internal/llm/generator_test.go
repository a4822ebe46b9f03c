package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillaudit/quill/internal/service"
)

// stubClient is a scripted Client for generator tests.
type stubClient struct {
	responses []string
	errors    []error
	calls     int
	mu        sync.Mutex
}

func (s *stubClient) Complete(_ context.Context, _ Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	s.calls++

	if idx < len(s.errors) && s.errors[idx] != nil {
		return "", s.errors[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", fmt.Errorf("no scripted response for call %d", idx)
}

func newTestBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"})
}

func testRetryOpts() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func newTestGenerator(client Client) *Generator {
	return &Generator{
		client:      client,
		breaker:     newTestBreaker(),
		rateLimiter: newRateLimiter(600),
		logger:      slog.Default(),
		retryOpts:   testRetryOpts(),
	}
}

func TestNewClientUnsupportedProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "carrier-pigeon", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "openai"})
	require.Error(t, err)

	_, err = NewClient(Config{Provider: "anthropic"})
	require.Error(t, err)
}

func TestGeneratorCompleteSuccess(t *testing.T) {
	gen := newTestGenerator(&stubClient{responses: []string{"hello"}})
	defer func() { _ = gen.Close() }()

	got, err := gen.Complete(context.Background(), Request{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestGeneratorCompleteRetriesTransientErrors(t *testing.T) {
	client := &stubClient{
		errors:    []error{fmt.Errorf("transient"), nil},
		responses: []string{"", "recovered"},
	}
	gen := newTestGenerator(client)
	defer func() { _ = gen.Close() }()

	got, err := gen.Complete(context.Background(), Request{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 2, client.calls)
}

func TestGeneratorCompleteExhaustsRetries(t *testing.T) {
	client := &stubClient{
		errors: []error{
			fmt.Errorf("down"),
			fmt.Errorf("down"),
			fmt.Errorf("down"),
		},
	}
	gen := newTestGenerator(client)
	defer func() { _ = gen.Close() }()

	_, err := gen.Complete(context.Background(), Request{User: "u"})
	require.Error(t, err)
	assert.Equal(t, 3, client.calls)
}
