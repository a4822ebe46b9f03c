package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quillaudit/quill/internal/common"
	"github.com/quillaudit/quill/internal/service"
)

// Generator wraps a provider client with rate limiting, a circuit breaker,
// and retries. It is the implementation the pipeline consumes.
type Generator struct {
	client      Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rateLimiter
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	model       string
}

// NewGenerator creates a text generator from the given configuration.
func NewGenerator(cfg Config, logger *slog.Logger) (*Generator, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("LLM circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	model := cfg.Model

	return &Generator{
		client:      client,
		breaker:     breaker,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
		retryOpts:   retryOpts,
		model:       model,
	}, nil
}

// Model returns the configured model identifier.
func (g *Generator) Model() string {
	return g.model
}

// Complete submits a role-tagged request and returns the raw response text.
// Rate limiting applies before each attempt; the circuit breaker opens after
// consecutive provider failures so a dead capability fails fast.
func (g *Generator) Complete(ctx context.Context, req Request) (string, error) {
	var result string

	err := common.WithRetry(ctx, func() error {
		if err := g.rateLimiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		out, err := g.breaker.Execute(func() (any, error) {
			return g.client.Complete(ctx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return &common.RetryableError{
					Err:       fmt.Errorf("%w: %v", common.ErrCapabilityDown, err),
					Retryable: false,
				}
			}
			g.logger.Warn("completion attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		text, ok := out.(string)
		if !ok {
			return &common.RetryableError{Err: fmt.Errorf("unexpected breaker result type"), Retryable: false}
		}

		result = text
		return nil
	}, g.retryOpts)

	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	return result, nil
}

// Close stops background goroutines and cleans up resources.
func (g *Generator) Close() error {
	if g.rateLimiter != nil {
		g.rateLimiter.Close()
	}
	return nil
}
