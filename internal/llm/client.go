// Package llm provides clients for the external text-generation capability
// and a wrapper that adds rate limiting, circuit breaking, and retries.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is the role-tagged message pair sent to a provider: a system
// instruction plus the task-specific user content.
type Request struct {
	System string
	User   string
}

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	RetryDelay  time.Duration
	MaxRetries  int
	RateLimit   int // requests per minute
	MaxTokens   int
	Temperature float64
}

// NewClient creates a raw provider client based on the configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
