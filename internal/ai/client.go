package ai

import (
	"context"
	"errors"
)

// Message is one chat turn in the provider-neutral wire shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request. Zero Temperature and MaxTokens
// fall back to the client's configured defaults.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
}

// Completion is the provider-neutral reply: the raw text plus token usage
// when the provider reports it.
type Completion struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
}

// ErrRateLimited signals an upstream "too many requests" reply, distinct
// from generic failure so callers can answer with a retry-later status.
var ErrRateLimited = errors.New("ai: too many requests")

// Client is the model boundary: an opaque function from prompts to text.
type Client interface {
	Chat(ctx context.Context, req Request) (Completion, error)
}

const defaultMaxTokens = 1024

func (r Request) maxTokens(fallback int) int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	if fallback > 0 {
		return fallback
	}
	return defaultMaxTokens
}

func (r Request) temperature(fallback float64) float64 {
	if r.Temperature > 0 {
		return r.Temperature
	}
	return fallback
}
