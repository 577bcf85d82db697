// Package ai abstracts remote text-generation endpoints behind one
// Provider contract, with streaming and blocking generation modes.
package ai

import (
	"context"
	"errors"
	"time"
)

// ErrProviderFailed wraps any remote or transport failure of a provider
// call. The wrapped message carries the upstream error text.
var ErrProviderFailed = errors.New("ai provider call failed")

const defaultTimeout = 300 * time.Second

// EventType tags events yielded by a streaming generation call.
type EventType string

const (
	EventStart    EventType = "start"
	EventContent  EventType = "content"
	EventComplete EventType = "complete"
)

// StreamEvent is one typed event of a streaming generation.
// A successful stream yields Start once, Content zero or more times in
// strict append order, then Complete once. A failed stream yields no
// Complete; fragments already emitted remain valid partial output.
type StreamEvent struct {
	Type EventType
	Data string
}

// Config carries one concrete endpoint configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// Provider generates text from a system prompt and user message against
// one remote endpoint. Implementations must be safe for sequential reuse.
type Provider interface {
	Name() string
	RequiresAPIKey() bool
	// Generate runs a blocking, non-streaming generation.
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// GenerateStream runs a streaming generation, invoking emit for each
	// event in order. It returns an error wrapping ErrProviderFailed on
	// any remote or transport failure; no Complete event is emitted then.
	GenerateStream(ctx context.Context, systemPrompt, userMessage string, emit func(StreamEvent)) error
}
