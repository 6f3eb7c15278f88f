package llm

import (
	"context"
)

// Message is a chat message in a provider-agnostic format.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fragment is one streamed piece of an in-progress completion. Err is set on
// the terminal fragment when the stream failed; Done marks clean completion.
type Fragment struct {
	Content string
	Done    bool
	Err     error
}

type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider is the contract for any LLM backend.
type Provider interface {
	// Chat sends a chat history to the model and returns the full response.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatStream returns a channel of fragments. The channel is closed after
	// the terminal fragment. Cancelling the context stops the stream; the
	// terminal fragment then carries the context error.
	ChatStream(ctx context.Context, history []Message, options ...Option) (<-chan Fragment, error)
}
