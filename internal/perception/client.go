// Package perception wraps the LLM providers behind a small completion
// interface. The pipeline only ever sees LLMClient; provider selection,
// credentials, rate limiting and transport details all stay in here.
package perception

import (
	"context"
)

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StreamChunk is one unit of a streaming completion. Type is "text" for
// content deltas, "tool" for provider-side tool activity (e.g. a grounding
// search), and "done" for the final chunk.
type StreamChunk struct {
	Type string
	Text string
}

// StreamCallback receives chunks as they arrive. Returning an error aborts
// the stream.
type StreamCallback func(chunk StreamChunk) error

// StreamingLLMClient is implemented by providers that can stream tokens.
// Callers should type-assert and fall back to Complete when unsupported.
type StreamingLLMClient interface {
	LLMClient
	CompleteStreaming(ctx context.Context, systemPrompt, userPrompt string, callback StreamCallback) (string, error)
}

// ModelAware is implemented by clients whose model can be inspected and
// swapped at runtime (the fallback chain pins a cheaper model this way).
type ModelAware interface {
	GetModel() string
	SetModel(model string)
}
