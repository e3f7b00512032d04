package perception

import (
	"context"
	"time"

	"widgetforge/internal/logging"
)

// TracingClient wraps an LLMClient and logs every call's size, duration and
// outcome to the api category. It forwards streaming and model control to the
// underlying client when supported.
type TracingClient struct {
	inner LLMClient
}

// NewTracingClient wraps client with call tracing.
func NewTracingClient(client LLMClient) *TracingClient {
	return &TracingClient{inner: client}
}

// Unwrap returns the wrapped client.
func (t *TracingClient) Unwrap() LLMClient {
	return t.inner
}

// Complete sends a prompt and returns the completion.
func (t *TracingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return t.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (t *TracingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	result, err := t.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	t.trace("complete", len(systemPrompt)+len(userPrompt), len(result), time.Since(start), err)
	return result, err
}

// CompleteStreaming streams through the wrapped client when it supports
// streaming, otherwise falls back to a blocking completion delivered as a
// single chunk.
func (t *TracingClient) CompleteStreaming(ctx context.Context, systemPrompt, userPrompt string, callback StreamCallback) (string, error) {
	start := time.Now()

	sc, ok := t.inner.(StreamingLLMClient)
	if !ok {
		result, err := t.inner.CompleteWithSystem(ctx, systemPrompt, userPrompt)
		if err == nil && callback != nil {
			if cbErr := callback(StreamChunk{Type: "text", Text: result}); cbErr == nil {
				err = callback(StreamChunk{Type: "done"})
			} else {
				err = cbErr
			}
		}
		t.trace("stream-fallback", len(systemPrompt)+len(userPrompt), len(result), time.Since(start), err)
		return result, err
	}

	result, err := sc.CompleteStreaming(ctx, systemPrompt, userPrompt, callback)
	t.trace("stream", len(systemPrompt)+len(userPrompt), len(result), time.Since(start), err)
	return result, err
}

// SetModel forwards to the wrapped client when it is model-aware.
func (t *TracingClient) SetModel(model string) {
	if ma, ok := t.inner.(ModelAware); ok {
		logging.API("model switched to %s", model)
		ma.SetModel(model)
	}
}

// GetModel returns the wrapped client's model, or "" when unknown.
func (t *TracingClient) GetModel() string {
	if ma, ok := t.inner.(ModelAware); ok {
		return ma.GetModel()
	}
	return ""
}

func (t *TracingClient) trace(kind string, promptLen, resultLen int, elapsed time.Duration, err error) {
	if err != nil {
		logging.Get(logging.CategoryAPI).Error("%s failed after %s (prompt=%dB): %v", kind, elapsed.Round(time.Millisecond), promptLen, err)
		return
	}
	logging.API("%s ok in %s (prompt=%dB result=%dB)", kind, elapsed.Round(time.Millisecond), promptLen, resultLen)
}
