package perception

import (
	"context"
	"fmt"
)

// mockLLMClient is a configurable test double. Set the Func fields to
// override behavior per test.
type mockLLMClient struct {
	CompleteFunc  func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	StreamingFunc func(ctx context.Context, systemPrompt, userPrompt string, callback StreamCallback) (string, error)
	Calls         int
	Model         string
}

func (m *mockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *mockLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, userPrompt)
	}
	return `{"ok": true}`, nil
}

func (m *mockLLMClient) SetModel(model string) { m.Model = model }
func (m *mockLLMClient) GetModel() string      { return m.Model }

// mockStreamingClient additionally implements StreamingLLMClient.
type mockStreamingClient struct {
	mockLLMClient
	Chunks []string
}

func (m *mockStreamingClient) CompleteStreaming(ctx context.Context, systemPrompt, userPrompt string, callback StreamCallback) (string, error) {
	if m.StreamingFunc != nil {
		return m.StreamingFunc(ctx, systemPrompt, userPrompt, callback)
	}
	full := ""
	for _, c := range m.Chunks {
		full += c
		if callback != nil {
			if err := callback(StreamChunk{Type: "text", Text: c}); err != nil {
				return full, fmt.Errorf("stream aborted by callback: %w", err)
			}
		}
	}
	if callback != nil {
		if err := callback(StreamChunk{Type: "done"}); err != nil {
			return full, err
		}
	}
	return full, nil
}
