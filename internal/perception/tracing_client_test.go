package perception

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingClient_PassesThrough(t *testing.T) {
	mock := &mockLLMClient{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			assert.Equal(t, "sys", systemPrompt)
			return "result", nil
		},
	}
	tc := NewTracingClient(mock)

	got, err := tc.CompleteWithSystem(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "result", got)
	assert.Equal(t, 1, mock.Calls)
}

func TestTracingClient_StreamFallbackForNonStreamingClient(t *testing.T) {
	mock := &mockLLMClient{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "whole thing", nil
		},
	}
	tc := NewTracingClient(mock)

	var chunks []StreamChunk
	got, err := tc.CompleteStreaming(context.Background(), "", "user", func(c StreamChunk) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "whole thing", got)
	require.Len(t, chunks, 2)
	assert.Equal(t, "text", chunks[0].Type)
	assert.Equal(t, "done", chunks[1].Type)
}

func TestTracingClient_StreamsThroughStreamingClient(t *testing.T) {
	mock := &mockStreamingClient{Chunks: []string{"hel", "lo"}}
	tc := NewTracingClient(mock)

	var text string
	got, err := tc.CompleteStreaming(context.Background(), "", "user", func(c StreamChunk) error {
		if c.Type == "text" {
			text += c.Text
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "hello", text)
}

func TestTracingClient_CallbackErrorAborts(t *testing.T) {
	mock := &mockStreamingClient{Chunks: []string{"a", "b"}}
	tc := NewTracingClient(mock)

	boom := errors.New("stop")
	_, err := tc.CompleteStreaming(context.Background(), "", "user", func(c StreamChunk) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestTracingClient_ModelControl(t *testing.T) {
	mock := &mockLLMClient{Model: "big-model"}
	tc := NewTracingClient(mock)

	assert.Equal(t, "big-model", tc.GetModel())
	tc.SetModel("small-model")
	assert.Equal(t, "small-model", mock.Model)
}
