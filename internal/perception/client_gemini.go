package perception

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"widgetforge/internal/logging"
)

// GeminiClient implements LLMClient for Google Gemini via the GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string

	// Built-in Google Search grounding. When enabled, grounding source URLs
	// from the last completion are retained for the live-fetch path.
	enableGoogleSearch bool

	mu                   sync.Mutex
	lastRequest          time.Time
	lastGroundingSources []string
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey             string
	Model              string
	Timeout            time.Duration
	EnableGoogleSearch bool
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		Model:   "gemini-3-flash-preview",
		Timeout: 120 * time.Second,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:             client,
		model:              model,
		enableGoogleSearch: config.EnableGoogleSearch,
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.throttle()

	resp, err := c.client.Models.GenerateContent(ctx, c.GetModel(), genai.Text(userPrompt), c.buildConfig(systemPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	c.captureGrounding(resp)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}
	return text, nil
}

// CompleteStreaming streams the completion through callback and returns the
// accumulated text. Grounding search activity surfaces as "tool" chunks.
func (c *GeminiClient) CompleteStreaming(ctx context.Context, systemPrompt, userPrompt string, callback StreamCallback) (string, error) {
	c.throttle()

	var full strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.GetModel(), genai.Text(userPrompt), c.buildConfig(systemPrompt)) {
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream failed: %w", err)
		}

		before := len(c.GroundingSources())
		c.captureGrounding(resp)
		if callback != nil && len(c.GroundingSources()) > before {
			if err := callback(StreamChunk{Type: "tool", Text: "google_search"}); err != nil {
				return full.String(), fmt.Errorf("stream aborted by callback: %w", err)
			}
		}

		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if callback != nil {
			if err := callback(StreamChunk{Type: "text", Text: delta}); err != nil {
				return full.String(), fmt.Errorf("stream aborted by callback: %w", err)
			}
		}
	}

	if callback != nil {
		if err := callback(StreamChunk{Type: "done"}); err != nil {
			return full.String(), fmt.Errorf("stream aborted by callback: %w", err)
		}
	}
	return strings.TrimSpace(full.String()), nil
}

func (c *GeminiClient) buildConfig(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.1)), // Low temperature for structured output
		MaxOutputTokens: 8192,
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.enableGoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// captureGrounding records grounding source URLs from a response.
func (c *GeminiClient) captureGrounding(resp *genai.GenerateContentResponse) {
	if resp == nil || len(resp.Candidates) == 0 {
		return
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if !containsString(c.lastGroundingSources, chunk.Web.URI) {
			c.lastGroundingSources = append(c.lastGroundingSources, chunk.Web.URI)
			logging.APIDebug("grounding source: %s", chunk.Web.URI)
		}
	}
}

// GroundingSources returns the source URLs collected from the last grounded
// completion.
func (c *GeminiClient) GroundingSources() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lastGroundingSources))
	copy(out, c.lastGroundingSources)
	return out
}

// ResetGrounding clears collected grounding sources before a new request.
func (c *GeminiClient) ResetGrounding() {
	c.mu.Lock()
	c.lastGroundingSources = nil
	c.mu.Unlock()
}

// throttle enforces a minimum spacing between requests.
func (c *GeminiClient) throttle() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 600*time.Millisecond {
		time.Sleep(600*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

// SetModel changes the model used for completions. Safe for concurrent use
// with in-flight requests.
func (c *GeminiClient) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
