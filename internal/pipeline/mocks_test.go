package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// Canned valid payloads for the Acme metric-card scenario.
const (
	validPlanJSON     = `{"widgetType":"metric-card","dataSource":"synthetic","queryIntent":"current stock price","dataStructure":"single-value","keyEntities":["Acme Corp"],"reasoning":"a single value fits a metric card"}`
	validDataJSON     = `{"data":{"price":"$123.45"},"confidence":"high"}`
	validArtifactJSON = `{"type":"metric-card","data":{"price":"$123.45"},"config":{"title":"Acme Corp"}}`
)

// phaseScript drives one phase's responses. fn receives the zero-based call
// index and the user prompt.
type phaseScript struct {
	fn    func(call int, prompt string) (string, error)
	calls int
}

// mockClient routes completions to per-phase scripts keyed by system prompt.
// Set a script's fn to control that phase; unset phases fail loudly.
type mockClient struct {
	mu     sync.Mutex
	plan   phaseScript
	data   phaseScript
	render phaseScript
	model  string
}

func respond(s string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return s, nil }
}

func alwaysGarbage() func(int, string) (string, error) {
	return func(int, string) (string, error) { return "no json here at all", nil }
}

// happyMock returns a client scripted for a fully successful Acme run.
func happyMock() *mockClient {
	return &mockClient{
		plan:   phaseScript{fn: respond(validPlanJSON)},
		data:   phaseScript{fn: respond(validDataJSON)},
		render: phaseScript{fn: respond(validArtifactJSON)},
	}
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ps *phaseScript
	switch systemPrompt {
	case planSystemPrompt:
		ps = &m.plan
	case dataSystemPrompt:
		ps = &m.data
	case renderSystemPrompt:
		ps = &m.render
	default:
		return "", fmt.Errorf("unexpected system prompt: %q", systemPrompt)
	}

	call := ps.calls
	ps.calls++
	if ps.fn == nil {
		return "", fmt.Errorf("phase not scripted")
	}
	return ps.fn(call, userPrompt)
}

func (m *mockClient) SetModel(model string) {
	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
}

func (m *mockClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *mockClient) callCounts() (plan, data, render int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plan.calls, m.data.calls, m.render.calls
}

// mockFetcher implements LiveFetcher with overridable behavior.
type mockFetcher struct {
	GatherFunc func(ctx context.Context, searchQuery string) (string, []string, error)
	calls      int
}

func (m *mockFetcher) Gather(ctx context.Context, searchQuery string) (string, []string, error) {
	m.calls++
	if m.GatherFunc != nil {
		return m.GatherFunc(ctx, searchQuery)
	}
	return "", nil, fmt.Errorf("no fetcher script")
}

// mockDataset implements DatasetLookup with overridable behavior.
type mockDataset struct {
	LookupFunc func(ctx context.Context, entities []string, query string) ([]map[string]any, string, error)
	calls      int
}

func (m *mockDataset) Lookup(ctx context.Context, entities []string, query string) ([]map[string]any, string, error) {
	m.calls++
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, entities, query)
	}
	return nil, "", fmt.Errorf("no dataset script")
}
