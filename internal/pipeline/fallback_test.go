package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widgetforge/internal/widget"
)

func TestRun_ExactlyOneCompleteEventLast(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "stock price of Acme Corp", collectEvents(&events))

	require.NotEmpty(t, events)
	completes := 0
	for _, ev := range events {
		if ev.Type == widget.EventComplete {
			completes++
		}
	}
	assert.Equal(t, 1, completes)
	assert.Equal(t, widget.EventComplete, events[len(events)-1].Type, "complete must be the final event")
}

// Totality: whatever single phase fails, Run still terminates with exactly
// one complete event and never panics or errors.
func TestRun_TotalityUnderInjectedFailures(t *testing.T) {
	tests := []struct {
		name  string
		build func() *mockClient
	}{
		{"plan fails", func() *mockClient {
			m := happyMock()
			m.plan.fn = alwaysGarbage()
			return m
		}},
		{"data fails", func() *mockClient {
			m := happyMock()
			m.data.fn = alwaysGarbage()
			return m
		}},
		{"render fails", func() *mockClient {
			m := happyMock()
			m.render.fn = alwaysGarbage()
			return m
		}},
		{"everything fails", func() *mockClient {
			return &mockClient{
				plan:   phaseScript{fn: alwaysGarbage()},
				data:   phaseScript{fn: alwaysGarbage()},
				render: phaseScript{fn: alwaysGarbage()},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(newTestOrchestrator(tt.build()))

			var events []widget.ProgressEvent
			runner.Run(context.Background(), "anything at all", collectEvents(&events))

			completes := 0
			for _, ev := range events {
				if ev.Type == widget.EventComplete {
					completes++
					require.NotNil(t, ev.Response)
					assert.False(t, ev.Response.Error)
					require.NotNil(t, ev.Response.Widget, "failure is represented as a normal artifact")
					assert.NotEmpty(t, ev.Response.Widget.Data)
				}
			}
			assert.Equal(t, 1, completes)
			assert.Equal(t, widget.EventComplete, events[len(events)-1].Type)
		})
	}
}

// Tiering: a failed live-fetch run must be retried pinned to the cheapest
// mode before any tier-3 synthetic artifact appears.
func TestRun_FallbackTieringPinsCheapestMode(t *testing.T) {
	mock := happyMock()
	mock.plan.fn = respond(`{"widgetType":"metric-card","dataSource":"live-fetch","searchQuery":"acme stock"}`)
	mock.render.fn = alwaysGarbage() // both tiers fail at final validation
	runner := NewRunner(newTestOrchestrator(mock))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "stock price of Acme Corp", collectEvents(&events))

	var planSources []widget.DataSource
	for _, ev := range events {
		if ev.Type == widget.EventPlan {
			planSources = append(planSources, ev.Plan.DataSource)
		}
	}
	require.Equal(t, []widget.DataSource{widget.SourceLiveFetch, widget.CheapestSource}, planSources,
		"tier 2 must run pinned to the cheapest mode")

	last := events[len(events)-1]
	require.Equal(t, widget.EventComplete, last.Type)
	require.NotNil(t, last.Response.Widget)
	assert.Equal(t, widget.WidgetText, last.Response.Widget.Type)
	assert.Equal(t, "stock price of Acme Corp", last.Response.Widget.Data["query"])
	assert.False(t, last.Response.Error)
}

func TestRun_NoTier2WhenAlreadyCheapest(t *testing.T) {
	mock := happyMock()
	mock.render.fn = alwaysGarbage()
	runner := NewRunner(newTestOrchestrator(mock))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "anything", collectEvents(&events))

	planEvents := 0
	for _, ev := range events {
		if ev.Type == widget.EventPlan {
			planEvents++
		}
	}
	assert.Equal(t, 1, planEvents, "synthetic tier-1 failure goes straight to tier 3")
	assert.Equal(t, widget.EventComplete, events[len(events)-1].Type)
}

func TestRun_ProgressMonotonicity(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	var progress []int
	runner.Run(context.Background(), "stock price of Acme Corp", func(ev widget.ProgressEvent) {
		if ev.Type == widget.EventProgress {
			progress = append(progress, ev.Progress)
		}
	})

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress must be non-decreasing")
	}
	assert.Equal(t, 100, progress[len(progress)-1])
	assert.Equal(t, []int{10, 40, 70, 90, 100}, progress)
}

func TestRun_AcmeEndToEnd(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	resp := runner.RunToCompletion(context.Background(), "stock price of Acme Corp")
	require.NotNil(t, resp.Widget)
	assert.Equal(t, "$123.45", resp.Widget.Data["price"])
	assert.False(t, resp.Error)
}

func TestRun_RequestIDOnAllEvents(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "anything", collectEvents(&events), WithRequestID("req-123"))

	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, "req-123", ev.RequestID)
	}
}

func TestRun_GeneratesRequestID(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "anything", collectEvents(&events))

	require.NotEmpty(t, events)
	id := events[0].RequestID
	assert.NotEmpty(t, id)
	for _, ev := range events {
		assert.Equal(t, id, ev.RequestID)
	}
}

func TestRun_WithModelSwitchesClientModel(t *testing.T) {
	mock := happyMock()
	runner := NewRunner(newTestOrchestrator(mock))

	runner.Run(context.Background(), "anything", nil, WithModel("cheap-model"))
	assert.Equal(t, "cheap-model", mock.GetModel())
}

func TestRun_DataSourceOverrideOption(t *testing.T) {
	mock := happyMock()
	mock.plan.fn = respond(`{"widgetType":"metric-card","dataSource":"live-fetch","searchQuery":"x"}`)
	runner := NewRunner(newTestOrchestrator(mock))

	var events []widget.ProgressEvent
	runner.Run(context.Background(), "anything", collectEvents(&events), WithDataSourceOverride(widget.SourceSynthetic))

	for _, ev := range events {
		if ev.Type == widget.EventPlan {
			assert.Equal(t, widget.SourceSynthetic, ev.Plan.DataSource)
		}
	}
}

func TestRunStream_DeliversAndCloses(t *testing.T) {
	runner := NewRunner(newTestOrchestrator(happyMock()))

	var events []widget.ProgressEvent
	for ev := range runner.RunStream(context.Background(), "stock price of Acme Corp") {
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, widget.EventComplete, last.Type)
	assert.Equal(t, "$123.45", last.Response.Widget.Data["price"])
}
