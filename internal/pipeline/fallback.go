package pipeline

import (
	"context"

	"github.com/google/uuid"

	"widgetforge/internal/logging"
	"widgetforge/internal/perception"
	"widgetforge/internal/widget"
)

// Runner is the public entry point: it wraps the orchestrator in the
// three-tier fallback chain. Run never returns an error and always delivers
// exactly one terminal complete event.
type Runner struct {
	orch *Orchestrator
}

// NewRunner wraps an orchestrator.
func NewRunner(orch *Orchestrator) *Runner {
	return &Runner{orch: orch}
}

// RunOption customizes a single request.
type RunOption func(*runOptions)

type runOptions struct {
	model      string
	dataSource widget.DataSource
	requestID  string
}

// WithModel selects the generation model for this request.
func WithModel(model string) RunOption {
	return func(o *runOptions) { o.model = model }
}

// WithDataSourceOverride forces the data source regardless of what the
// planner decides.
func WithDataSourceOverride(ds widget.DataSource) RunOption {
	return func(o *runOptions) { o.dataSource = ds }
}

// WithRequestID pins the request ID instead of generating one.
func WithRequestID(id string) RunOption {
	return func(o *runOptions) { o.requestID = id }
}

// Run processes one query, delivering progress events and exactly one
// terminal complete event through onUpdate. The three tiers:
//
//  1. the orchestrator with the caller's (or planner's) data source;
//  2. on failure, a re-run pinned to the cheapest data source, unless the
//     first run already used it;
//  3. on repeated failure, a synthesized fixed-shape text artifact emitted
//     directly, with no generation call. This tier cannot fail.
func (r *Runner) Run(ctx context.Context, query string, onUpdate func(widget.ProgressEvent), opts ...RunOption) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	requestID := o.requestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if o.model != "" {
		if ma, ok := r.orch.client.(perception.ModelAware); ok {
			ma.SetModel(o.model)
		}
	}

	emit := func(ev widget.ProgressEvent) {
		ev.RequestID = requestID
		if onUpdate != nil {
			onUpdate(ev)
		}
	}

	logging.Pipeline("run %s: %q (override=%s model=%s)", requestID, query, o.dataSource, o.model)

	resp, used, err := r.orch.Execute(ctx, query, o.dataSource, emit)
	if err != nil {
		logging.Fallback("run %s: tier 1 failed (source=%s): %v", requestID, used, err)
		logging.Get(logging.CategoryFallback).StructuredLog("warn", "tier escalation", map[string]any{
			"request": requestID,
			"tier":    2,
			"source":  string(used),
		})

		if used != widget.CheapestSource {
			resp, _, err = r.orch.Execute(ctx, query, widget.CheapestSource, emit)
		}
		if resp == nil || err != nil {
			if err != nil {
				logging.Fallback("run %s: tier 2 failed: %v", requestID, err)
			}
			logging.Fallback("run %s: emitting tier 3 synthetic artifact", requestID)
			resp = syntheticFallbackResponse(query)
		}
	}

	emit(widget.CompleteEvent(*resp))
}

// RunToCompletion runs the query and returns the terminal response once the
// complete event fires.
func (r *Runner) RunToCompletion(ctx context.Context, query string, opts ...RunOption) widget.Response {
	var final widget.Response
	r.Run(ctx, query, func(ev widget.ProgressEvent) {
		if ev.Type == widget.EventComplete && ev.Response != nil {
			final = *ev.Response
		}
	}, opts...)
	return final
}

// RunStream runs the query in a goroutine and delivers its events over a
// channel, closed after the terminal complete event. Event count per request
// is small and bounded, so the buffer makes the producer non-blocking.
func (r *Runner) RunStream(ctx context.Context, query string, opts ...RunOption) <-chan widget.ProgressEvent {
	events := make(chan widget.ProgressEvent, 32)
	go func() {
		defer close(events)
		r.Run(ctx, query, func(ev widget.ProgressEvent) {
			events <- ev
		}, opts...)
	}()
	return events
}

// syntheticFallbackResponse is the tier-3 safety net: a fixed-shape text
// artifact built without any generation call. Error stays unset; the widget
// itself explains the outcome.
func syntheticFallbackResponse(query string) *widget.Response {
	return &widget.Response{
		Widget: &widget.Artifact{
			Type: widget.WidgetText,
			Data: map[string]any{
				"text":  "Unable to generate a widget for this request. Try rephrasing your query.",
				"query": query,
			},
		},
	}
}
