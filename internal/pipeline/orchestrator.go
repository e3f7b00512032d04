// Package pipeline drives a user query through the Plan, Data and Render
// phases, each validated and retried with corrective feedback, and wraps the
// whole run in a three-tier fallback chain that always terminates with a
// usable widget and never surfaces a failure to the caller.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"widgetforge/internal/config"
	"widgetforge/internal/logging"
	"widgetforge/internal/perception"
	"widgetforge/internal/widget"
)

// LiveFetcher gathers a text corpus for a search query. Implemented by the
// fetch package; nil disables the live-fetch data source.
type LiveFetcher interface {
	Gather(ctx context.Context, searchQuery string) (corpus string, sources []string, err error)
}

// DatasetLookup returns candidate rows from the canned reference store.
// Implemented by the dataset package; nil disables the canned-dataset source.
type DatasetLookup interface {
	Lookup(ctx context.Context, entities []string, query string) (rows []map[string]any, datasetName string, err error)
}

// Orchestrator sequences the three phases for one request at a time. It holds
// no per-request state, so a single instance serves concurrent requests.
type Orchestrator struct {
	client     perception.LLMClient
	fetcher    LiveFetcher
	dataset    DatasetLookup
	maxRetries int
	retryDelay time.Duration
}

// NewOrchestrator builds an orchestrator over the given generation client.
func NewOrchestrator(client perception.LLMClient, cfg config.PipelineConfig) *Orchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Orchestrator{
		client:     client,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelayDuration(),
	}
}

// SetLiveFetcher enables the live-fetch data source.
func (o *Orchestrator) SetLiveFetcher(f LiveFetcher) { o.fetcher = f }

// SetDatasetLookup enables the canned-dataset data source.
func (o *Orchestrator) SetDatasetLookup(d DatasetLookup) { o.dataset = d }

// Execute runs the four stages for one request: planning, data-acquisition,
// rendering, validating. A non-empty override replaces the plan's data source
// before branching (explicit caller intent beats the planner's inference).
// It returns the data source actually used so the fallback chain can decide
// whether a cheaper re-run is worthwhile.
//
// Execute fails only when the rendered artifact does not pass final
// validation. Every other failure has already been absorbed as degraded
// output by the phase that hit it.
func (o *Orchestrator) Execute(
	ctx context.Context,
	query string,
	override widget.DataSource,
	emit func(widget.ProgressEvent),
) (*widget.Response, widget.DataSource, error) {
	emit(widget.ProgressAt("planning", "Planning widget", 10))
	logging.Pipeline("stage planning: %q", query)

	plan := o.planWidget(ctx, query)
	if override != "" {
		logging.Pipeline("data source override: %s -> %s", plan.DataSource, override)
		plan.DataSource = override
	}
	emit(widget.PlanEvent(plan))

	emit(widget.ProgressAt("data-acquisition", fmt.Sprintf("Acquiring data (%s)", plan.DataSource), 40))
	logging.Pipeline("stage data-acquisition via %s", plan.DataSource)

	data := o.acquireData(ctx, plan, query)
	emit(widget.DataEvent(data))

	emit(widget.ProgressAt("rendering", "Rendering widget", 70))
	logging.Pipeline("stage rendering %s widget", plan.WidgetType)

	artifact := o.renderArtifact(ctx, plan, data, query)

	emit(widget.ProgressAt("validating", "Validating widget", 90))
	if errs := widget.CheckArtifact(artifact, plan.WidgetType); len(errs) > 0 {
		logging.Pipeline("final validation failed: %s", strings.Join(errs, "; "))
		return nil, plan.DataSource, fmt.Errorf("final artifact validation failed: %s", strings.Join(errs, "; "))
	}

	emit(widget.ProgressAt("complete", "Widget ready", 100))
	logging.Pipeline("stage complete: %s widget from %s", artifact.Type, plan.DataSource)

	return &widget.Response{Widget: &artifact, Source: data.Source}, plan.DataSource, nil
}
