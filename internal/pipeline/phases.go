package pipeline

import (
	"context"

	"widgetforge/internal/logging"
	"widgetforge/internal/perception"
	"widgetforge/internal/widget"
)

// Phase functions. Each builds its prompt, delegates to runWithRetry, and on
// exhaustion degrades to a phase-local default. No phase returns an error:
// partial failure is absorbed as degraded quality, never as pipeline abort.

// planWidget produces the Plan for a query, or a trivial synthetic metric-card
// plan when planning exhausts its retries.
func (o *Orchestrator) planWidget(ctx context.Context, query string) widget.Plan {
	plan, err := runWithRetry(ctx, "plan", o.maxRetries, o.retryDelay,
		func(ctx context.Context, feedback string) (string, error) {
			return o.client.CompleteWithSystem(ctx, planSystemPrompt, buildPlanPrompt(query)+feedback)
		},
		widget.ValidatePlan,
	)
	if err != nil {
		logging.Plan("degrading to trivial plan: %v", err)
		return widget.Plan{
			WidgetType:    widget.WidgetMetricCard,
			DataSource:    widget.SourceSynthetic,
			QueryIntent:   query,
			DataStructure: "single-value",
			Reasoning:     "planning did not produce a usable plan",
		}
	}
	logging.Plan("planned %s widget via %s", plan.WidgetType, plan.DataSource)
	return plan
}

// acquireData branches on the plan's data source and always produces exactly
// one DataResult.
func (o *Orchestrator) acquireData(ctx context.Context, plan widget.Plan, query string) widget.DataResult {
	switch plan.DataSource {
	case widget.SourceLiveFetch:
		return o.fetchLiveData(ctx, plan, query)
	case widget.SourceCannedDataset:
		return o.queryCannedDataset(ctx, plan, query)
	default:
		return o.generateSyntheticData(ctx, plan, query)
	}
}

// generateSyntheticData asks the model to invent plausible demonstration data.
func (o *Orchestrator) generateSyntheticData(ctx context.Context, plan widget.Plan, query string) widget.DataResult {
	result, err := runWithRetry(ctx, "data-synthetic", o.maxRetries, o.retryDelay,
		func(ctx context.Context, feedback string) (string, error) {
			return o.client.CompleteWithSystem(ctx, dataSystemPrompt, buildSyntheticDataPrompt(plan, query)+feedback)
		},
		widget.ValidateDataResult,
	)
	if err != nil {
		logging.Data("synthetic generation degraded to empty dataset: %v", err)
		return emptyDataResult()
	}
	return result
}

// fetchLiveData gathers web content for the plan's search query and has the
// model distill it into a DataResult. Streaming is used when the provider
// supports it so tool activity (e.g. a grounding search) surfaces in the logs.
func (o *Orchestrator) fetchLiveData(ctx context.Context, plan widget.Plan, query string) widget.DataResult {
	if o.fetcher == nil {
		logging.Data("no live fetcher configured, degrading to empty dataset")
		return emptyDataResult()
	}

	corpus, sources, err := o.fetcher.Gather(ctx, plan.SearchQuery)
	if err != nil || corpus == "" {
		logging.Data("live fetch produced no content (err=%v), degrading to empty dataset", err)
		return emptyDataResult()
	}
	logging.Data("live fetch gathered %d bytes from %d sources", len(corpus), len(sources))

	result, err := runWithRetry(ctx, "data-live", o.maxRetries, o.retryDelay,
		func(ctx context.Context, feedback string) (string, error) {
			prompt := buildLiveDataPrompt(plan, query, corpus, sources) + feedback
			if sc, ok := o.client.(perception.StreamingLLMClient); ok {
				return sc.CompleteStreaming(ctx, dataSystemPrompt, prompt, func(chunk perception.StreamChunk) error {
					if chunk.Type == "tool" {
						logging.Fetch("model invoked external tool: %s", chunk.Text)
					}
					return nil
				})
			}
			return o.client.CompleteWithSystem(ctx, dataSystemPrompt, prompt)
		},
		widget.ValidateDataResult,
	)
	if err != nil {
		logging.Data("live distillation degraded to empty dataset: %v", err)
		return emptyDataResult()
	}
	if result.Source == "" && len(sources) > 0 {
		result.Source = sources[0]
	}
	return result
}

// queryCannedDataset looks up candidate rows in the reference store and has
// the model shape them for the widget.
func (o *Orchestrator) queryCannedDataset(ctx context.Context, plan widget.Plan, query string) widget.DataResult {
	if o.dataset == nil {
		logging.Data("no canned dataset configured, degrading to empty dataset")
		return emptyDataResult()
	}

	rows, datasetName, err := o.dataset.Lookup(ctx, plan.KeyEntities, query)
	if err != nil || len(rows) == 0 {
		logging.Data("dataset lookup found nothing (err=%v), degrading to empty dataset", err)
		return emptyDataResult()
	}
	logging.Data("dataset %q matched %d rows", datasetName, len(rows))

	result, err := runWithRetry(ctx, "data-canned", o.maxRetries, o.retryDelay,
		func(ctx context.Context, feedback string) (string, error) {
			return o.client.CompleteWithSystem(ctx, dataSystemPrompt, buildDatasetDataPrompt(plan, query, datasetName, rows)+feedback)
		},
		widget.ValidateDataResult,
	)
	if err != nil {
		logging.Data("dataset shaping degraded to empty dataset: %v", err)
		return emptyDataResult()
	}
	if result.Source == "" {
		result.Source = datasetName
	}
	return result
}

// renderArtifact produces the final widget payload, or a minimal text
// artifact carrying the original query when rendering exhausts its retries.
func (o *Orchestrator) renderArtifact(ctx context.Context, plan widget.Plan, data widget.DataResult, query string) widget.Artifact {
	artifact, err := runWithRetry(ctx, "render", o.maxRetries, o.retryDelay,
		func(ctx context.Context, feedback string) (string, error) {
			return o.client.CompleteWithSystem(ctx, renderSystemPrompt, buildRenderPrompt(plan, data, query)+feedback)
		},
		func(m map[string]any) widget.ValidationResult[widget.Artifact] {
			return widget.ValidateArtifact(m, plan.WidgetType)
		},
	)
	if err != nil {
		logging.Render("degrading to minimal text artifact: %v", err)
		return widget.Artifact{
			Type: widget.WidgetText,
			Data: map[string]any{
				"text":  "Unable to complete widget generation for this request.",
				"query": query,
			},
		}
	}
	return artifact
}

func emptyDataResult() widget.DataResult {
	return widget.DataResult{
		Data:       map[string]any{},
		Confidence: widget.ConfidenceLow,
	}
}
