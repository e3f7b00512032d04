package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"widgetforge/internal/widget"
)

// Prompt templates for the three phases. Plain string formatting only; the
// retry wrapper appends its feedback block after the rendered template.

const planSystemPrompt = `You are a widget planner. Given a user query, decide what kind of widget best answers it and how its data should be obtained. Respond with a single JSON object and nothing else.`

const planPromptTemplate = `Plan a widget for this user query.

Query: %q

Respond with a JSON object of this exact shape:
{
  "widgetType": one of "metric-card", "line-chart", "bar-chart", "table", "list", "text",
  "dataSource": one of "live-fetch", "synthetic", "canned-dataset",
  "searchQuery": string (required when dataSource is "live-fetch"),
  "queryIntent": short restatement of what the user wants,
  "dataStructure": short tag describing the data shape, e.g. "single-value" or "time-series",
  "keyEntities": array of the named entities in the query,
  "reasoning": one sentence on why this widget type fits
}

Choose "live-fetch" only when the query needs current real-world values. Choose "canned-dataset" when the query is about a known static domain. Otherwise choose "synthetic".`

const dataSystemPrompt = `You are a data generator for dashboard widgets. Respond with a single JSON object and nothing else.`

const syntheticDataPromptTemplate = `Produce plausible demonstration data for a widget.

User query: %q
Widget type: %s
Intended data structure: %s
Key entities: %s

Respond with a JSON object of this exact shape:
{
  "data": object mapping field names to values, shaped for the widget type,
  "source": null,
  "confidence": one of "low", "medium", "high"
}

The data is illustrative, so confidence should normally be "low" or "medium".`

const liveDataPromptTemplate = `Extract the data a widget needs from fetched web content.

User query: %q
Widget type: %s
Intended data structure: %s

Fetched content (may be noisy):
---
%s
---

Respond with a JSON object of this exact shape:
{
  "data": object mapping field names to values found in the content,
  "source": the most relevant source URL from: %s,
  "confidence": one of "low", "medium", "high"
}

Only report values actually present in the content; leave fields out rather than inventing them.`

const datasetDataPromptTemplate = `Shape rows from a reference dataset into widget data.

User query: %q
Widget type: %s
Dataset: %s
Candidate rows:
%s

Respond with a JSON object of this exact shape:
{
  "data": object mapping field names to values drawn from the rows,
  "source": %q,
  "confidence": one of "low", "medium", "high"
}

Use only the candidate rows; confidence reflects how well they answer the query.`

const renderSystemPrompt = `You are a widget renderer. You turn a plan and its data into the final widget payload. Respond with a single JSON object and nothing else.`

const renderPromptTemplate = `Build the final widget payload.

User query: %q
Widget type (the "type" field MUST be exactly this): %s
Data:
%s

Respond with a JSON object of this exact shape:
{
  "type": %q,
  "data": object with the fields the widget needs, derived from the data above,
  "config": optional object of presentation hints (titles, labels, units)
}`

func buildPlanPrompt(query string) string {
	return fmt.Sprintf(planPromptTemplate, query)
}

func buildSyntheticDataPrompt(plan widget.Plan, query string) string {
	return fmt.Sprintf(syntheticDataPromptTemplate,
		query, plan.WidgetType, orUnspecified(plan.DataStructure), entityList(plan.KeyEntities))
}

func buildLiveDataPrompt(plan widget.Plan, query, corpus string, sources []string) string {
	return fmt.Sprintf(liveDataPromptTemplate,
		query, plan.WidgetType, orUnspecified(plan.DataStructure), corpus, strings.Join(sources, ", "))
}

func buildDatasetDataPrompt(plan widget.Plan, query, datasetName string, rows []map[string]any) string {
	return fmt.Sprintf(datasetDataPromptTemplate,
		query, plan.WidgetType, datasetName, compactJSON(rows), datasetName)
}

func buildRenderPrompt(plan widget.Plan, data widget.DataResult, query string) string {
	return fmt.Sprintf(renderPromptTemplate,
		query, plan.WidgetType, compactJSON(data.Data), plan.WidgetType)
}

func orUnspecified(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}

func entityList(entities []string) string {
	if len(entities) == 0 {
		return "none identified"
	}
	return strings.Join(entities, ", ")
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
