// Package widget defines the artifacts exchanged between pipeline phases:
// the Plan produced by the planning phase, the DataResult produced by the
// data-acquisition phase, and the final renderable Artifact. All payloads are
// plain JSON values; validators in this package normalize and check them.
package widget

// WidgetType selects the rendering shape of the final artifact.
type WidgetType string

const (
	WidgetMetricCard WidgetType = "metric-card"
	WidgetLineChart  WidgetType = "line-chart"
	WidgetBarChart   WidgetType = "bar-chart"
	WidgetTable      WidgetType = "table"
	WidgetList       WidgetType = "list"
	WidgetText       WidgetType = "text"
)

// KnownWidgetTypes is the closed set accepted by validators.
var KnownWidgetTypes = map[WidgetType]bool{
	WidgetMetricCard: true,
	WidgetLineChart:  true,
	WidgetBarChart:   true,
	WidgetTable:      true,
	WidgetList:       true,
	WidgetText:       true,
}

// DataSource selects how the data-acquisition phase obtains its DataResult.
type DataSource string

const (
	SourceLiveFetch     DataSource = "live-fetch"
	SourceSynthetic     DataSource = "synthetic"
	SourceCannedDataset DataSource = "canned-dataset"
)

// CheapestSource is the mode the fallback chain pins on tier-2 re-runs.
// Synthetic generation needs no external fetch and no dataset.
const CheapestSource = SourceSynthetic

// KnownDataSources is the closed set accepted by validators.
var KnownDataSources = map[DataSource]bool{
	SourceLiveFetch:     true,
	SourceSynthetic:     true,
	SourceCannedDataset: true,
}

// Confidence grades how trustworthy a DataResult is.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Plan is the planning phase's artifact. Exactly one Plan exists per request;
// it is immutable after planning except for a single caller-directed override
// of DataSource applied by the orchestrator before data acquisition.
type Plan struct {
	WidgetType    WidgetType `json:"widgetType"`
	DataSource    DataSource `json:"dataSource"`
	SearchQuery   string     `json:"searchQuery,omitempty"`
	QueryIntent   string     `json:"queryIntent,omitempty"`
	DataStructure string     `json:"dataStructure,omitempty"`
	KeyEntities   []string   `json:"keyEntities,omitempty"`
	Reasoning     string     `json:"reasoning,omitempty"`
}

// DataResult is the data-acquisition phase's artifact. Data is an open field
// mapping; Source records provenance (URLs, dataset name) when known.
type DataResult struct {
	Data       map[string]any `json:"data"`
	Source     string         `json:"source,omitempty"`
	Confidence Confidence     `json:"confidence"`
}

// Artifact is the rendering payload handed to the presentation collaborator.
// Type must equal the WidgetType of the Plan that produced it.
type Artifact struct {
	Type   WidgetType     `json:"type"`
	Data   map[string]any `json:"data"`
	Config map[string]any `json:"config,omitempty"`
}

// Response is the terminal payload of a pipeline run. Either Widget is set
// (Error false) or TextResponse explains the failure (Error true). The
// TextResponse branch exists for the wire shape only: no current producer
// sets it, because the fallback chain always delivers a widget - the tier-3
// synthetic artifact arrives as a normal Widget with Error unset.
type Response struct {
	Widget       *Artifact `json:"widget,omitempty"`
	Source       string    `json:"source,omitempty"`
	TextResponse string    `json:"textResponse,omitempty"`
	Error        bool      `json:"error,omitempty"`
}

// ValidationResult is returned by every validator. Phase functions treat
// Valid=false as a retryable failure and feed Errors into the next prompt.
type ValidationResult[T any] struct {
	Valid      bool
	Errors     []string
	Normalized T
}

// Invalid builds a failed result from defect strings.
func Invalid[T any](errs ...string) ValidationResult[T] {
	return ValidationResult[T]{Valid: false, Errors: errs}
}

// Valid builds a passing result carrying the normalized artifact.
func Valid[T any](normalized T) ValidationResult[T] {
	return ValidationResult[T]{Valid: true, Normalized: normalized}
}
