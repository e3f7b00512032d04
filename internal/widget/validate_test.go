package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name       string
		input      map[string]any
		wantValid  bool
		wantSource DataSource
		wantType   WidgetType
	}{
		{
			name: "complete plan",
			input: map[string]any{
				"widgetType":  "metric-card",
				"dataSource":  "synthetic",
				"keyEntities": []any{"Acme Corp"},
				"reasoning":   "single value lookup",
			},
			wantValid:  true,
			wantSource: SourceSynthetic,
			wantType:   WidgetMetricCard,
		},
		{
			name: "live fetch with search query",
			input: map[string]any{
				"widgetType":  "line-chart",
				"dataSource":  "live-fetch",
				"searchQuery": "acme stock price history",
			},
			wantValid:  true,
			wantSource: SourceLiveFetch,
			wantType:   WidgetLineChart,
		},
		{
			name: "live fetch missing search query",
			input: map[string]any{
				"widgetType": "line-chart",
				"dataSource": "live-fetch",
			},
			wantValid: false,
		},
		{
			name: "deprecated needsWebSearch true maps to live-fetch",
			input: map[string]any{
				"widgetType":     "table",
				"needsWebSearch": true,
				"searchQuery":    "top widgets",
			},
			wantValid:  true,
			wantSource: SourceLiveFetch,
			wantType:   WidgetTable,
		},
		{
			name: "deprecated needsWebSearch false maps to synthetic",
			input: map[string]any{
				"widgetType":     "table",
				"needsWebSearch": false,
			},
			wantValid:  true,
			wantSource: SourceSynthetic,
			wantType:   WidgetTable,
		},
		{
			name: "unknown widget type",
			input: map[string]any{
				"widgetType": "hologram",
				"dataSource": "synthetic",
			},
			wantValid: false,
		},
		{
			name: "unknown data source",
			input: map[string]any{
				"widgetType": "text",
				"dataSource": "telepathy",
			},
			wantValid: false,
		},
		{
			name:      "missing everything",
			input:     map[string]any{},
			wantValid: false,
		},
		{
			name:      "nil payload",
			input:     nil,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidatePlan(tt.input)
			if res.Valid != tt.wantValid {
				t.Fatalf("ValidatePlan() valid = %v, want %v (errors: %v)", res.Valid, tt.wantValid, res.Errors)
			}
			if !tt.wantValid {
				require.NotEmpty(t, res.Errors, "invalid result must carry defects")
				return
			}
			assert.Equal(t, tt.wantSource, res.Normalized.DataSource)
			assert.Equal(t, tt.wantType, res.Normalized.WidgetType)
		})
	}
}

func TestValidateDataResult(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]any
		wantValid bool
	}{
		{
			name: "valid high confidence",
			input: map[string]any{
				"data":       map[string]any{"price": "$123.45"},
				"confidence": "high",
				"source":     "https://example.com/acme",
			},
			wantValid: true,
		},
		{
			name: "missing data object",
			input: map[string]any{
				"confidence": "low",
			},
			wantValid: false,
		},
		{
			name: "bad confidence",
			input: map[string]any{
				"data":       map[string]any{},
				"confidence": "certain",
			},
			wantValid: false,
		},
		{
			name: "missing confidence",
			input: map[string]any{
				"data": map[string]any{"a": 1.0},
			},
			wantValid: false,
		},
		{
			name: "case insensitive confidence",
			input: map[string]any{
				"data":       map[string]any{"a": 1.0},
				"confidence": "Medium",
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateDataResult(tt.input)
			if res.Valid != tt.wantValid {
				t.Errorf("ValidateDataResult() valid = %v, want %v (errors: %v)", res.Valid, tt.wantValid, res.Errors)
			}
		})
	}
}

func TestValidateArtifact_TypeMustMatchPlan(t *testing.T) {
	payload := map[string]any{
		"type": "metric-card",
		"data": map[string]any{"value": "$123.45"},
	}

	res := ValidateArtifact(payload, WidgetMetricCard)
	require.True(t, res.Valid, "matching type should validate: %v", res.Errors)
	assert.Equal(t, WidgetMetricCard, res.Normalized.Type)

	res = ValidateArtifact(payload, WidgetLineChart)
	require.False(t, res.Valid, "type mismatch must be a defect, not silently accepted")
	assert.Contains(t, res.Errors[0], "does not match planned widget type")
}

func TestValidateArtifact_EmptyData(t *testing.T) {
	res := ValidateArtifact(map[string]any{
		"type": "text",
		"data": map[string]any{},
	}, WidgetText)
	if res.Valid {
		t.Fatal("empty data must be a defect")
	}
}

func TestCheckArtifact(t *testing.T) {
	ok := Artifact{Type: WidgetText, Data: map[string]any{"body": "hi"}}
	if errs := CheckArtifact(ok, WidgetText); len(errs) != 0 {
		t.Fatalf("unexpected defects: %v", errs)
	}

	mismatch := Artifact{Type: WidgetText, Data: map[string]any{"body": "hi"}}
	if errs := CheckArtifact(mismatch, WidgetMetricCard); len(errs) == 0 {
		t.Fatal("expected type mismatch defect")
	}

	empty := Artifact{Type: WidgetText}
	if errs := CheckArtifact(empty, WidgetText); len(errs) == 0 {
		t.Fatal("expected empty data defect")
	}
}
