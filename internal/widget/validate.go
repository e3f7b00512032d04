package widget

import (
	"fmt"
	"strings"
)

// Validators are pure predicates over parsed LLM output. Each returns the
// normalized artifact when the shape is acceptable, or an ordered list of
// human-readable defects that the retry wrapper feeds back into the next
// generation attempt.

// ValidatePlan checks and normalizes a parsed planning-phase payload.
// The deprecated boolean needsWebSearch form is folded into the three-way
// dataSource enum here; it is not a second supported mode.
func ValidatePlan(m map[string]any) ValidationResult[Plan] {
	if m == nil {
		return Invalid[Plan]("plan payload is not a JSON object")
	}

	var errs []string

	wt := WidgetType(strings.TrimSpace(strings.ToLower(FieldString(m, "widgetType"))))
	if wt == "" {
		errs = append(errs, `missing required field "widgetType"`)
	} else if !KnownWidgetTypes[wt] {
		errs = append(errs, fmt.Sprintf("unknown widgetType %q (expected one of: metric-card, line-chart, bar-chart, table, list, text)", wt))
	}

	ds := DataSource(strings.TrimSpace(strings.ToLower(FieldString(m, "dataSource"))))
	if ds == "" {
		// Legacy planner revisions emitted needsWebSearch instead of the enum.
		if needs, ok := FieldBool(m, "needsWebSearch"); ok {
			if needs {
				ds = SourceLiveFetch
			} else {
				ds = SourceSynthetic
			}
		} else {
			errs = append(errs, `missing required field "dataSource" (one of: live-fetch, synthetic, canned-dataset)`)
		}
	} else if !KnownDataSources[ds] {
		errs = append(errs, fmt.Sprintf("unknown dataSource %q (expected one of: live-fetch, synthetic, canned-dataset)", ds))
	}

	searchQuery := strings.TrimSpace(FieldString(m, "searchQuery"))
	if ds == SourceLiveFetch && searchQuery == "" {
		errs = append(errs, `dataSource "live-fetch" requires a non-empty "searchQuery"`)
	}

	if len(errs) > 0 {
		return Invalid[Plan](errs...)
	}

	return Valid(Plan{
		WidgetType:    wt,
		DataSource:    ds,
		SearchQuery:   searchQuery,
		QueryIntent:   strings.TrimSpace(FieldString(m, "queryIntent")),
		DataStructure: strings.TrimSpace(FieldString(m, "dataStructure")),
		KeyEntities:   FieldStringSlice(m, "keyEntities"),
		Reasoning:     strings.TrimSpace(FieldString(m, "reasoning")),
	})
}

// ValidateDataResult checks and normalizes a parsed data-phase payload.
func ValidateDataResult(m map[string]any) ValidationResult[DataResult] {
	if m == nil {
		return Invalid[DataResult]("data payload is not a JSON object")
	}

	var errs []string

	data := FieldMap(m, "data")
	if data == nil {
		errs = append(errs, `missing required object field "data"`)
	}

	conf := Confidence(strings.TrimSpace(strings.ToLower(FieldString(m, "confidence"))))
	switch conf {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	case "":
		errs = append(errs, `missing required field "confidence" (one of: low, medium, high)`)
	default:
		errs = append(errs, fmt.Sprintf("unknown confidence %q (expected one of: low, medium, high)", conf))
	}

	if len(errs) > 0 {
		return Invalid[DataResult](errs...)
	}

	return Valid(DataResult{
		Data:       NormalizeMap(data),
		Source:     strings.TrimSpace(FieldString(m, "source")),
		Confidence: conf,
	})
}

// ValidateArtifact checks and normalizes a parsed render-phase payload.
// The artifact type must match the plan's widget type; a mismatch is a
// defect, never silently accepted.
func ValidateArtifact(m map[string]any, want WidgetType) ValidationResult[Artifact] {
	if m == nil {
		return Invalid[Artifact]("artifact payload is not a JSON object")
	}

	var errs []string

	at := WidgetType(strings.TrimSpace(strings.ToLower(FieldString(m, "type"))))
	if at == "" {
		errs = append(errs, `missing required field "type"`)
	} else if !KnownWidgetTypes[at] {
		errs = append(errs, fmt.Sprintf("unknown artifact type %q", at))
	} else if want != "" && at != want {
		errs = append(errs, fmt.Sprintf("artifact type %q does not match planned widget type %q", at, want))
	}

	data := FieldMap(m, "data")
	if data == nil {
		errs = append(errs, `missing required object field "data"`)
	} else if len(data) == 0 {
		errs = append(errs, `"data" must not be empty`)
	}

	if len(errs) > 0 {
		return Invalid[Artifact](errs...)
	}

	a := Artifact{
		Type: at,
		Data: NormalizeMap(data),
	}
	if cfg := FieldMap(m, "config"); cfg != nil {
		a.Config = NormalizeMap(cfg)
	}
	return Valid(a)
}

// CheckArtifact re-validates an already-typed artifact against a plan. The
// orchestrator uses this as the final gate before completing; it is the only
// validation whose failure is allowed to escape the pipeline.
func CheckArtifact(a Artifact, want WidgetType) []string {
	var errs []string
	if !KnownWidgetTypes[a.Type] {
		errs = append(errs, fmt.Sprintf("unknown artifact type %q", a.Type))
	}
	if want != "" && a.Type != want {
		errs = append(errs, fmt.Sprintf("artifact type %q does not match planned widget type %q", a.Type, want))
	}
	if len(a.Data) == 0 {
		errs = append(errs, "artifact data is empty")
	}
	return errs
}
