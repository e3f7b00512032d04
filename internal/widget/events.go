package widget

// EventType discriminates ProgressEvent variants.
type EventType string

const (
	EventProgress EventType = "progress"
	EventPlan     EventType = "plan"
	EventData     EventType = "data"
	EventComplete EventType = "complete"
)

// ProgressEvent is the discriminated union delivered to the caller while a
// request runs. A request emits events in order and finishes with exactly one
// EventComplete event; Progress values are monotonically non-decreasing.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"requestId,omitempty"`

	// EventProgress fields
	Phase    string `json:"phase,omitempty"`
	Message  string `json:"message,omitempty"`
	Progress int    `json:"progress,omitempty"`

	// EventPlan / EventData / EventComplete payloads
	Plan       *Plan       `json:"plan,omitempty"`
	DataResult *DataResult `json:"dataResult,omitempty"`
	Response   *Response   `json:"response,omitempty"`
}

// ProgressAt builds a stage-boundary progress event.
func ProgressAt(phase, message string, progress int) ProgressEvent {
	return ProgressEvent{
		Type:     EventProgress,
		Phase:    phase,
		Message:  message,
		Progress: progress,
	}
}

// PlanEvent wraps a completed plan.
func PlanEvent(p Plan) ProgressEvent {
	return ProgressEvent{Type: EventPlan, Plan: &p}
}

// DataEvent wraps a completed data result.
func DataEvent(d DataResult) ProgressEvent {
	return ProgressEvent{Type: EventData, DataResult: &d}
}

// CompleteEvent wraps the terminal response.
func CompleteEvent(r Response) ProgressEvent {
	return ProgressEvent{Type: EventComplete, Response: &r}
}
