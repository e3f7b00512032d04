package widget

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldString(t *testing.T) {
	m := map[string]any{
		"s": "hello",
		"n": 42.0,
		"f": 1.5,
		"b": true,
		"z": nil,
	}

	tests := []struct {
		key  string
		want string
	}{
		{"s", "hello"},
		{"n", "42"},
		{"f", "1.5"},
		{"b", "true"},
		{"z", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		if got := FieldString(m, tt.key); got != tt.want {
			t.Errorf("FieldString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFieldBool(t *testing.T) {
	m := map[string]any{
		"t":   true,
		"f":   false,
		"st":  "true",
		"sf":  "False",
		"bad": "maybe",
		"n":   1.0,
	}

	tests := []struct {
		key    string
		want   bool
		wantOK bool
	}{
		{"t", true, true},
		{"f", false, true},
		{"st", true, true},
		{"sf", false, true},
		{"bad", false, false},
		{"n", false, false},
		{"missing", false, false},
	}
	for _, tt := range tests {
		got, ok := FieldBool(m, tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FieldBool(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFieldStringSlice(t *testing.T) {
	m := map[string]any{
		"list":  []any{"a", "b", 3.0},
		"lone":  "solo",
		"empty": "",
		"obj":   map[string]any{},
	}

	if diff := cmp.Diff([]string{"a", "b", "3"}, FieldStringSlice(m, "list")); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"solo"}, FieldStringSlice(m, "lone")); diff != "" {
		t.Errorf("lone mismatch (-want +got):\n%s", diff)
	}
	if got := FieldStringSlice(m, "empty"); got != nil {
		t.Errorf("empty string should yield nil, got %v", got)
	}
	if got := FieldStringSlice(m, "obj"); got != nil {
		t.Errorf("object should yield nil, got %v", got)
	}
}

// NormalizeMap must produce exactly the shape encoding/json produces, so that
// hand-built payloads and parsed payloads compare equal downstream.
func TestNormalizeMap_MatchesJSONRoundTrip(t *testing.T) {
	in := map[string]any{
		"int":    7,
		"int64":  int64(8),
		"f32":    float32(2),
		"nested": map[string]any{"deep": []any{1, "two", true, nil}},
	}

	normalized := NormalizeMap(in)

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(roundTripped, normalized); diff != "" {
		t.Errorf("NormalizeMap diverges from JSON round-trip (-want +got):\n%s", diff)
	}
}

func TestNormalizeMap_NilBecomesEmpty(t *testing.T) {
	got := NormalizeMap(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("NormalizeMap(nil) = %v, want empty map", got)
	}
}
