package decode

import (
	"encoding/json"
	"testing"
)

// #region strip-tests

func TestStripWrappers(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Sure, here you go: {\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1} Hope that helps!", `{"a":1}`},
		{"array body", "result: [1,2,3] done", `[1,2,3]`},
		{"truncated keeps tail", `{"a": "unfinished`, `{"a": "unfinished`},
		{"no json at all", "nothing here", "nothing here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripWrappers(tc.raw); got != tc.want {
				t.Errorf("StripWrappers(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

// #endregion strip-tests

// #region repair-tests

func TestRepairProducesValidJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing brace", `{"a": {"b": 1}`},
		{"missing bracket", `{"a": [1, 2`},
		{"trailing comma object", `{"a": 1,}`},
		{"trailing comma array", `{"a": [1, 2,]}`},
		{"unterminated string", "{\"a\": \"cut off\n}"},
		{"combined", "{\"a\": [\"x\", \"y\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repaired := Repair(tc.raw)
			var v any
			if err := json.Unmarshal([]byte(repaired), &v); err != nil {
				t.Errorf("Repair(%q) = %q, still invalid: %v", tc.raw, repaired, err)
			}
		})
	}
}

func TestRepairLeavesValidJSONAlone(t *testing.T) {
	valid := `{"a": [1, 2], "b": "x, ]"}`
	if got := Repair(valid); got != valid {
		t.Errorf("Repair changed valid JSON: %q -> %q", valid, got)
	}
}

// #endregion repair-tests

// #region refusal-tests

func TestIsRefusal(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"refusal", "I'm sorry, but I cannot help with that.", true},
		{"capability denial", "As an AI, I must decline.", true},
		{"json present", `{"options": []} I cannot help beyond this`, false},
		{"normal prose", "The best option is to dispatch a plumber.", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRefusal(tc.raw); got != tc.want {
				t.Errorf("IsRefusal(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

// #endregion refusal-tests

// #region candidates-tests

func TestToCandidatesRejectsDuplicateIDs(t *testing.T) {
	obj := map[string]any{
		"options": []any{
			map[string]any{"option_id": "a", "action": "x", "estimated_cost": 1.0, "estimated_time": 1.0, "reasoning": "r", "satisfaction_impact": 0.5},
			map[string]any{"option_id": "a", "action": "y", "estimated_cost": 2.0, "estimated_time": 2.0, "reasoning": "r", "satisfaction_impact": 0.5},
		},
	}
	if _, err := ToCandidates(obj); err == nil {
		t.Fatal("expected duplicate option_id error")
	}
}

func TestToCandidatesExtractsSourceDocs(t *testing.T) {
	obj := map[string]any{
		"options": []any{
			map[string]any{
				"option_id": "a", "action": "x",
				"estimated_cost": 12.5, "estimated_time": 3.0,
				"reasoning": "r", "satisfaction_impact": 0.9,
				"source_doc_ids": []any{"doc-1#0", "doc-2#4"},
			},
		},
	}
	opts, err := ToCandidates(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
	if opts[0].EstimatedCost != 12.5 || opts[0].SatisfactionImpact != 0.9 {
		t.Errorf("numeric fields not extracted: %+v", opts[0])
	}
	if len(opts[0].SourceDocIDs) != 2 {
		t.Errorf("source docs = %v, want 2 entries", opts[0].SourceDocIDs)
	}
}

// #endregion candidates-tests
