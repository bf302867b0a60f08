package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/havenops/issue-triage/internal/decision"
)

func TestLoadFixture(t *testing.T) {
	content := `{
		"description": "recorded plumbing runs",
		"policy": {
			"urgency_weight": 0.4, "cost_weight": 0.3,
			"time_weight": 0.2, "satisfaction_weight": 0.1,
			"max_cost": 500, "max_time": 24
		},
		"cases": [{
			"case_id": "case-1",
			"report": "leak under sink",
			"urgency": "high",
			"responses": ["{\"options\": []}"],
			"rule_sources": ["handbook"],
			"expected": {"action": "escalate_to_human", "escalated": true}
		}]
	}`
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "recorded plumbing runs" {
		t.Errorf("description = %q", f.Description)
	}
	if len(f.Cases) != 1 || f.Cases[0].CaseID != "case-1" {
		t.Fatalf("cases = %+v", f.Cases)
	}
	if f.Cases[0].Expected.Action != "escalate_to_human" || !f.Cases[0].Expected.Escalated {
		t.Errorf("expected = %+v", f.Cases[0].Expected)
	}

	w := f.Policy.ToWeights()
	if w.Urgency != 0.4 || w.Satisfaction != 0.1 {
		t.Errorf("weights = %+v", w)
	}
	cfg := f.Policy.ToConfiguration()
	if cfg.MaxCost != 500 || cfg.MaxTime != 24 {
		t.Errorf("configuration = %+v", cfg)
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFixtureBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("not json"), 0o644)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPolicyDefaults(t *testing.T) {
	var p FixturePolicy
	if p.ToWeights() != decision.DefaultWeights() {
		t.Errorf("zero policy weights = %+v, want defaults", p.ToWeights())
	}
	if p.ToConfiguration() != decision.DefaultConfiguration() {
		t.Errorf("zero policy configuration = %+v, want defaults", p.ToConfiguration())
	}
}
