package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/havenops/issue-triage/internal/decision"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: recorded
// generator transcripts plus the expected decision per case, so pipeline
// changes can be checked offline against real traffic.
type Fixture struct {
	Description string        `json:"description"`
	Policy      FixturePolicy `json:"policy"`
	Cases       []FixtureCase `json:"cases"`
}

// FixturePolicy mirrors the decision policy with JSON tags.
type FixturePolicy struct {
	UrgencyWeight      float64 `json:"urgency_weight"`
	CostWeight         float64 `json:"cost_weight"`
	TimeWeight         float64 `json:"time_weight"`
	SatisfactionWeight float64 `json:"satisfaction_weight"`
	MaxCost            float64 `json:"max_cost"`
	MaxTime            float64 `json:"max_time"`
}

// FixtureCase is one recorded triage run. Responses holds the raw generator
// output in call order: the initial response first, then any reprompt
// replies that were recorded.
type FixtureCase struct {
	CaseID      string   `json:"case_id"`
	Report      string   `json:"report"`
	Urgency     string   `json:"urgency,omitempty"`
	Responses   []string `json:"responses"`
	RuleSources []string `json:"rule_sources,omitempty"`
	Expected    Expected `json:"expected"`
}

// Expected captures the decision the recorded run produced.
type Expected struct {
	Action    string `json:"action"`
	Escalated bool   `json:"escalated"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToWeights converts the fixture policy to decision weights, falling back to
// the defaults when every weight is zero.
func (p FixturePolicy) ToWeights() decision.PolicyWeights {
	w := decision.PolicyWeights{
		Urgency:      p.UrgencyWeight,
		Cost:         p.CostWeight,
		Time:         p.TimeWeight,
		Satisfaction: p.SatisfactionWeight,
	}
	if w.Sum() == 0 {
		return decision.DefaultWeights()
	}
	return w
}

// ToConfiguration converts the fixture policy to scaling anchors, falling
// back to the defaults when unset.
func (p FixturePolicy) ToConfiguration() decision.PolicyConfiguration {
	if p.MaxCost <= 0 || p.MaxTime <= 0 {
		return decision.DefaultConfiguration()
	}
	return decision.PolicyConfiguration{MaxCost: p.MaxCost, MaxTime: p.MaxTime}
}

// #endregion fixture-loader
