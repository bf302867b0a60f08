package decision

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/havenops/issue-triage/internal/category"
)

// #region fixtures

func twoOptions() []CandidateOption {
	return []CandidateOption{
		{
			OptionID:           "opt-1",
			Action:             "dispatch_plumber",
			EstimatedCost:      100,
			EstimatedTime:      2,
			SatisfactionImpact: 0.7,
		},
		{
			OptionID:           "opt-2",
			Action:             "full_repipe",
			EstimatedCost:      300,
			EstimatedTime:      8,
			SatisfactionImpact: 0.9,
		},
	}
}

// #endregion fixtures

// #region basic-tests

func TestDecideReturnsWinnerAtExactlyOne(t *testing.T) {
	dec, err := Decide(twoOptions(), category.UrgencyHigh, DefaultWeights(), DefaultConfiguration(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dec.PolicyScores[dec.ChosenOptionID] != 1.0 {
		t.Errorf("winner score = %v, want exactly 1.0", dec.PolicyScores[dec.ChosenOptionID])
	}
	for id, score := range dec.PolicyScores {
		if score > 1.0 {
			t.Errorf("option %s normalized score %v exceeds 1.0", id, score)
		}
	}
	if len(dec.AlternativesConsidered) != 1 {
		t.Errorf("expected 1 alternative, got %d", len(dec.AlternativesConsidered))
	}
	if len(dec.Reasoning) == 0 {
		t.Error("expected a reasoning trail")
	}
}

func TestDecideEmptyOptions(t *testing.T) {
	_, err := Decide(nil, category.UrgencyHigh, DefaultWeights(), DefaultConfiguration(), nil)
	if !errors.Is(err, ErrNoOptions) {
		t.Fatalf("expected ErrNoOptions, got %v", err)
	}
}

func TestDecideInvalidWeights(t *testing.T) {
	bad := PolicyWeights{Urgency: 0.5, Cost: 0.5, Time: 0.5, Satisfaction: 0.5} // sum 2.0
	_, err := Decide(twoOptions(), category.UrgencyHigh, bad, DefaultConfiguration(), nil)

	var iw *InvalidWeightsError
	if !errors.As(err, &iw) {
		t.Fatalf("expected InvalidWeightsError, got %v", err)
	}
	if iw.Weights.Sum() != 2.0 {
		t.Errorf("error carries sum %v, want 2.0", iw.Weights.Sum())
	}
}

func TestDecideWeightOutOfRange(t *testing.T) {
	bad := PolicyWeights{Urgency: 1.4, Cost: -0.2, Time: -0.1, Satisfaction: -0.1} // sums to 1.0
	_, err := Decide(twoOptions(), category.UrgencyHigh, bad, DefaultConfiguration(), nil)

	var iw *InvalidWeightsError
	if !errors.As(err, &iw) {
		t.Fatalf("expected InvalidWeightsError for out-of-range weight, got %v", err)
	}
}

func TestDecideWeightSumWithinTolerance(t *testing.T) {
	// 1.04 is inside the ±0.05 tolerance and must be accepted.
	w := PolicyWeights{Urgency: 0.44, Cost: 0.3, Time: 0.2, Satisfaction: 0.1}
	if _, err := Decide(twoOptions(), category.UrgencyMedium, w, DefaultConfiguration(), nil); err != nil {
		t.Fatalf("unexpected error for tolerated sum: %v", err)
	}
}

// #endregion basic-tests

// #region determinism

func TestDecideDeterministic(t *testing.T) {
	first, err := Decide(twoOptions(), category.UrgencyHigh, DefaultWeights(), DefaultConfiguration(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Decide(twoOptions(), category.UrgencyHigh, DefaultWeights(), DefaultConfiguration(), nil)
		if err != nil {
			t.Fatalf("unexpected error on run %d: %v", i, err)
		}
		if again.ChosenOptionID != first.ChosenOptionID {
			t.Fatalf("run %d chose %s, first run chose %s", i, again.ChosenOptionID, first.ChosenOptionID)
		}
		if !reflect.DeepEqual(again.PolicyScores, first.PolicyScores) {
			t.Fatalf("run %d scores %v differ from first %v", i, again.PolicyScores, first.PolicyScores)
		}
	}
}

func TestDecideTieBreaksOnInsertionOrder(t *testing.T) {
	identical := []CandidateOption{
		{OptionID: "first", Action: "a", EstimatedCost: 50, EstimatedTime: 1, SatisfactionImpact: 0.5},
		{OptionID: "second", Action: "b", EstimatedCost: 50, EstimatedTime: 1, SatisfactionImpact: 0.5},
	}
	dec, err := Decide(identical, category.UrgencyMedium, DefaultWeights(), DefaultConfiguration(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.ChosenOptionID != "first" {
		t.Errorf("tie broke to %s, want first-seen option", dec.ChosenOptionID)
	}
}

// #endregion determinism

// #region scaling-tests

func TestScalingInvariant(t *testing.T) {
	batches := [][]CandidateOption{
		twoOptions(),
		{
			{OptionID: "a", EstimatedCost: 5000, EstimatedTime: 200, SatisfactionImpact: 0.2},
			{OptionID: "b", EstimatedCost: 2500, EstimatedTime: 40, SatisfactionImpact: 0.8},
		},
		{
			{OptionID: "only", EstimatedCost: 10, EstimatedTime: 0.5, SatisfactionImpact: 1.0},
		},
	}

	cfg := DefaultConfiguration()
	for _, batch := range batches {
		costs, times := analyzeOptions(batch, cfg)
		for _, c := range costs {
			if c.ScaledCost > cfg.MaxCost+1e-9 {
				t.Errorf("scaled cost %v exceeds anchor %v", c.ScaledCost, cfg.MaxCost)
			}
		}
		for _, ta := range times {
			if ta.ScaledTime > cfg.MaxTime+1e-9 {
				t.Errorf("scaled time %v exceeds anchor %v", ta.ScaledTime, cfg.MaxTime)
			}
		}

		// The option defining the batch maximum must land exactly on the anchor.
		maxCost, _ := scalingAnchors(batch)
		for i, opt := range batch {
			if opt.EstimatedCost == maxCost && math.Abs(costs[i].ScaledCost-cfg.MaxCost) > 1e-9 {
				t.Errorf("max-cost option scaled to %v, want anchor %v", costs[i].ScaledCost, cfg.MaxCost)
			}
		}
	}
}

func TestAnalyzeFlagsExceedingOptions(t *testing.T) {
	batch := []CandidateOption{
		{OptionID: "cheap", EstimatedCost: 100, EstimatedTime: 5},
		{OptionID: "pricey", EstimatedCost: 1500, EstimatedTime: 100},
	}
	cfg := DefaultConfiguration()
	costs, times := analyzeOptions(batch, cfg)

	if costs[0].ExceedsScale {
		t.Error("cheap option should not exceed cost scale")
	}
	if !costs[1].ExceedsScale {
		t.Error("pricey option should exceed cost scale")
	}
	if !times[1].ExceedsScale {
		t.Error("slow option should exceed time scale")
	}

	dec, err := Decide(batch, category.UrgencyLow, DefaultWeights(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foundWarning := false
	for _, r := range dec.Reasoning {
		if len(r) >= 7 && r[:7] == "warning" {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("expected a threshold warning in reasoning")
	}
}

func TestDecideAllZeroRawBatchWinnerIsOne(t *testing.T) {
	// Zero-weighted urgency and satisfaction with every option sitting on the
	// scaling anchors drives all raw scores to zero. The winner must still
	// come back at exactly 1.0, tie broken on first-seen order.
	w := PolicyWeights{Urgency: 0, Cost: 0.5, Time: 0.5, Satisfaction: 0}
	batch := []CandidateOption{
		{OptionID: "opt-1", Action: "dispatch_plumber", EstimatedCost: 100, EstimatedTime: 4},
		{OptionID: "opt-2", Action: "full_repipe", EstimatedCost: 100, EstimatedTime: 4},
	}

	dec, err := Decide(batch, category.UrgencyHigh, w, DefaultConfiguration(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.ChosenOptionID != "opt-1" {
		t.Errorf("chose %s, want first-seen opt-1", dec.ChosenOptionID)
	}
	if dec.PolicyScores["opt-1"] != 1.0 {
		t.Errorf("winner score = %v, want exactly 1.0", dec.PolicyScores["opt-1"])
	}
	for id, score := range dec.PolicyScores {
		if score > 1.0 {
			t.Errorf("option %s normalized score %v exceeds 1.0", id, score)
		}
	}
}

func TestScalingDegenerateBatch(t *testing.T) {
	batch := []CandidateOption{
		{OptionID: "free", EstimatedCost: 0, EstimatedTime: 0, SatisfactionImpact: 0.4},
	}
	dec, err := Decide(batch, category.UrgencyMedium, DefaultWeights(), DefaultConfiguration(), nil)
	if err != nil {
		t.Fatalf("unexpected error on zero-cost batch: %v", err)
	}
	if dec.ChosenOptionID != "free" {
		t.Errorf("chose %s, want free", dec.ChosenOptionID)
	}
}

// #endregion scaling-tests

// #region escalation-tests

func TestDecideEscalation(t *testing.T) {
	dec := DecideEscalation("tenant requested a human", []string{"policy-7"})
	if dec.ChosenAction != EscalationAction {
		t.Errorf("action = %s, want %s", dec.ChosenAction, EscalationAction)
	}
	if dec.PolicyScores["escalation"] != 1.0 {
		t.Errorf("escalation score = %v, want 1.0", dec.PolicyScores["escalation"])
	}
	if dec.EscalationReason == "" {
		t.Error("expected escalation reason to be set")
	}
	if len(dec.RuleSources) != 1 || dec.RuleSources[0] != "policy-7" {
		t.Errorf("rule sources = %v, want [policy-7]", dec.RuleSources)
	}
}

// #endregion escalation-tests

// #region rule-source-tests

func TestDecideCitesRuleSources(t *testing.T) {
	dec, err := Decide(twoOptions(), category.UrgencyHigh, DefaultWeights(), DefaultConfiguration(),
		[]string{"lease-4.2", "policy-12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dec.RuleSources) != 2 {
		t.Fatalf("rule sources = %v, want 2 entries", dec.RuleSources)
	}
	cited := 0
	for _, r := range dec.Reasoning {
		if len(r) > 30 && r[:30] == "policy informed by rule docume" {
			cited++
		}
	}
	if cited != 2 {
		t.Errorf("expected 2 rule citations in reasoning, got %d", cited)
	}
}

// #endregion rule-source-tests
