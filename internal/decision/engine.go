package decision

// #region imports
import (
	"fmt"
	"log"
	"math"

	"github.com/havenops/issue-triage/internal/category"
)

// #endregion

// #region constants

// weightSumTolerance is the allowed deviation of the weight sum from 1.0.
const weightSumTolerance = 0.05

// #endregion

// #region validate-weights

// validateWeights rejects weights that are out of range or do not sum to ~1.0.
func validateWeights(w PolicyWeights) error {
	for _, v := range []float64{w.Urgency, w.Cost, w.Time, w.Satisfaction} {
		if v < 0 || v > 1 {
			return &InvalidWeightsError{Weights: w, Reason: "each weight must be in [0, 1]"}
		}
	}
	if math.Abs(w.Sum()-1.0) > weightSumTolerance {
		return &InvalidWeightsError{Weights: w, Reason: "weights must sum to 1.0"}
	}
	return nil
}

// #endregion validate-weights

// #region decide-escalation

// DecideEscalation returns the fixed escalation decision, bypassing scoring.
// Used when the report explicitly asks for a human, when retrieval comes back
// empty, or when decoding exhausts its attempts.
func DecideEscalation(reason string, ruleSources []string) Decision {
	return Decision{
		ChosenOptionID:   "escalation",
		ChosenAction:     EscalationAction,
		PolicyScores:     map[string]float64{"escalation": 1.0},
		Reasoning:        []string{"escalated without scoring: " + reason},
		EscalationReason: reason,
		RuleSources:      ruleSources,
	}
}

// #endregion decide-escalation

// #region decide

// Decide scores the candidate options under the weighted policy and selects
// a winner. The computation is pure and deterministic: identical inputs yield
// the identical decision, and ties break on first-seen order.
func Decide(
	options []CandidateOption,
	urgency category.Urgency,
	weights PolicyWeights,
	cfg PolicyConfiguration,
	ruleSources []string,
) (Decision, error) {
	if len(options) == 0 {
		return Decision{}, ErrNoOptions
	}
	if err := validateWeights(weights); err != nil {
		return Decision{}, err
	}
	if cfg.MaxCost <= 0 || cfg.MaxTime <= 0 {
		cfg = DefaultConfiguration()
	}

	costs, times := analyzeOptions(options, cfg)

	// Raw scores. Scaled cost/time are already on the cfg.MaxCost / cfg.MaxTime
	// scale, so dividing by the anchor puts both terms in [0, 1] for in-scale
	// options; the batch maximum lands exactly on the anchor.
	urgencyFactor := urgency.Factor()
	raw := make([]float64, len(options))
	var maxRaw float64
	best := 0

	for i, opt := range options {
		score := weights.Urgency*urgencyFactor +
			weights.Cost*(1.0-costs[i].ScaledCost/cfg.MaxCost) +
			weights.Time*(1.0-times[i].ScaledTime/cfg.MaxTime) +
			weights.Satisfaction*opt.SatisfactionImpact
		raw[i] = score
		if score > maxRaw {
			maxRaw = score
			best = i
		}
	}
	// Normalize so the winner is exactly 1.0 and alternatives are comparable.
	// A valid policy can drive every raw score to zero (zero-weighted terms
	// with the batch maximum sitting on the scaling anchor), so alternatives
	// divide by 1.0 in that case and the winner is pinned rather than scaled.
	norm := maxRaw
	if norm <= 0 {
		norm = 1.0
	}
	scores := make(map[string]float64, len(options))
	alternatives := make([]string, 0, len(options)-1)
	for i, opt := range options {
		scores[opt.OptionID] = raw[i] / norm
		if i != best {
			alternatives = append(alternatives, opt.OptionID)
		}
	}
	scores[options[best].OptionID] = 1.0

	chosen := options[best]
	reasoning := buildReasoning(options, raw, best, costs, times, cfg, ruleSources)

	log.Printf("[DECIDE] chose %s (%s) from %d options, urgency=%s",
		chosen.OptionID, chosen.Action, len(options), urgency)

	return Decision{
		ChosenOptionID:         chosen.OptionID,
		ChosenAction:           chosen.Action,
		PolicyScores:           scores,
		AlternativesConsidered: alternatives,
		CostAnalysis:           costs,
		TimeAnalysis:           times,
		Reasoning:              reasoning,
		RuleSources:            ruleSources,
	}, nil
}

// #endregion decide

// #region reasoning

// buildReasoning assembles the audit trail: ranking, runner-up deltas, and
// threshold warnings, plus the rule documents that informed the policy.
func buildReasoning(
	options []CandidateOption,
	raw []float64,
	best int,
	costs []CostAnalysis,
	times []TimeAnalysis,
	cfg PolicyConfiguration,
	ruleSources []string,
) []string {
	chosen := options[best]
	reasoning := []string{
		fmt.Sprintf("selected %s (%s) ranked first of %d options",
			chosen.OptionID, chosen.Action, len(options)),
	}

	if runner := runnerUp(raw, best); runner >= 0 {
		other := options[runner]
		costDelta := other.EstimatedCost - chosen.EstimatedCost
		timeDelta := other.EstimatedTime - chosen.EstimatedTime
		if costDelta > 0 {
			reasoning = append(reasoning, fmt.Sprintf(
				"saves %.2f versus runner-up %s", costDelta, other.OptionID))
		} else if costDelta < 0 {
			reasoning = append(reasoning, fmt.Sprintf(
				"costs %.2f more than runner-up %s but scores higher on policy",
				-costDelta, other.OptionID))
		}
		if timeDelta != 0 {
			reasoning = append(reasoning, fmt.Sprintf(
				"time delta versus runner-up %s: %.1f hours", other.OptionID, -timeDelta))
		}
	}

	if anyCostExceeds(costs) {
		reasoning = append(reasoning, fmt.Sprintf(
			"warning: exceeds_budget_threshold, at least one option above max cost %.2f", cfg.MaxCost))
	}
	if anyTimeExceeds(times) {
		reasoning = append(reasoning, fmt.Sprintf(
			"warning: exceeds_time_threshold, at least one option above max time %.1f hours", cfg.MaxTime))
	}

	for _, src := range ruleSources {
		reasoning = append(reasoning, "policy informed by rule document "+src)
	}

	return reasoning
}

// runnerUp returns the index of the highest raw score excluding best,
// or -1 for a single-option batch. First-seen wins on ties.
func runnerUp(raw []float64, best int) int {
	runner := -1
	for i, score := range raw {
		if i == best {
			continue
		}
		if runner == -1 || score > raw[runner] {
			runner = i
		}
	}
	return runner
}

// #endregion reasoning
