package decision

// #region candidate-option

// CandidateOption is one resolution option proposed by the generator,
// validated by the decoder. Immutable once constructed.
type CandidateOption struct {
	OptionID           string
	Action             string
	EstimatedCost      float64 // dollars, >= 0
	EstimatedTime      float64 // hours, >= 0
	Reasoning          string
	SatisfactionImpact float64 // [0, 1]
	SourceDocIDs       []string
}

// #endregion candidate-option

// #region policy-weights

// PolicyWeights controls the relative importance of each scoring criterion.
// The four weights must sum to 1.0 within weightSumTolerance.
type PolicyWeights struct {
	Urgency      float64
	Cost         float64
	Time         float64
	Satisfaction float64
}

// Sum returns the total of all four weights.
func (w PolicyWeights) Sum() float64 {
	return w.Urgency + w.Cost + w.Time + w.Satisfaction
}

// DefaultWeights returns the standard policy weighting.
func DefaultWeights() PolicyWeights {
	return PolicyWeights{
		Urgency:      0.4,
		Cost:         0.3,
		Time:         0.2,
		Satisfaction: 0.1,
	}
}

// #endregion policy-weights

// #region policy-configuration

// PolicyConfiguration holds scaling anchors for cost and time.
// These are reference scales, not hard caps: an option above MaxCost
// is flagged, never rejected.
type PolicyConfiguration struct {
	MaxCost float64 // > 0
	MaxTime float64 // > 0, hours
}

// DefaultConfiguration returns the standard scaling anchors.
func DefaultConfiguration() PolicyConfiguration {
	return PolicyConfiguration{
		MaxCost: 1000,
		MaxTime: 72,
	}
}

// #endregion policy-configuration

// #region analysis

// CostAnalysis records the scaled-cost audit for one option.
type CostAnalysis struct {
	OptionID     string
	RawCost      float64
	ScaledCost   float64
	ExceedsScale bool
}

// TimeAnalysis records the scaled-time audit for one option.
type TimeAnalysis struct {
	OptionID     string
	RawTime      float64
	ScaledTime   float64
	ExceedsScale bool
}

// #endregion analysis

// #region decision

// EscalationAction is the fixed action used when a request is routed to a human.
const EscalationAction = "escalate_to_human"

// Decision is the terminal output of the engine, produced exactly once
// per request.
type Decision struct {
	ChosenOptionID         string
	ChosenAction           string
	PolicyScores           map[string]float64 // option_id -> normalized score
	AlternativesConsidered []string
	CostAnalysis           []CostAnalysis
	TimeAnalysis           []TimeAnalysis
	Reasoning              []string
	EscalationReason       string
	RuleSources            []string
}

// #endregion decision
