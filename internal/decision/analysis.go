package decision

// #region scaling-anchors

// scalingAnchors finds the batch maxima used to scale cost and time.
// A degenerate batch (all zeros) anchors at 1.0 to avoid division by zero.
func scalingAnchors(options []CandidateOption) (maxCost, maxTime float64) {
	for _, opt := range options {
		if opt.EstimatedCost > maxCost {
			maxCost = opt.EstimatedCost
		}
		if opt.EstimatedTime > maxTime {
			maxTime = opt.EstimatedTime
		}
	}
	if maxCost <= 0 {
		maxCost = 1.0
	}
	if maxTime <= 0 {
		maxTime = 1.0
	}
	return maxCost, maxTime
}

// #endregion scaling-anchors

// #region analyze

// analyzeOptions produces the per-option cost and time audit records.
// ExceedsScale flags options above the configured anchor; the flag feeds
// reasoning warnings and never excludes an option.
func analyzeOptions(options []CandidateOption, cfg PolicyConfiguration) ([]CostAnalysis, []TimeAnalysis) {
	maxCost, maxTime := scalingAnchors(options)

	costScaling := cfg.MaxCost / maxCost
	timeScaling := cfg.MaxTime / maxTime

	costs := make([]CostAnalysis, len(options))
	times := make([]TimeAnalysis, len(options))

	for i, opt := range options {
		costs[i] = CostAnalysis{
			OptionID:     opt.OptionID,
			RawCost:      opt.EstimatedCost,
			ScaledCost:   opt.EstimatedCost * costScaling,
			ExceedsScale: opt.EstimatedCost > cfg.MaxCost,
		}
		times[i] = TimeAnalysis{
			OptionID:     opt.OptionID,
			RawTime:      opt.EstimatedTime,
			ScaledTime:   opt.EstimatedTime * timeScaling,
			ExceedsScale: opt.EstimatedTime > cfg.MaxTime,
		}
	}

	return costs, times
}

// #endregion analyze

// #region threshold-flags

// anyCostExceeds reports whether any option sits above the cost anchor.
func anyCostExceeds(costs []CostAnalysis) bool {
	for _, c := range costs {
		if c.ExceedsScale {
			return true
		}
	}
	return false
}

// anyTimeExceeds reports whether any option sits above the time anchor.
func anyTimeExceeds(times []TimeAnalysis) bool {
	for _, t := range times {
		if t.ExceedsScale {
			return true
		}
	}
	return false
}

// #endregion threshold-flags
