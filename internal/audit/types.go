package audit

import "time"

// #region event
// Event is one pipeline-stage audit entry for an issue.
type Event struct {
	ID        int64
	IssueID   string
	Stage     string // "classify" | "retrieve" | "generate" | "decode" | "decide"
	Detail    string
	CreatedAt time.Time
}

// Pipeline stages recorded in the audit trail.
const (
	StageClassify = "classify"
	StageRetrieve = "retrieve"
	StageGenerate = "generate"
	StageDecode   = "decode"
	StageDecide   = "decide"
)

// #endregion event

// #region summary
// Summary aggregates decision outcomes for operator inspection.
type Summary struct {
	TotalDecisions int
	Escalations    int
	EscalationRate float64
	ActionCounts   map[string]int
	CategoryCounts map[string]int
	AvgRetrieved   float64
}

// #endregion summary
