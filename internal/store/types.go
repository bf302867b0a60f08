package store

import "time"

// #region issue-record
// IssueRecord is a persisted tenant-reported issue.
type IssueRecord struct {
	IssueID   string
	ScopeID   string
	Report    string
	Category  string
	Urgency   string
	Status    string // "open" | "decided" | "escalated" | "resolved"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Issue statuses.
const (
	StatusOpen      = "open"
	StatusDecided   = "decided"
	StatusEscalated = "escalated"
	StatusResolved  = "resolved"
)

// #endregion issue-record

// #region decision-record
// DecisionRecord is one decision-pipeline outcome tied to an issue. Scores,
// rule sources and the parse-attempt trail are stored as JSON for replay.
type DecisionRecord struct {
	ID               int64
	IssueID          string
	ChosenOptionID   string
	ChosenAction     string
	ScoresJSON       string
	Reasoning        string
	Escalated        bool
	EscalationReason string
	RuleSourcesJSON  string
	RetrievalMethod  string
	RetrievedCount   int
	AttemptsJSON     string
	RawResponse      string
	CreatedAt        time.Time
}

// #endregion decision-record
