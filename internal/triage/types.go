package triage

import (
	"context"

	"github.com/havenops/issue-triage/internal/category"
	"github.com/havenops/issue-triage/internal/decision"
	"github.com/havenops/issue-triage/internal/decode"
	"github.com/havenops/issue-triage/internal/retrieval"
	"github.com/havenops/issue-triage/internal/store"
)

// #region retriever

// Retriever is the slice of the retrieval engine the pipeline needs.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) (retrieval.Context, error)
	RetrieveRules(ctx context.Context, text, scopeID string) (retrieval.Context, error)
}

// #endregion retriever

// #region result

// Result is the full outcome of one triage run, for callers that render or
// replay decisions.
type Result struct {
	Issue          store.IssueRecord
	Classification category.Classification
	Context        retrieval.Context
	RuleSources    []string
	Decision       decision.Decision
	Attempts       []decode.ParseAttempt
	RawResponse    string
}

// Escalated reports whether the run ended in the escalation fallback.
func (r Result) Escalated() bool {
	return r.Decision.ChosenAction == decision.EscalationAction
}

// #endregion result
