package retrieval

// #region imports
import (
	"time"

	"github.com/havenops/issue-triage/internal/index"
)

// #endregion

// #region query

// Query is a transient per-call retrieval request. K <= FetchK must hold;
// Retrieve enforces it by raising FetchK.
type Query struct {
	Text            string
	ScopeID         string
	Category        string   // advisory: informs ranking, never hard-excludes
	DocTypes        []string
	K               int     // final result count after diversity re-ranking
	FetchK          int     // candidate pool size before re-ranking
	DiversityLambda float64 // MMR lambda in [0,1]; 1 = pure relevance
	SimilarityFloor float64 // [0,1] similarity cutoff after re-ranking
}

// NewQuery builds a query with the standard tuning for option-generation
// context.
func NewQuery(text, scopeID, category string, docTypes []string) Query {
	return Query{
		Text:            text,
		ScopeID:         scopeID,
		Category:        category,
		DocTypes:        docTypes,
		K:               5,
		FetchK:          20,
		DiversityLambda: 0.7,
		SimilarityFloor: 0.6,
	}
}

// #endregion query

// #region document

// Document is one retrieved chunk. Score is a [0,1] similarity measure,
// not a probability.
type Document struct {
	DocID    string
	Text     string
	Score    float64
	Metadata index.Metadata
}

// #endregion document

// #region context

// Retrieval methods recorded on a Context.
const (
	MethodMMR       = "mmr"
	MethodNoResults = "no_results"
)

// Context is the retrieval result. It is always a concrete value, never
// absent: a query matching nothing yields TotalRetrieved == 0 and
// Method == MethodNoResults, which downstream escalation logic depends on.
type Context struct {
	Query          Query
	Retrieved      []Document
	TotalRetrieved int
	Method         string
	UniqueDocs     int
	HasDiversity   bool // telemetry only, never blocks a response
	Timestamp      time.Time
}

// RuleSourceIDs returns the distinct source document IDs, preserving rank
// order, for rule citation in decisions.
func (c Context) RuleSourceIDs() []string {
	seen := make(map[string]bool, len(c.Retrieved))
	var ids []string
	for _, d := range c.Retrieved {
		if d.DocID == "" || seen[d.DocID] {
			continue
		}
		seen[d.DocID] = true
		ids = append(ids, d.DocID)
	}
	return ids
}

// #endregion context
