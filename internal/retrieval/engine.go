package retrieval

// #region imports
import (
	"context"
	"fmt"
	"log"
	"time"

	qdrantclient "github.com/qdrant/go-client/qdrant"

	"github.com/havenops/issue-triage/internal/index"
)

// #endregion

// #region searcher

// Searcher is the slice of the index gateway the engine needs.
type Searcher interface {
	Search(ctx context.Context, queryText string, fetchK int, filter *qdrantclient.Filter) ([]index.Match, error)
}

// #endregion searcher

// #region constants

// categoryBonus is the advisory rank boost for candidates whose indexed
// category matches the query category. Indexed sub-categories may be finer
// grained than the caller's, so category informs ranking but never excludes.
const categoryBonus = 0.05

// Rule-retrieval tuning: narrower types, fewer picks, higher floor.
var ruleDocTypes = []string{"policy", "rule"}

const (
	ruleK     = 3
	ruleFloor = 0.7
)

// #endregion constants

// #region engine

// Engine runs similarity search with diversity-aware re-ranking over the
// document index.
type Engine struct {
	searcher Searcher
}

// NewEngine creates a retrieval engine over the given searcher.
func NewEngine(searcher Searcher) *Engine {
	return &Engine{searcher: searcher}
}

// #endregion engine

// #region retrieve

// Retrieve runs the full pipeline: query expansion, filter construction,
// candidate fetch, MMR re-ranking, floor filtering, and diversity check.
// A query matching nothing returns a zero-result Context, not an error;
// only an unreachable index backend produces an error.
func (e *Engine) Retrieve(ctx context.Context, q Query) (Context, error) {
	if q.FetchK < q.K {
		q.FetchK = q.K
	}

	expanded := ExpandQuery(q.Text)
	filter := index.BuildFilter(q.ScopeID, q.DocTypes)

	candidates, err := e.searcher.Search(ctx, expanded, q.FetchK, filter)
	if err != nil {
		return Context{}, fmt.Errorf("retrieve: %w", err)
	}

	// Advisory category boost feeds the MMR relevance term only; the
	// similarity score carried on each document stays untouched.
	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = c.Score
		if q.Category != "" && c.Metadata.Category == q.Category {
			relevance[i] += categoryBonus
		}
	}

	picks := mmrSelect(candidates, relevance, q.K, q.DiversityLambda)

	var docs []Document
	uniqueDocs := make(map[string]bool)
	for _, idx := range picks {
		c := candidates[idx]
		if c.Score < q.SimilarityFloor {
			continue
		}
		docs = append(docs, Document{
			DocID:    c.DocID,
			Text:     c.Text,
			Score:    c.Score,
			Metadata: c.Metadata,
		})
		uniqueDocs[c.DocID] = true
	}

	if len(docs) == 0 {
		log.Printf("[RETR] no results above floor %.2f for scope=%s (pool=%d)",
			q.SimilarityFloor, q.ScopeID, len(candidates))
		return Context{
			Query:     q,
			Method:    MethodNoResults,
			Timestamp: time.Now().UTC(),
		}, nil
	}

	result := Context{
		Query:          q,
		Retrieved:      docs,
		TotalRetrieved: len(docs),
		Method:         MethodMMR,
		UniqueDocs:     len(uniqueDocs),
		HasDiversity:   len(docs) <= 1 || len(uniqueDocs) >= 2,
		Timestamp:      time.Now().UTC(),
	}

	log.Printf("[RETR] retrieved %d docs (pool=%d, unique=%d, diversity=%v)",
		result.TotalRetrieved, len(candidates), result.UniqueDocs, result.HasDiversity)

	return result, nil
}

// #endregion retrieve

// #region retrieve-rules

// RetrieveRules fetches policy/rule documents only, for sourcing decision
// weights and thresholds. Same algorithm as Retrieve, tuned narrow.
func (e *Engine) RetrieveRules(ctx context.Context, text, scopeID string) (Context, error) {
	q := Query{
		Text:            text,
		ScopeID:         scopeID,
		DocTypes:        ruleDocTypes,
		K:               ruleK,
		FetchK:          ruleK * 3,
		DiversityLambda: 0.7,
		SimilarityFloor: ruleFloor,
	}
	return e.Retrieve(ctx, q)
}

// #endregion retrieve-rules
