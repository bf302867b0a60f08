package index

// #region imports
import (
	qdrantclient "github.com/qdrant/go-client/qdrant"
)

// #endregion

// #region constants

// GlobalScope is the wildcard scope for documents that apply to every
// building and tenant.
const GlobalScope = "global"

// #endregion

// #region filter

// BuildFilter constructs the conjunctive metadata filter: doc_type must be in
// the given set, and scope_id must match the given scope OR the global
// wildcard (fallback-to-global semantics). Empty arguments drop their clause.
func BuildFilter(scopeID string, docTypes []string) *qdrantclient.Filter {
	var must []*qdrantclient.Condition

	if len(docTypes) > 0 {
		must = append(must, keywordsCondition("doc_type", docTypes))
	}

	if scopeID != "" {
		must = append(must, &qdrantclient.Condition{
			ConditionOneOf: &qdrantclient.Condition_Filter{
				Filter: &qdrantclient.Filter{
					Should: []*qdrantclient.Condition{
						keywordCondition("scope_id", scopeID),
						keywordCondition("scope_id", GlobalScope),
					},
				},
			},
		})
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrantclient.Filter{Must: must}
}

// #endregion filter

// #region conditions

func keywordCondition(key, value string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key: key,
				Match: &qdrantclient.Match{
					MatchValue: &qdrantclient.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func keywordsCondition(key string, values []string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key: key,
				Match: &qdrantclient.Match{
					MatchValue: &qdrantclient.Match_Keywords{
						Keywords: &qdrantclient.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

// #endregion conditions
