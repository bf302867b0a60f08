package retrieval

// #region imports
import (
	"math"

	"github.com/havenops/issue-triage/internal/index"
)

// #endregion

// #region mmr

// mmrSelect re-ranks the candidate pool with Maximal Marginal Relevance,
// returning the indexes of the final k picks in selection order. Each step
// picks the candidate maximizing
//
//	lambda*relevance - (1-lambda)*max_similarity_to_already_selected
//
// which keeps near-duplicate chunks of the same source from crowding the
// result. Selection is deterministic: strict improvement wins, so ties fall
// to the earliest candidate.
func mmrSelect(candidates []index.Match, relevance []float64, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i := range candidates {
			if used[i] {
				continue
			}

			redundancy := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(candidates[i].Vector, candidates[s].Vector); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance[i] - (1.0-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, bestIdx)
	}

	return selected
}

// #endregion mmr

// #region cosine

// cosineSimilarity returns the cosine of two vectors, or 0 when either is
// empty or mismatched (no diversity penalty without vectors to compare).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// #endregion cosine
