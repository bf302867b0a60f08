package triage

import (
	"fmt"
	"strings"

	"github.com/havenops/issue-triage/internal/category"
	"github.com/havenops/issue-triage/internal/retrieval"
)

// #region options-prompt

// BuildOptionsPrompt assembles the generation prompt: the tenant report, its
// classification, and the retrieved context chunks with their source IDs so
// the generator can cite them.
func BuildOptionsPrompt(report string, class category.Classification, rc retrieval.Context) string {
	var b strings.Builder

	b.WriteString("You are a property-management triage assistant. Propose 2-4 candidate actions for the issue below.\n\n")
	fmt.Fprintf(&b, "Issue category: %s (urgency: %s)\n", class.Category, class.Urgency)
	fmt.Fprintf(&b, "Tenant report: %s\n\n", report)

	if rc.TotalRetrieved > 0 {
		b.WriteString("Relevant documents:\n")
		for _, doc := range rc.Retrieved {
			fmt.Fprintf(&b, "--- [%s] ---\n%s\n", doc.DocID, doc.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with JSON only, no prose, in this shape:
{"options": [{"option_id": "opt-1", "action": "...", "estimated_cost": 0, "estimated_time": 0, "reasoning": "...", "satisfaction_impact": 0.0, "source_doc_ids": ["..."]}]}
estimated_cost is in dollars, estimated_time in hours, satisfaction_impact in [0,1]. Cite source_doc_ids from the documents above.`)

	return b.String()
}

// #endregion options-prompt

// #region repair-prompt

// BuildRepairPrompt wraps the original prompt with a strict-JSON reminder for
// the reprompt path after a failed parse.
func BuildRepairPrompt(original string) string {
	return "Your previous reply was not valid JSON. " +
		"Reply again with ONLY the JSON object, no code fences, no commentary.\n\n" + original
}

// #endregion repair-prompt
