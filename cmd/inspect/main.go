package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/havenops/issue-triage/internal/audit"
	"github.com/havenops/issue-triage/internal/store"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to triage.db")
	last := flag.Int("last", 20, "show N most recent decisions")
	issueID := flag.String("issue", "", "show single issue detail")
	summary := flag.Bool("summary", false, "show aggregate decision stats")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/triage.db [--last N] [--issue id] [--summary] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	trail, err := audit.NewTrail(st.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init audit: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *summary:
		err = runSummaryMode(trail, *jsonOut)
	case *issueID != "":
		err = runDetailMode(st, trail, *issueID, *jsonOut)
	default:
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	IssueID   string `json:"issue_id"`
	Action    string `json:"action"`
	Escalated bool   `json:"escalated"`
	Reason    string `json:"reason,omitempty"`
	Method    string `json:"retrieval_method,omitempty"`
	Retrieved int    `json:"retrieved"`
	CreatedAt string `json:"created_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	decisions, err := st.ListDecisions(last)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}

	rows := make([]listRow, len(decisions))
	for i, d := range decisions {
		rows[i] = listRow{
			IssueID:   d.IssueID,
			Action:    d.ChosenAction,
			Escalated: d.Escalated,
			Reason:    d.EscalationReason,
			Method:    d.RetrievalMethod,
			Retrieved: d.RetrievedCount,
			CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-24s  %-5s  %-10s  %5s  %s\n",
		"Issue", "Action", "Esc", "Method", "Docs", "Time")
	fmt.Printf("%-10s+-%-24s+-%-5s+-%-10s+-%5s+-%s\n",
		"----------", "------------------------", "-----", "----------", "-----", "--------------------")
	for _, r := range rows {
		esc := ""
		if r.Escalated {
			esc = "YES"
		}
		fmt.Printf("%-10s  %-24s  %-5s  %-10s  %5d  %s\n",
			shortID(r.IssueID), r.Action, esc, r.Method, r.Retrieved, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Issue     store.IssueRecord      `json:"issue"`
	Decisions []store.DecisionRecord `json:"decisions"`
	Events    []audit.Event          `json:"events"`
}

func runDetailMode(st *store.Store, trail *audit.Trail, issueID string, jsonOut bool) error {
	issue, err := st.GetIssue(issueID)
	if err != nil {
		return err
	}
	decisions, err := st.DecisionsForIssue(issueID)
	if err != nil {
		return err
	}
	events, err := trail.EventsForIssue(issueID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(detailOutput{Issue: issue, Decisions: decisions, Events: events})
	}

	fmt.Printf("Issue:    %s\n", issue.IssueID)
	fmt.Printf("Scope:    %s\n", issue.ScopeID)
	fmt.Printf("Category: %s (urgency: %s)\n", issue.Category, issue.Urgency)
	fmt.Printf("Status:   %s\n", issue.Status)
	fmt.Printf("Report:   %s\n", issue.Report)

	for _, d := range decisions {
		fmt.Printf("\nDecision #%d (%s):\n", d.ID, d.CreatedAt.Format("2006-01-02T15:04:05Z"))
		fmt.Printf("  Action:    %s\n", d.ChosenAction)
		if d.Escalated {
			fmt.Printf("  Escalated: %s\n", d.EscalationReason)
		}
		if d.ScoresJSON != "" {
			fmt.Printf("  Scores:    %s\n", d.ScoresJSON)
		}
		for _, line := range strings.Split(d.Reasoning, "; ") {
			if line != "" {
				fmt.Printf("  - %s\n", line)
			}
		}
	}

	if len(events) > 0 {
		fmt.Printf("\nPipeline events:\n")
		for _, ev := range events {
			fmt.Printf("  %-9s %s\n", ev.Stage, ev.Detail)
		}
	}
	return nil
}

// #endregion detail-mode

// #region summary-mode

func runSummaryMode(trail *audit.Trail, jsonOut bool) error {
	sum, err := trail.Summarize()
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(sum)
	}

	fmt.Printf("Decisions:       %d\n", sum.TotalDecisions)
	fmt.Printf("Escalations:     %d (%.1f%%)\n", sum.Escalations, sum.EscalationRate*100)
	fmt.Printf("Avg. retrieved:  %.1f docs\n", sum.AvgRetrieved)

	fmt.Printf("\nActions:\n")
	for action, n := range sum.ActionCounts {
		fmt.Printf("  %-24s %d\n", action, n)
	}
	fmt.Printf("\nCategories:\n")
	for cat, n := range sum.CategoryCounts {
		fmt.Printf("  %-12s %d\n", cat, n)
	}
	return nil
}

// #endregion summary-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
