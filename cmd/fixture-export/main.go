package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/havenops/issue-triage/internal/replay"
	"github.com/havenops/issue-triage/internal/store"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to triage.db")
	last := flag.Int("last", 10, "number of most recent decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/triage.db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

// run exports the most recent decisions with recorded generator output as a
// replay fixture: the raw transcript plus the action taken, so future
// pipeline changes can be diffed against real traffic offline.
func run(dbPath string, last int, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	decisions, err := st.ListDecisions(last)
	if err != nil {
		return fmt.Errorf("list decisions: %w", err)
	}

	fixture := replay.Fixture{
		Description: fmt.Sprintf("decision log export: last %d decisions with transcripts", last),
	}

	for _, d := range decisions {
		if d.RawResponse == "" {
			continue // escalated before generation
		}
		issue, err := st.GetIssue(d.IssueID)
		if err != nil {
			return fmt.Errorf("get issue %s: %w", d.IssueID, err)
		}

		var ruleSources []string
		if d.RuleSourcesJSON != "" {
			// Best-effort; a fixture without citations still replays.
			_ = json.Unmarshal([]byte(d.RuleSourcesJSON), &ruleSources)
		}

		fixture.Cases = append(fixture.Cases, replay.FixtureCase{
			CaseID:      fmt.Sprintf("decision-%d", d.ID),
			Report:      issue.Report,
			Urgency:     issue.Urgency,
			Responses:   []string{d.RawResponse},
			RuleSources: ruleSources,
			Expected: replay.Expected{
				Action:    d.ChosenAction,
				Escalated: d.Escalated,
			},
		})
	}

	if len(fixture.Cases) == 0 {
		return fmt.Errorf("no exportable decisions found in last %d entries", last)
	}

	fmt.Printf("Found %d exportable decisions\n", len(fixture.Cases))
	return writeFixture(fixture, outPath)
}

// #endregion export

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d cases)\n", outPath, len(data), len(fixture.Cases))
	return nil
}

// #endregion output
