package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/havenops/issue-triage/internal/replay"
	"github.com/havenops/issue-triage/internal/store"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to triage.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := flag.Int("last", 50, "number of most recent decisions to replay (DB mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/triage.db [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return runAndReport(f)
}

// #endregion fixture-mode

// #region db-mode

// runDBMode rebuilds replay cases from persisted decisions: each recorded
// raw generator response is decoded and decided again under the current
// code, then compared against the action that was taken at the time.
func runDBMode(dbPath string, last int) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	decisions, err := st.ListDecisions(last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list decisions: %v\n", err)
		return 2
	}

	f := &replay.Fixture{Description: fmt.Sprintf("decision log replay from %s", dbPath)}
	for _, d := range decisions {
		if d.RawResponse == "" {
			continue // escalated before generation; nothing to replay
		}
		issue, err := st.GetIssue(d.IssueID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get issue %s: %v\n", d.IssueID, err)
			return 2
		}
		f.Cases = append(f.Cases, replay.FixtureCase{
			CaseID:    fmt.Sprintf("decision-%d", d.ID),
			Report:    issue.Report,
			Urgency:   issue.Urgency,
			Responses: []string{d.RawResponse},
			Expected: replay.Expected{
				Action:    d.ChosenAction,
				Escalated: d.Escalated,
			},
		})
	}

	if len(f.Cases) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable decisions found (no recorded generator responses)")
		return 2
	}
	return runAndReport(f)
}

// #endregion db-mode

// #region output

func runAndReport(f *replay.Fixture) int {
	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	fmt.Printf("%-16s| %-24s| %-24s| %s\n", "Case", "Expected", "Replayed", "Match")
	fmt.Printf("%-16s+%-25s+%-25s+%s\n",
		"----------------", "-------------------------", "-------------------------", "------")

	for i, r := range results {
		match := "DIFF"
		if r.Matched {
			match = "OK"
		}
		fmt.Printf("%-16s| %-24s| %-24s| %s\n", r.CaseID, f.Cases[i].Expected.Action, r.Action, match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge, %d escalations (%d decode failures)\n",
		s.TotalCases, s.Matched, s.Mismatched, s.Escalations, s.DecodeFailures)

	if s.Mismatched > 0 {
		return 1
	}
	return 0
}

// #endregion output
