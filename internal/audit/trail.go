package audit

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema

const eventsSchema = `
CREATE TABLE IF NOT EXISTS pipeline_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id    TEXT NOT NULL,
    stage       TEXT NOT NULL,
    detail      TEXT,
    created_at  TEXT NOT NULL
);
`

const eventsIndex = `
CREATE INDEX IF NOT EXISTS idx_pipeline_events_issue
ON pipeline_events(issue_id);
`

// #endregion

// #region trail-struct

// Trail records per-stage pipeline events and answers aggregate queries over
// the decision log. It shares the store's database handle.
type Trail struct {
	db *sql.DB
}

// NewTrail initializes the pipeline_events table and returns a Trail.
func NewTrail(db *sql.DB) (*Trail, error) {
	if _, err := db.Exec(eventsSchema); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	if _, err := db.Exec(eventsIndex); err != nil {
		return nil, fmt.Errorf("audit index: %w", err)
	}
	return &Trail{db: db}, nil
}

// #endregion

// #region record-event

// RecordEvent appends a stage event for an issue.
func (t *Trail) RecordEvent(issueID, stage, detail string) error {
	_, err := t.db.Exec(
		`INSERT INTO pipeline_events (issue_id, stage, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		issueID, stage, nullIfEmpty(detail), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// #endregion

// #region events-for-issue

// EventsForIssue returns all stage events for one issue in recording order.
func (t *Trail) EventsForIssue(issueID string) ([]Event, error) {
	rows, err := t.db.Query(
		`SELECT id, issue_id, stage, detail, created_at
		 FROM pipeline_events WHERE issue_id = ? ORDER BY id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("events for issue: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var detail sql.NullString
		var createdStr string
		if err := rows.Scan(&ev.ID, &ev.IssueID, &ev.Stage, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Detail = detail.String
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// #endregion

// #region summarize

// Summarize aggregates the decision log: action distribution, escalation
// rate, per-category counts, and average retrieved-context size.
func (t *Trail) Summarize() (Summary, error) {
	sum := Summary{
		ActionCounts:   make(map[string]int),
		CategoryCounts: make(map[string]int),
	}

	rows, err := t.db.Query(
		`SELECT chosen_action, escalated, retrieved_count FROM decision_log`,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize decisions: %w", err)
	}
	defer rows.Close()

	var retrievedTotal int
	for rows.Next() {
		var action string
		var escalated, retrieved int
		if err := rows.Scan(&action, &escalated, &retrieved); err != nil {
			return Summary{}, fmt.Errorf("scan decision: %w", err)
		}
		sum.TotalDecisions++
		sum.ActionCounts[action]++
		if escalated != 0 {
			sum.Escalations++
		}
		retrievedTotal += retrieved
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	if sum.TotalDecisions > 0 {
		sum.EscalationRate = float64(sum.Escalations) / float64(sum.TotalDecisions)
		sum.AvgRetrieved = float64(retrievedTotal) / float64(sum.TotalDecisions)
	}

	catRows, err := t.db.Query(
		`SELECT i.category, COUNT(*)
		 FROM decision_log d JOIN issues i ON i.issue_id = d.issue_id
		 GROUP BY i.category`,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var cat string
		var n int
		if err := catRows.Scan(&cat, &n); err != nil {
			return Summary{}, fmt.Errorf("scan category: %w", err)
		}
		sum.CategoryCounts[cat] = n
	}
	return sum, catRows.Err()
}

// #endregion

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
