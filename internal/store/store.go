package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS issues (
	issue_id    TEXT PRIMARY KEY,
	scope_id    TEXT NOT NULL,
	report      TEXT NOT NULL,
	category    TEXT NOT NULL,
	urgency     TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id          TEXT NOT NULL,
	chosen_option_id  TEXT,
	chosen_action     TEXT NOT NULL,
	scores_json       TEXT,
	reasoning         TEXT,
	escalated         INTEGER NOT NULL DEFAULT 0,
	escalation_reason TEXT,
	rule_sources_json TEXT,
	retrieval_method  TEXT,
	retrieved_count   INTEGER NOT NULL DEFAULT 0,
	attempts_json     TEXT,
	raw_response      TEXT,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (issue_id) REFERENCES issues(issue_id)
);

CREATE INDEX IF NOT EXISTS idx_decision_log_issue ON decision_log(issue_id);
`

// #endregion schema

// #region store-struct
// Store manages issues and their decision history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer at a time. A single pooled connection queues
	// concurrent writers instead of surfacing SQLITE_BUSY, and keeps the
	// session pragmas below in effect for every query.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	// Writers from other processes still contend; wait instead of failing.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing database handle. The caller owns the
// handle and must have applied the schema.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. audit).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-issue
// CreateIssue persists a new issue in status "open" and returns the record
// with its generated ID.
func (s *Store) CreateIssue(scopeID, report, category, urgency string) (IssueRecord, error) {
	rec := IssueRecord{
		IssueID:   uuid.New().String(),
		ScopeID:   scopeID,
		Report:    report,
		Category:  category,
		Urgency:   urgency,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	rec.UpdatedAt = rec.CreatedAt

	_, err := s.db.Exec(
		`INSERT INTO issues (issue_id, scope_id, report, category, urgency, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.IssueID, rec.ScopeID, rec.Report, rec.Category, rec.Urgency, rec.Status,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return IssueRecord{}, fmt.Errorf("insert issue: %w", err)
	}
	return rec, nil
}

// #endregion create-issue

// #region get-issue
// GetIssue retrieves an issue by ID.
func (s *Store) GetIssue(issueID string) (IssueRecord, error) {
	var rec IssueRecord
	var createdStr, updatedStr string

	err := s.db.QueryRow(
		`SELECT issue_id, scope_id, report, category, urgency, status, created_at, updated_at
		 FROM issues WHERE issue_id = ?`, issueID,
	).Scan(&rec.IssueID, &rec.ScopeID, &rec.Report, &rec.Category, &rec.Urgency,
		&rec.Status, &createdStr, &updatedStr)
	if err != nil {
		return IssueRecord{}, fmt.Errorf("get issue %s: %w", issueID, err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return rec, nil
}

// #endregion get-issue

// #region update-status
// UpdateStatus moves an issue to a new status.
func (s *Store) UpdateStatus(issueID, status string) error {
	res, err := s.db.Exec(
		`UPDATE issues SET status = ?, updated_at = ? WHERE issue_id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano), issueID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("issue %s not found", issueID)
	}
	return nil
}

// #endregion update-status

// #region list-issues
// ListIssues returns the most recent issues.
func (s *Store) ListIssues(limit int) ([]IssueRecord, error) {
	rows, err := s.db.Query(
		`SELECT issue_id, scope_id, report, category, urgency, status, created_at, updated_at
		 FROM issues ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var records []IssueRecord
	for rows.Next() {
		var rec IssueRecord
		var createdStr, updatedStr string
		if err := rows.Scan(&rec.IssueID, &rec.ScopeID, &rec.Report, &rec.Category,
			&rec.Urgency, &rec.Status, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-issues

// #region log-decision
// LogDecision records a decision outcome and updates the issue status
// atomically: escalations mark the issue "escalated", anything else "decided".
func (s *Store) LogDecision(rec DecisionRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	escalated := 0
	status := StatusDecided
	if rec.Escalated {
		escalated = 1
		status = StatusEscalated
	}

	res, err := tx.Exec(
		`INSERT INTO decision_log (issue_id, chosen_option_id, chosen_action, scores_json,
		   reasoning, escalated, escalation_reason, rule_sources_json, retrieval_method,
		   retrieved_count, attempts_json, raw_response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.IssueID, rec.ChosenOptionID, rec.ChosenAction, rec.ScoresJSON,
		rec.Reasoning, escalated, rec.EscalationReason, rec.RuleSourcesJSON,
		rec.RetrievalMethod, rec.RetrievedCount, rec.AttemptsJSON, rec.RawResponse,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert decision: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE issues SET status = ?, updated_at = ? WHERE issue_id = ?`,
		status, rec.CreatedAt.Format(time.RFC3339Nano), rec.IssueID,
	); err != nil {
		return 0, fmt.Errorf("update issue status: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion log-decision

// #region decisions-for-issue
// DecisionsForIssue returns the decision history for one issue, oldest first.
func (s *Store) DecisionsForIssue(issueID string) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, issue_id, chosen_option_id, chosen_action, scores_json, reasoning,
		   escalated, escalation_reason, rule_sources_json, retrieval_method,
		   retrieved_count, attempts_json, raw_response, created_at
		 FROM decision_log WHERE issue_id = ? ORDER BY id ASC`, issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("decisions for issue: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// #endregion decisions-for-issue

// #region list-decisions
// ListDecisions returns the most recent decisions across all issues.
func (s *Store) ListDecisions(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, issue_id, chosen_option_id, chosen_action, scores_json, reasoning,
		   escalated, escalation_reason, rule_sources_json, retrieval_method,
		   retrieved_count, attempts_json, raw_response, created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// #endregion list-decisions

// #region scan-decisions
func scanDecisions(rows *sql.Rows) ([]DecisionRecord, error) {
	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var optID, scores, reasoning, escReason, ruleSources, method, attempts, raw sql.NullString
		var escalated int
		var createdStr string

		if err := rows.Scan(&rec.ID, &rec.IssueID, &optID, &rec.ChosenAction, &scores,
			&reasoning, &escalated, &escReason, &ruleSources, &method,
			&rec.RetrievedCount, &attempts, &raw, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.ChosenOptionID = optID.String
		rec.ScoresJSON = scores.String
		rec.Reasoning = reasoning.String
		rec.Escalated = escalated != 0
		rec.EscalationReason = escReason.String
		rec.RuleSourcesJSON = ruleSources.String
		rec.RetrievalMethod = method.String
		rec.AttemptsJSON = attempts.String
		rec.RawResponse = raw.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion scan-decisions
