package feedback

import (
	"fmt"
	"time"
)

// #region schema

const decisionSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	attempt_id TEXT,
	state      TEXT NOT NULL,
	reason     TEXT,
	composite  REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_request ON decision_log(request_id);
`

// #endregion schema

// #region types

// Decision is one state-machine transition record: the parameter→outcome
// association trail the learning queries lean on for diagnosis.
type Decision struct {
	RequestID string
	AttemptID string
	State     string // accept | retry | regenerate_fresh | fail | service_error
	Reason    string
	Composite float64
	CreatedAt time.Time
}

// #endregion types

// #region log-decision

// LogDecision appends one decision row.
func (s *Store) LogDecision(d Decision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO decision_log (request_id, attempt_id, state, reason, composite, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.RequestID, nullIfEmpty(d.AttemptID), d.State, nullIfEmpty(d.Reason),
		d.Composite, d.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest decision rows.
func (s *Store) RecentDecisions(limit int) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT request_id, COALESCE(attempt_id, ''), state, COALESCE(reason, ''), composite, created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var createdStr string
		if err := rows.Scan(&d.RequestID, &d.AttemptID, &d.State, &d.Reason, &d.Composite, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion log-decision

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
