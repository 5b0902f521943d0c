package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"copyloop/internal/feedback"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to copyloop.db")
	last := flag.Int("last", 20, "show N most recent attempts")
	kind := flag.String("kind", "", "filter by content kind")
	request := flag.String("request", "", "show single request detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/copyloop.db [--last N] [--kind name] [--request id] [--json]")
		os.Exit(2)
	}

	store, err := feedback.NewStore(*dbPath, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *request != "" {
		if err := runDetailMode(store, *request, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *kind, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	AttemptID   string  `json:"attempt_id"`
	RequestID   string  `json:"request_id"`
	Subject     string  `json:"subject"`
	Kind        string  `json:"kind"`
	AttemptNum  int     `json:"attempt_num"`
	Success     bool    `json:"success"`
	Composite   float64 `json:"composite"`
	Temperature float64 `json:"temperature"`
	CreatedAt   string  `json:"created_at"`
}

func runListMode(store *feedback.Store, last int, kind string, jsonOut bool) error {
	attempts, err := store.ScoredAttempts(feedback.Filter{Kind: kind}, last)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(os.Stderr, "no attempts found")
		return nil
	}

	// Store returns DESC, reverse for chronological.
	rows := make([]listRow, len(attempts))
	for i, sa := range attempts {
		rows[len(attempts)-1-i] = listRow{
			AttemptID:   sa.ID,
			RequestID:   sa.RequestID,
			Subject:     sa.Subject,
			Kind:        sa.Kind,
			AttemptNum:  sa.AttemptNum,
			Success:     sa.Success,
			Composite:   sa.Score,
			Temperature: sa.Params.Temperature,
			CreatedAt:   sa.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	return printListTable(store, rows, kind)
}

func printListTable(store *feedback.Store, rows []listRow, kind string) error {
	fmt.Printf("%-10s  %-10s  %-14s  %3s  %-7s  %9s  %5s  %s\n",
		"Attempt", "Request", "Kind", "#", "Result", "Composite", "Temp", "Time")
	fmt.Printf("%-10s+-%-10s+-%-14s+-%3s+-%-7s+-%9s+-%5s+-%s\n",
		"----------", "----------", "--------------", "---", "-------", "---------", "-----", "--------------------")

	for _, r := range rows {
		result := "reject"
		if r.Success {
			result = "accept"
		}
		fmt.Printf("%-10s  %-10s  %-14s  %3d  %-7s  %9.1f  %5.2f  %s\n",
			shortID(r.AttemptID), shortID(r.RequestID), r.Kind, r.AttemptNum,
			result, r.Composite, r.Temperature, r.CreatedAt)
	}

	stats, err := store.ScopeStats(feedback.Filter{Kind: kind})
	if err != nil {
		return err
	}
	fmt.Printf("\nScope: total=%d successes=%d rate=%.0f%% avg_composite=%.1f\n",
		stats.Total, stats.Successes, stats.SuccessRate*100, stats.AvgScore)

	spots, err := store.SweetSpots(feedback.GenericScope)
	if err != nil {
		return err
	}
	if len(spots) > 0 {
		fmt.Printf("\nSweet spots:\n")
		for _, sp := range spots {
			fmt.Printf("  %-22s  [%.3f, %.3f, %.3f]  n=%d  %s\n",
				sp.Param, sp.Min, sp.Median, sp.Max, sp.Samples, sp.Confidence)
		}
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RequestID string              `json:"request_id"`
	Attempts  []listRow           `json:"attempts"`
	Decisions []feedback.Decision `json:"decisions"`
}

func runDetailMode(store *feedback.Store, requestID string, jsonOut bool) error {
	rows, err := store.DB().Query(
		`SELECT a.id, a.subject, a.kind, a.attempt_num, a.success, a.temperature, a.created_at, d.composite_score
		 FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id
		 WHERE a.request_id = ? ORDER BY a.attempt_num ASC`, requestID,
	)
	if err != nil {
		return fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []listRow
	for rows.Next() {
		var r listRow
		var success int
		if err := rows.Scan(&r.AttemptID, &r.Subject, &r.Kind, &r.AttemptNum, &success, &r.Temperature, &r.CreatedAt, &r.Composite); err != nil {
			return fmt.Errorf("scan attempt: %w", err)
		}
		r.RequestID = requestID
		r.Success = success == 1
		attempts = append(attempts, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(attempts) == 0 {
		return fmt.Errorf("no attempts for request %s", requestID)
	}

	decisions, err := requestDecisions(store, requestID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(detailOutput{RequestID: requestID, Attempts: attempts, Decisions: decisions})
	}

	fmt.Printf("Request:  %s\n", requestID)
	fmt.Printf("Subject:  %s\n", attempts[0].Subject)
	fmt.Printf("Kind:     %s\n", attempts[0].Kind)
	fmt.Printf("Attempts: %d\n\n", len(attempts))

	for _, r := range attempts {
		result := "reject"
		if r.Success {
			result = "accept"
		}
		fmt.Printf("  #%d  %-7s  composite=%.1f  temp=%.2f  %s\n",
			r.AttemptNum, result, r.Composite, r.Temperature, r.CreatedAt)
	}

	if len(decisions) > 0 {
		fmt.Printf("\nDecision log:\n")
		for _, d := range decisions {
			fmt.Printf("  %-16s  composite=%.1f  %s\n", d.State, d.Composite, d.Reason)
		}
	}
	return nil
}

func requestDecisions(store *feedback.Store, requestID string) ([]feedback.Decision, error) {
	rows, err := store.DB().Query(
		`SELECT request_id, COALESCE(attempt_id, ''), state, COALESCE(reason, ''), composite, created_at
		 FROM decision_log WHERE request_id = ? ORDER BY id ASC`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []feedback.Decision
	for rows.Next() {
		var d feedback.Decision
		var createdStr string
		if err := rows.Scan(&d.RequestID, &d.AttemptID, &d.State, &d.Reason, &d.Composite, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion detail-mode

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
