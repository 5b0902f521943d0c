package main

import (
	"flag"
	"fmt"
	"os"

	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/feedback"
	"copyloop/internal/params"
	"copyloop/internal/replay"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to copyloop.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	creativity := flag.Float64("creativity", 5, "creativity slider 0-10 (DB mode)")
	authenticity := flag.Float64("authenticity", 5, "authenticity slider 0-10 (DB mode)")
	strictness := flag.Float64("strictness", 5, "strictness slider 0-10 (DB mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/copyloop.db [--creativity N] [--authenticity N] [--strictness N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		config := replay.DefaultReplayConfig()
		config.Controls = params.Controls{
			Creativity:   *creativity,
			Authenticity: *authenticity,
			Strictness:   *strictness,
			VoiceWarmth:  5,
			Enrichment:   5,
		}
		exitCode = runDBMode(*dbPath, config)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

func runDBMode(dbPath string, config replay.ReplayConfig) int {
	store, err := feedback.NewStore(dbPath, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	interactions, recorded, err := loadInteractions(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load attempts: %v\n", err)
		return 2
	}
	if len(interactions) == 0 {
		fmt.Fprintln(os.Stderr, "no attempts found")
		return 2
	}

	results, err := replay.Replay(interactions, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	return printComparison(results, recorded)
}

// loadInteractions extracts every recorded attempt with its detection
// scores and per-sentence scores, oldest first. The second return value is
// each attempt's recorded action ("accept" or "reject").
func loadInteractions(store *feedback.Store) ([]replay.Interaction, []string, error) {
	rows, err := store.DB().Query(
		`SELECT a.id, a.kind, a.text, a.success,
		        d.human_score, d.composite_score, d.method, COALESCE(d.qual_score, 0), d.qual_score IS NOT NULL
		 FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id
		 ORDER BY a.created_at ASC`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var interactions []replay.Interaction
	var recorded []string
	for rows.Next() {
		var inter replay.Interaction
		var kind string
		var success, qualHas int
		var composite float64
		var method string
		if err := rows.Scan(&inter.AttemptID, &kind, &inter.Text, &success,
			&inter.HumanScore, &composite, &method, &inter.QualScore, &qualHas); err != nil {
			return nil, nil, fmt.Errorf("scan attempt: %w", err)
		}
		inter.Kind = content.Kind(kind)
		// composite_score is persisted 0-100; the detector works on 0-1.
		inter.Composite = composite / 100.0
		inter.Method = method
		inter.QualHas = qualHas == 1

		sentences, err := loadSentences(store, inter.AttemptID)
		if err != nil {
			return nil, nil, err
		}
		inter.Sentences = sentences

		interactions = append(interactions, inter)
		if success == 1 {
			recorded = append(recorded, "accept")
		} else {
			recorded = append(recorded, "reject")
		}
	}
	return interactions, recorded, rows.Err()
}

func loadSentences(store *feedback.Store, attemptID string) ([]detector.SentenceScore, error) {
	rows, err := store.DB().Query(
		`SELECT sentence, score FROM sentence_scores WHERE attempt_id = ? ORDER BY id ASC`, attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sentences: %w", err)
	}
	defer rows.Close()

	var out []detector.SentenceScore
	for rows.Next() {
		var s detector.SentenceScore
		if err := rows.Scan(&s.Text, &s.Score); err != nil {
			return nil, fmt.Errorf("scan sentence: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// #endregion db-extract

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	config := f.Config.ToReplayConfig()
	interactions := make([]replay.Interaction, len(f.Interactions))
	for i := range f.Interactions {
		interactions[i] = f.Interactions[i].ToInteraction()
	}

	results, err := replay.Replay(interactions, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}

	return printComparison(results, expected)
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every replayed action matches the expected action, 1 otherwise.
func printComparison(results []replay.ReplayResult, expected []string) int {
	fmt.Printf("%-10s| %-8s| %-8s| %-10s| %-5s| %s\n", "Attempt", "Expected", "Replayed", "Class", "Match", "Reason")
	fmt.Printf("%-10s+%-9s+%-9s+%-11s+%-6s+%s\n",
		"----------", "---------", "---------", "-----------", "------", "--------------------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		r := results[i]
		match := "DIFF"
		if expected[i] == r.Action {
			match = "OK"
			matches++
		}
		fmt.Printf("%-10s| %-8s| %-8s| %-10s| %-5s| %s\n",
			shortID(r.AttemptID), expected[i], r.Action, r.FailureClass, match, r.Reason)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d accept, %d reject (%d uniform, %d borderline, %d mixed), %d diverge\n",
		s.Total, s.Accepts, s.Rejects, s.Uniform, s.Borderline, s.Mixed, total-matches)

	if total-matches > 0 {
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
