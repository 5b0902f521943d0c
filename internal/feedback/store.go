package feedback

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"copyloop/internal/params"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id                     TEXT PRIMARY KEY,
	request_id             TEXT NOT NULL,
	subject                TEXT NOT NULL,
	kind                   TEXT NOT NULL,
	attempt_num            INTEGER NOT NULL,
	text                   TEXT NOT NULL,
	success                INTEGER NOT NULL DEFAULT 0,
	created_at             TEXT NOT NULL,
	params_version         INTEGER NOT NULL,
	temperature            REAL NOT NULL,
	frequency_penalty      REAL NOT NULL,
	presence_penalty       REAL NOT NULL,
	max_tokens             INTEGER NOT NULL,
	max_attempts           INTEGER NOT NULL,
	detection_threshold    REAL NOT NULL,
	repetition_sensitivity REAL NOT NULL,
	readability_min        REAL NOT NULL,
	readability_max        REAL NOT NULL,
	voice_contractions     REAL NOT NULL,
	voice_colloquial       REAL NOT NULL,
	enrichment_detail      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS detection_scores (
	attempt_id        TEXT PRIMARY KEY,
	human_score       REAL NOT NULL,
	readability_score REAL NOT NULL,
	qual_score        REAL,
	composite_score   REAL NOT NULL,
	method            TEXT NOT NULL,
	FOREIGN KEY (attempt_id) REFERENCES attempts(id)
);

CREATE TABLE IF NOT EXISTS sentence_scores (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id TEXT NOT NULL,
	sentence   TEXT NOT NULL,
	score      REAL NOT NULL,
	FOREIGN KEY (attempt_id) REFERENCES attempts(id)
);

CREATE TABLE IF NOT EXISTS corrections (
	id         TEXT PRIMARY KEY,
	attempt_id TEXT NOT NULL,
	original   TEXT NOT NULL,
	corrected  TEXT NOT NULL,
	category   TEXT NOT NULL,
	approved   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	FOREIGN KEY (attempt_id) REFERENCES attempts(id)
);

CREATE TABLE IF NOT EXISTS sweet_spots (
	scope          TEXT NOT NULL,
	param          TEXT NOT NULL,
	optimal_min    REAL NOT NULL,
	optimal_median REAL NOT NULL,
	optimal_max    REAL NOT NULL,
	samples        INTEGER NOT NULL,
	confidence     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	UNIQUE(scope, param)
);

CREATE INDEX IF NOT EXISTS idx_attempts_kind ON attempts(kind, success);
CREATE INDEX IF NOT EXISTS idx_attempts_request ON attempts(request_id);
CREATE INDEX IF NOT EXISTS idx_sentence_scores_attempt ON sentence_scores(attempt_id);
`

// #endregion schema

// #region store

// Store is the append-only feedback log backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the feedback database and runs migrations.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(decisionSchema); err != nil {
		return nil, fmt.Errorf("migrate decision log: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read-only consumers.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region insert-attempt

// InsertAttempt writes an attempt, its detection scores, and its sentence
// scores in one transaction. No partially-visible records.
func (s *Store) InsertAttempt(att Attempt, sc Scores, sentences []SentenceScore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	success := 0
	if att.Success {
		success = 1
	}
	p := att.Params

	_, err = tx.Exec(
		`INSERT INTO attempts
		 (id, request_id, subject, kind, attempt_num, text, success, created_at,
		  params_version, temperature, frequency_penalty, presence_penalty, max_tokens,
		  max_attempts, detection_threshold, repetition_sensitivity,
		  readability_min, readability_max, voice_contractions, voice_colloquial, enrichment_detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		att.ID, att.RequestID, att.Subject, att.Kind, att.AttemptNum, att.Text, success,
		att.CreatedAt.Format(time.RFC3339Nano),
		p.Version, p.Temperature, p.FrequencyPenalty, p.PresencePenalty, p.MaxTokens,
		p.MaxAttempts, p.DetectionThreshold, p.RepetitionSensitivity,
		p.ReadabilityMin, p.ReadabilityMax, p.VoiceContractions, p.VoiceColloquial, p.EnrichmentDetail,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	var qualPtr interface{}
	if sc.QualPresent {
		qualPtr = sc.QualScore
	}
	_, err = tx.Exec(
		`INSERT INTO detection_scores (attempt_id, human_score, readability_score, qual_score, composite_score, method)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		att.ID, sc.HumanScore, sc.ReadabilityScore, qualPtr, sc.Composite, sc.Method,
	)
	if err != nil {
		return fmt.Errorf("insert scores: %w", err)
	}

	for _, sent := range sentences {
		_, err = tx.Exec(
			`INSERT INTO sentence_scores (attempt_id, sentence, score) VALUES (?, ?, ?)`,
			att.ID, sent.Text, sent.Score,
		)
		if err != nil {
			return fmt.Errorf("insert sentence score: %w", err)
		}
	}

	return tx.Commit()
}

// #endregion insert-attempt

// #region insert-correction

// InsertCorrection records a human edit linked to an attempt.
func (s *Store) InsertCorrection(c Correction) error {
	approved := 0
	if c.Approved {
		approved = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO corrections (id, attempt_id, original, corrected, category, approved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AttemptID, c.Original, c.Corrected, c.Category, approved,
		c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert correction: %w", err)
	}
	return nil
}

// AttemptText returns the stored text for one attempt ID.
func (s *Store) AttemptText(id string) (string, error) {
	var text string
	err := s.db.QueryRow(`SELECT text FROM attempts WHERE id = ?`, id).Scan(&text)
	if err != nil {
		return "", fmt.Errorf("attempt %s: %w", id, err)
	}
	return text, nil
}

// Corrections returns corrections within the filter's content kind.
func (s *Store) Corrections(f Filter) ([]Correction, error) {
	query := `SELECT c.id, c.attempt_id, c.original, c.corrected, c.category, c.approved, c.created_at
	          FROM corrections c JOIN attempts a ON a.id = c.attempt_id` + whereClause(f, "a")
	rows, err := s.db.Query(query, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var out []Correction
	for rows.Next() {
		var c Correction
		var approved int
		var createdStr string
		if err := rows.Scan(&c.ID, &c.AttemptID, &c.Original, &c.Corrected, &c.Category, &approved, &createdStr); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.Approved = approved == 1
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion insert-correction

// #region sweet-spots

// UpsertSweetSpot inserts or replaces the range for (scope, param).
func (s *Store) UpsertSweetSpot(spot SweetSpot) error {
	if spot.UpdatedAt.IsZero() {
		spot.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO sweet_spots (scope, param, optimal_min, optimal_median, optimal_max, samples, confidence, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(scope, param) DO UPDATE SET
		   optimal_min = excluded.optimal_min,
		   optimal_median = excluded.optimal_median,
		   optimal_max = excluded.optimal_max,
		   samples = excluded.samples,
		   confidence = excluded.confidence,
		   updated_at = excluded.updated_at`,
		spot.Scope, spot.Param, spot.Min, spot.Median, spot.Max,
		spot.Samples, spot.Confidence, spot.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert sweet spot: %w", err)
	}
	return nil
}

// SweetSpots returns every stored range for the scope.
func (s *Store) SweetSpots(scope string) ([]SweetSpot, error) {
	rows, err := s.db.Query(
		`SELECT scope, param, optimal_min, optimal_median, optimal_max, samples, confidence, updated_at
		 FROM sweet_spots WHERE scope = ? ORDER BY param`, scope,
	)
	if err != nil {
		return nil, fmt.Errorf("query sweet spots: %w", err)
	}
	defer rows.Close()

	var out []SweetSpot
	for rows.Next() {
		var sp SweetSpot
		var updatedStr string
		if err := rows.Scan(&sp.Scope, &sp.Param, &sp.Min, &sp.Median, &sp.Max, &sp.Samples, &sp.Confidence, &updatedStr); err != nil {
			return nil, fmt.Errorf("scan sweet spot: %w", err)
		}
		sp.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// #endregion sweet-spots

// #region aggregates

// ScopeStats aggregates success rate and mean composite within the filter.
// Zero rows return a zero-valued ScopeStats.
func (s *Store) ScopeStats(f Filter) (ScopeStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(a.success), 0), COALESCE(AVG(d.composite_score), 0)
	          FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id` + whereClause(f, "a")
	var st ScopeStats
	err := s.db.QueryRow(query, filterArgs(f)...).Scan(&st.Total, &st.Successes, &st.AvgScore)
	if err != nil {
		return ScopeStats{}, fmt.Errorf("scope stats: %w", err)
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Successes) / float64(st.Total)
	}
	return st, nil
}

// TemperatureBuckets aggregates outcomes by temperature rounded to 0.05.
func (s *Store) TemperatureBuckets(f Filter) ([]TempBucket, error) {
	query := `SELECT a.temperature, a.success, d.composite_score
	          FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id` + whereClause(f, "a")
	rows, err := s.db.Query(query, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("temperature buckets: %w", err)
	}
	defer rows.Close()

	type accum struct {
		total     int
		successes int
		scoreSum  float64
	}
	buckets := make(map[float64]*accum)
	for rows.Next() {
		var temp, score float64
		var success int
		if err := rows.Scan(&temp, &success, &score); err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}
		key := BucketTemperature(temp)
		if _, ok := buckets[key]; !ok {
			buckets[key] = &accum{}
		}
		buckets[key].total++
		buckets[key].successes += success
		buckets[key].scoreSum += score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []TempBucket
	for temp, a := range buckets {
		out = append(out, TempBucket{
			Temperature: temp,
			Total:       a.total,
			Successes:   a.successes,
			SuccessRate: float64(a.successes) / float64(a.total),
			AvgScore:    a.scoreSum / float64(a.total),
		})
	}
	return out, nil
}

// Outcomes returns the pattern learner's view: text, success flag, score.
func (s *Store) Outcomes(f Filter) ([]Outcome, error) {
	query := `SELECT a.text, a.success, d.composite_score
	          FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id` + whereClause(f, "a")
	rows, err := s.db.Query(query, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var success int
		if err := rows.Scan(&o.Text, &success, &o.Score); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Success = success == 1
		out = append(out, o)
	}
	return out, rows.Err()
}

// ScoredAttempts returns full attempts joined with their composite score,
// newest first, capped at limit (0 = no cap).
func (s *Store) ScoredAttempts(f Filter, limit int) ([]ScoredAttempt, error) {
	query := `SELECT a.id, a.request_id, a.subject, a.kind, a.attempt_num, a.text, a.success, a.created_at,
	                 a.params_version, a.temperature, a.frequency_penalty, a.presence_penalty, a.max_tokens,
	                 a.max_attempts, a.detection_threshold, a.repetition_sensitivity,
	                 a.readability_min, a.readability_max, a.voice_contractions, a.voice_colloquial, a.enrichment_detail,
	                 d.composite_score
	          FROM attempts a JOIN detection_scores d ON d.attempt_id = a.id` + whereClause(f, "a") +
		` ORDER BY a.created_at DESC`
	args := filterArgs(f)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scored attempts: %w", err)
	}
	defer rows.Close()

	var out []ScoredAttempt
	for rows.Next() {
		var sa ScoredAttempt
		var success int
		var createdStr string
		var p params.Bundle
		if err := rows.Scan(
			&sa.ID, &sa.RequestID, &sa.Subject, &sa.Kind, &sa.AttemptNum, &sa.Text, &success, &createdStr,
			&p.Version, &p.Temperature, &p.FrequencyPenalty, &p.PresencePenalty, &p.MaxTokens,
			&p.MaxAttempts, &p.DetectionThreshold, &p.RepetitionSensitivity,
			&p.ReadabilityMin, &p.ReadabilityMax, &p.VoiceContractions, &p.VoiceColloquial, &p.EnrichmentDetail,
			&sa.Score,
		); err != nil {
			return nil, fmt.Errorf("scan scored attempt: %w", err)
		}
		sa.Success = success == 1
		sa.Params = p
		sa.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, sa)
	}
	return out, rows.Err()
}

// #endregion aggregates

// #region helpers

// BucketTemperature rounds t to the advisor's 0.05 bucket granularity.
func BucketTemperature(t float64) float64 {
	return math.Round(t/0.05) * 0.05
}

func whereClause(f Filter, alias string) string {
	clause := ""
	add := func(cond string) {
		if clause == "" {
			clause = " WHERE " + cond
		} else {
			clause += " AND " + cond
		}
	}
	if f.Kind != "" {
		add(alias + ".kind = ?")
	}
	if f.AttemptNum > 0 {
		add(alias + ".attempt_num = ?")
	}
	return clause
}

func filterArgs(f Filter) []interface{} {
	var args []interface{}
	if f.Kind != "" {
		args = append(args, f.Kind)
	}
	if f.AttemptNum > 0 {
		args = append(args, f.AttemptNum)
	}
	return args
}

// #endregion helpers
