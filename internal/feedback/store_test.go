package feedback

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"copyloop/internal/content"
	"copyloop/internal/params"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBundle(t *testing.T, temperature float64) params.Bundle {
	t.Helper()
	b, err := params.Build(params.Controls{Creativity: 5, Authenticity: 5, Strictness: 5}, content.KindBlurb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b.Temperature = temperature
	return b
}

func insertTestAttempt(t *testing.T, s *Store, kind string, attemptNum int, temperature, composite float64, success bool) string {
	t.Helper()
	id := uuid.New().String()
	att := Attempt{
		ID:         id,
		RequestID:  uuid.New().String(),
		Subject:    "corner bakery",
		Kind:       kind,
		AttemptNum: attemptNum,
		Params:     testBundle(t, temperature),
		Text:       "We bake sourdough every morning before dawn.",
		Success:    success,
		CreatedAt:  time.Now().UTC(),
	}
	sc := Scores{
		HumanScore:       composite,
		ReadabilityScore: 70,
		Composite:        composite,
		Method:           "ensemble",
	}
	if err := s.InsertAttempt(att, sc, nil); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}
	return id
}

func TestInsertAttemptWithSentences(t *testing.T) {
	s := tempStore(t)

	att := Attempt{
		ID:         "att-1",
		RequestID:  "req-1",
		Subject:    "corner bakery",
		Kind:       "blurb",
		AttemptNum: 1,
		Params:     testBundle(t, 0.8),
		Text:       "First sentence here. Second sentence here.",
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	}
	sc := Scores{HumanScore: 82, ReadabilityScore: 75, QualScore: 7.5, QualPresent: true, Composite: 79, Method: "ensemble"}
	sentences := []SentenceScore{
		{Text: "First sentence here", Score: 85},
		{Text: "Second sentence here", Score: 78},
	}

	if err := s.InsertAttempt(att, sc, sentences); err != nil {
		t.Fatalf("InsertAttempt: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM sentence_scores WHERE attempt_id = ?`, "att-1").Scan(&count); err != nil {
		t.Fatalf("count sentences: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 sentence rows, got %d", count)
	}

	attempts, err := s.ScoredAttempts(Filter{}, 0)
	if err != nil {
		t.Fatalf("ScoredAttempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	got := attempts[0]
	if !got.Success || got.Score != 79 {
		t.Fatalf("round trip mismatch: success=%v score=%f", got.Success, got.Score)
	}
	if got.Params.Temperature != 0.8 {
		t.Fatalf("expected temperature 0.8 back, got %f", got.Params.Temperature)
	}
}

func TestInsertAttemptDuplicateIDRollsBack(t *testing.T) {
	s := tempStore(t)
	id := insertTestAttempt(t, s, "blurb", 1, 0.8, 70, true)

	att := Attempt{
		ID:        id, // duplicate primary key
		RequestID: "req-x", Subject: "x", Kind: "blurb", AttemptNum: 2,
		Params: testBundle(t, 0.9), Text: "dup", CreatedAt: time.Now().UTC(),
	}
	if err := s.InsertAttempt(att, Scores{Method: "ensemble"}, nil); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}

	// The failed transaction must leave no partial detection row behind.
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM detection_scores`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 detection row after rollback, got %d", count)
	}
}

func TestScopeStats(t *testing.T) {
	s := tempStore(t)
	insertTestAttempt(t, s, "blurb", 1, 0.8, 80, true)
	insertTestAttempt(t, s, "blurb", 1, 0.8, 60, false)
	insertTestAttempt(t, s, "tagline", 1, 0.7, 90, true)

	st, err := s.ScopeStats(Filter{Kind: "blurb"})
	if err != nil {
		t.Fatalf("ScopeStats: %v", err)
	}
	if st.Total != 2 || st.Successes != 1 {
		t.Fatalf("expected 2/1, got %d/%d", st.Total, st.Successes)
	}
	if st.SuccessRate != 0.5 {
		t.Fatalf("expected rate 0.5, got %f", st.SuccessRate)
	}
	if st.AvgScore != 70 {
		t.Fatalf("expected avg 70, got %f", st.AvgScore)
	}
}

func TestScopeStatsEmpty(t *testing.T) {
	s := tempStore(t)
	st, err := s.ScopeStats(Filter{Kind: "blurb"})
	if err != nil {
		t.Fatalf("ScopeStats: %v", err)
	}
	if st.Total != 0 || st.SuccessRate != 0 || st.AvgScore != 0 {
		t.Fatalf("expected zero-valued stats, got %+v", st)
	}
}

func TestTemperatureBuckets(t *testing.T) {
	s := tempStore(t)
	// 0.79 and 0.81 land in the 0.80 bucket; 0.70 in its own.
	insertTestAttempt(t, s, "blurb", 1, 0.79, 80, true)
	insertTestAttempt(t, s, "blurb", 1, 0.81, 60, false)
	insertTestAttempt(t, s, "blurb", 1, 0.70, 90, true)

	buckets, err := s.TemperatureBuckets(Filter{Kind: "blurb"})
	if err != nil {
		t.Fatalf("TemperatureBuckets: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	var found bool
	for _, b := range buckets {
		if math.Abs(b.Temperature-0.80) < 1e-9 {
			found = true
			if b.Total != 2 || b.Successes != 1 {
				t.Fatalf("0.80 bucket: expected 2/1, got %d/%d", b.Total, b.Successes)
			}
			if b.AvgScore != 70 {
				t.Fatalf("0.80 bucket: expected avg 70, got %f", b.AvgScore)
			}
		}
	}
	if !found {
		t.Fatal("missing 0.80 bucket")
	}
}

func TestBucketTemperature(t *testing.T) {
	cases := map[float64]float64{0.79: 0.80, 0.81: 0.80, 0.83: 0.85, 0.70: 0.70}
	for in, want := range cases {
		if got := BucketTemperature(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("BucketTemperature(%f): expected %f, got %f", in, want, got)
		}
	}
}

func TestCorrections(t *testing.T) {
	s := tempStore(t)
	attID := insertTestAttempt(t, s, "blurb", 1, 0.8, 70, false)

	c := Correction{
		ID:        uuid.New().String(),
		AttemptID: attID,
		Original:  "Unlock the power of bread.",
		Corrected: "Our bread speaks for itself.",
		Category:  "tone",
		Approved:  true,
	}
	if err := s.InsertCorrection(c); err != nil {
		t.Fatalf("InsertCorrection: %v", err)
	}

	got, err := s.Corrections(Filter{Kind: "blurb"})
	if err != nil {
		t.Fatalf("Corrections: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(got))
	}
	if got[0].Original != c.Original || !got[0].Approved {
		t.Fatalf("round trip mismatch: %+v", got[0])
	}

	// Filtering on another kind excludes it.
	other, err := s.Corrections(Filter{Kind: "tagline"})
	if err != nil {
		t.Fatalf("Corrections: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected 0 corrections for tagline, got %d", len(other))
	}
}

func TestSweetSpotUpsert(t *testing.T) {
	s := tempStore(t)

	first := SweetSpot{Scope: GenericScope, Param: "temperature", Min: 0.7, Median: 0.8, Max: 0.9, Samples: 5, Confidence: "low"}
	if err := s.UpsertSweetSpot(first); err != nil {
		t.Fatalf("UpsertSweetSpot: %v", err)
	}
	second := SweetSpot{Scope: GenericScope, Param: "temperature", Min: 0.75, Median: 0.82, Max: 0.88, Samples: 12, Confidence: "high"}
	if err := s.UpsertSweetSpot(second); err != nil {
		t.Fatalf("UpsertSweetSpot: %v", err)
	}

	spots, err := s.SweetSpots(GenericScope)
	if err != nil {
		t.Fatalf("SweetSpots: %v", err)
	}
	if len(spots) != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", len(spots))
	}
	if spots[0].Median != 0.82 || spots[0].Samples != 12 || spots[0].Confidence != "high" {
		t.Fatalf("upsert did not replace: %+v", spots[0])
	}
}

func TestOutcomes(t *testing.T) {
	s := tempStore(t)
	insertTestAttempt(t, s, "blurb", 1, 0.8, 80, true)
	insertTestAttempt(t, s, "blurb", 2, 0.8, 55, false)

	out, err := s.Outcomes(Filter{Kind: "blurb", AttemptNum: 2})
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 outcome for attempt 2, got %d", len(out))
	}
	if out[0].Success || out[0].Score != 55 {
		t.Fatalf("outcome mismatch: %+v", out[0])
	}
}

func TestDecisionLog(t *testing.T) {
	s := tempStore(t)

	for i, state := range []string{"retry", "retry", "accept"} {
		err := s.LogDecision(Decision{
			RequestID: "req-1",
			State:     state,
			Reason:    "test",
			Composite: float64(60 + i*10),
		})
		if err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := s.RecentDecisions(2)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(got))
	}
	// Newest first.
	if got[0].State != "accept" || got[0].Composite != 80 {
		t.Fatalf("expected newest accept/80, got %+v", got[0])
	}
}

func TestAttemptText(t *testing.T) {
	s := tempStore(t)
	id := insertTestAttempt(t, s, "blurb", 1, 0.8, 70, true)

	text, err := s.AttemptText(id)
	if err != nil {
		t.Fatalf("AttemptText: %v", err)
	}
	if text != "We bake sourdough every morning before dawn." {
		t.Fatalf("bad text: %q", text)
	}

	if _, err := s.AttemptText("no-such-id"); err == nil {
		t.Fatal("expected error for unknown attempt")
	}
}
