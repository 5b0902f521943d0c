package feedback

import (
	"time"

	"copyloop/internal/params"
)

// #region attempt

// Attempt is one generate-then-validate cycle. Immutable once written.
type Attempt struct {
	ID         string
	RequestID  string
	Subject    string
	Kind       string
	AttemptNum int
	Params     params.Bundle
	Text       string
	Success    bool
	CreatedAt  time.Time
}

// #endregion attempt

// #region scores

// Scores is the 1:1 detection record for an attempt. Composite is on the
// persisted 0–100 scale.
type Scores struct {
	HumanScore       float64
	ReadabilityScore float64
	QualScore        float64 // valid only when QualPresent
	QualPresent      bool
	Composite        float64
	Method           string
}

// SentenceScore is a per-sentence human-likeness score.
type SentenceScore struct {
	Text  string
	Score float64
}

// #endregion scores

// #region correction

// Correction is an optional human edit linked to an attempt. Learning
// input only; never required for normal operation.
type Correction struct {
	ID        string
	AttemptID string
	Original  string
	Corrected string
	Category  string
	Approved  bool
	CreatedAt time.Time
}

// #endregion correction

// #region sweet-spot

// GenericScope is the wildcard scope key sweet spots are pooled under.
// Pooling across subjects is deliberate: it combats per-subject sparsity.
const GenericScope = "any"

// SweetSpot is a per-parameter optimal range derived from top performers.
type SweetSpot struct {
	Scope      string
	Param      string
	Min        float64
	Median     float64
	Max        float64
	Samples    int
	Confidence string
	UpdatedAt  time.Time
}

// #endregion sweet-spot

// #region queries

// Filter scopes aggregate reads. Zero values mean "all".
type Filter struct {
	Kind       string
	AttemptNum int
}

// ScopeStats summarizes outcomes within a filter. Zero rows yield a
// zero-valued ScopeStats (Total == 0), never an error.
type ScopeStats struct {
	Total       int
	Successes   int
	SuccessRate float64
	AvgScore    float64
}

// TempBucket aggregates outcomes for one temperature bucket (0.05 wide).
type TempBucket struct {
	Temperature float64
	Total       int
	Successes   int
	SuccessRate float64
	AvgScore    float64
}

// Outcome is the pattern learner's view of one attempt.
type Outcome struct {
	Text    string
	Success bool
	Score   float64
}

// ScoredAttempt is an attempt joined with its composite score.
type ScoredAttempt struct {
	Attempt
	Score float64
}

// #endregion queries
