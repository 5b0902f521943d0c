package detector

import "context"

// #region method

// Method identifies which signal chain actually produced a composite score.
type Method string

const (
	// MethodEnsemble is the primary path: external classifier blended with
	// the simple local pattern heuristic.
	MethodEnsemble Method = "ensemble"
	// MethodAdvancedLocal is the first fallback when the classifier fails.
	MethodAdvancedLocal Method = "advanced_local"
	// MethodSecondaryModel is the optional second fallback.
	MethodSecondaryModel Method = "secondary_model"
	// MethodSimpleLocal is the last-resort fallback.
	MethodSimpleLocal Method = "simple_local"
)

// #endregion method

// #region result

// SentenceScore is a per-sentence human-likeness score (0–100).
type SentenceScore struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Result is the ensemble output for one text.
type Result struct {
	// Composite is the blended human-likeness score in [0, 1].
	Composite float64
	// Method records which chain produced Composite. A classifier failure
	// is never silently treated as a pass; the fallback method is recorded.
	Method Method
	// HumanScore is the raw classifier score (0–100) when available.
	HumanScore float64
	// SignalScores holds every contributing signal in [0, 1].
	SignalScores map[string]float64
	// Sentences holds per-sentence scores when the classifier provided them.
	Sentences []SentenceScore
}

// #endregion result

// #region interfaces

// Classifier is the external authenticity classifier boundary.
type Classifier interface {
	Detect(ctx context.Context, text string) (ClassifierResponse, error)
}

// SecondaryScorer is an optional local model used between the advanced
// heuristic and the simple pattern match in the fallback order.
type SecondaryScorer interface {
	Score(text string) (float64, error) // human-likeness in [0, 1]
}

// ClassifierResponse is the raw classifier payload.
type ClassifierResponse struct {
	HumanScore float64         `json:"human_score"` // 0–100
	Sentences  []SentenceScore `json:"sentences"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
}

// #endregion interfaces
