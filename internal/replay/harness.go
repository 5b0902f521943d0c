// Package replay re-runs recorded attempts through the validation pipeline
// entirely offline. It answers "would this text pass under the current
// controls?" without calling any external service: detection scores come
// from the recording, readability and style are recomputed locally.
package replay

import (
	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/orchestrator"
	"copyloop/internal/params"
	"copyloop/internal/qualeval"
)

// #region types

// Interaction is a single recorded attempt for replay.
type Interaction struct {
	AttemptID  string
	Kind       content.Kind
	Text       string
	HumanScore float64 // recorded classifier score, 0–100
	Composite  float64 // recorded detection composite, 0–1
	Method     string
	Sentences  []detector.SentenceScore
	QualScore  float64 // recorded qualitative overall, 0–10
	QualHas    bool
}

// ReplayConfig fixes the controls and curriculum progress for a run.
type ReplayConfig struct {
	Controls params.Controls
	// ScopeSuccesses feeds the curriculum threshold, so a replay can probe
	// the bar at any point of a scope's maturity.
	ScopeSuccesses int
}

// DefaultReplayConfig uses mid-range controls and a fully tightened bar.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Controls:       params.Controls{Creativity: 5, Authenticity: 5, Strictness: 5, VoiceWarmth: 5, Enrichment: 5},
		ScopeSuccesses: 20,
	}
}

// ReplayResult captures the outcome of replaying one attempt.
type ReplayResult struct {
	AttemptID string
	Action    string // "accept" | "reject"
	Reason    string

	Composite    float64 // recomputed composite, 0–100
	Threshold    float64
	FailureClass orchestrator.FailureClass
	Gates        map[string]bool
}

// ReplaySummary aggregates a replay run.
type ReplaySummary struct {
	Total      int
	Accepts    int
	Rejects    int
	Uniform    int
	Borderline int
	Mixed      int
}

// #endregion types

// #region replay

// Replay validates every interaction against the bundle derived from the
// run's controls. Operates entirely in-memory.
func Replay(interactions []Interaction, config ReplayConfig) ([]ReplayResult, error) {
	results := make([]ReplayResult, 0, len(interactions))

	for _, inter := range interactions {
		bundle, err := params.Build(config.Controls, inter.Kind)
		if err != nil {
			return nil, err
		}
		spec, err := content.SpecFor(inter.Kind)
		if err != nil {
			return nil, err
		}
		threshold := orchestrator.CurriculumThreshold(bundle.DetectionThreshold, config.ScopeSuccesses)

		det := detector.Result{
			Composite:  inter.Composite,
			Method:     detector.Method(inter.Method),
			HumanScore: inter.HumanScore,
			Sentences:  inter.Sentences,
		}
		qual := qualeval.Evaluation{Overall: inter.QualScore}

		v := orchestrator.Evaluate(det, inter.Text, spec, bundle, qual, inter.QualHas, threshold)

		r := ReplayResult{
			AttemptID: inter.AttemptID,
			Composite: v.Composite,
			Threshold: v.Threshold,
			Gates: map[string]bool{
				"authenticity": v.GateAuthenticity,
				"readability":  v.GateReadability,
				"style":        v.GateStyle,
			},
		}
		if v.Passed {
			r.Action = "accept"
			r.Reason = "all gates passed"
			r.FailureClass = orchestrator.FailureNone
		} else {
			r.Action = "reject"
			r.FailureClass = orchestrator.ClassifyFailure(v, bundle)
			r.Reason = rejectReason(v)
		}
		results = append(results, r)
	}

	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Action == "accept":
			s.Accepts++
		default:
			s.Rejects++
			switch r.FailureClass {
			case orchestrator.FailureUniform:
				s.Uniform++
			case orchestrator.FailureBorderline:
				s.Borderline++
			default:
				s.Mixed++
			}
		}
	}
	return s
}

// #endregion replay

// #region helpers

func rejectReason(v orchestrator.Validation) string {
	switch {
	case !v.GateAuthenticity:
		return "authenticity gate failed"
	case !v.GateReadability:
		return "readability gate failed"
	case !v.GateStyle:
		if len(v.Lint.Violations) > 0 {
			return "style gate failed: " + v.Lint.Violations[0]
		}
		return "style gate failed"
	default:
		return "composite below curriculum threshold"
	}
}

// #endregion helpers
