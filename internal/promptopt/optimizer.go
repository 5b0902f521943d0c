package promptopt

import (
	"fmt"
	"strings"

	"copyloop/internal/feedback"
	"copyloop/internal/patterns"
)

// #region types

// Confidence tiers for an optimization.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Result is the optimizer output. With Confidence none the prompt is the
// base prompt unmodified; the optimizer never fabricates patterns.
type Result struct {
	Prompt              string
	Confidence          Confidence
	ExpectedImprovement float64 // estimated success-rate gain in [0, 0.25]
	RiskyUsed           int
	SafeUsed            int
}

// PatternSource abstracts the pattern learner.
type PatternSource interface {
	Analyze(f feedback.Filter) (patterns.Report, error)
}

// #endregion types

// #region optimizer

// Optimizer augments prompts with learned avoid/prefer phrase sections.
type Optimizer struct {
	source PatternSource
	topK   int
}

// NewOptimizer creates an optimizer taking the top K patterns per section.
func NewOptimizer(source PatternSource, topK int) *Optimizer {
	if topK <= 0 {
		topK = 5
	}
	return &Optimizer{source: source, topK: topK}
}

// #endregion optimizer

// #region optimize

// Optimize appends a never-use section from the top risky patterns and a
// prefer section from the top safe patterns, both for the same scope.
func (o *Optimizer) Optimize(basePrompt string, f feedback.Filter) (Result, error) {
	report, err := o.source.Analyze(f)
	if err != nil {
		return Result{}, fmt.Errorf("pattern analysis: %w", err)
	}
	if !report.Sufficient {
		return Result{Prompt: basePrompt, Confidence: ConfidenceNone}, nil
	}

	risky := report.Risky
	if len(risky) > o.topK {
		risky = risky[:o.topK]
	}
	safe := report.Safe
	if len(safe) > o.topK {
		safe = safe[:o.topK]
	}
	if len(risky) == 0 && len(safe) == 0 {
		return Result{Prompt: basePrompt, Confidence: ConfidenceLow}, nil
	}

	var b strings.Builder
	b.WriteString(basePrompt)

	if len(risky) > 0 {
		b.WriteString("\n\nNever use these phrases; they have failed before:\n")
		for _, p := range risky {
			fmt.Fprintf(&b, "- %q (failed %.0f%% of %d uses)\n", p.Text, p.FailRate*100, p.Count)
		}
	}
	if len(safe) > 0 {
		b.WriteString("\nPatterns that succeed; prefer phrasing like:\n")
		for _, p := range safe {
			fmt.Fprintf(&b, "- %q (succeeded %.0f%% of %d uses)\n", p.Text, (1-p.FailRate)*100, p.Count)
		}
	}

	return Result{
		Prompt:              b.String(),
		Confidence:          confidenceFor(report.SampleCount),
		ExpectedImprovement: expectedImprovement(risky, report.SampleCount),
		RiskyUsed:           len(risky),
		SafeUsed:            len(safe),
	}, nil
}

// #endregion optimize

// #region helpers

func confidenceFor(samples int) Confidence {
	switch {
	case samples >= 50:
		return ConfidenceHigh
	case samples >= 20:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// expectedImprovement estimates the success-rate gain from steering away
// from the listed risky patterns, scaled by sample size and capped.
func expectedImprovement(risky []patterns.Pattern, samples int) float64 {
	var gain float64
	for _, p := range risky {
		if p.FailRate > 0.5 {
			gain += (p.FailRate - 0.5) * 0.05
		}
	}
	scale := float64(samples) / 50.0
	if scale > 1 {
		scale = 1
	}
	gain *= scale
	if gain > 0.25 {
		gain = 0.25
	}
	return gain
}

// #endregion helpers
