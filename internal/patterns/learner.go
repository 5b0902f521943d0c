package patterns

import (
	"fmt"
	"sort"
	"strings"

	"copyloop/internal/feedback"
)

// #region config

// Config tunes the learner's thresholds.
type Config struct {
	MinOccurrences int     // occurrences required before a pattern is judged
	MinFailRate    float64 // fail rate at or above which a pattern is risky
	SafeFailRate   float64 // fail rate at or below which a pattern is safe
	MinSamples     int     // attempt count floor below which the result is "insufficient data"
	WindowMin      int     // smallest n-gram window
	WindowMax      int     // largest n-gram window
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinOccurrences: 3,
		MinFailRate:    0.7,
		SafeFailRate:   0.3,
		MinSamples:     5,
		WindowMin:      2,
		WindowMax:      4,
	}
}

// #endregion config

// #region types

// Pattern is an n-gram with its occurrence count and failure rate within
// the queried scope.
type Pattern struct {
	Text     string
	Count    int
	FailRate float64
}

// Report is the learner output. Sufficient is false below the sample
// floor; callers must treat that as an explicit neutral result, not as an
// empty pattern list.
type Report struct {
	Sufficient      bool
	SampleCount     int
	Risky           []Pattern
	Safe            []Pattern
	Recommendations []string
}

// OutcomeSource abstracts the feedback store reads the learner needs.
type OutcomeSource interface {
	Outcomes(f feedback.Filter) ([]feedback.Outcome, error)
	Corrections(f feedback.Filter) ([]feedback.Correction, error)
}

// #endregion types

// #region learner

// Learner mines stored texts for phrase windows that correlate with
// failure or success.
type Learner struct {
	source OutcomeSource
	cfg    Config
}

// NewLearner creates a learner over the given source.
func NewLearner(source OutcomeSource, cfg Config) *Learner {
	return &Learner{source: source, cfg: cfg}
}

// #endregion learner

// #region analyze

// Analyze extracts 2–4 token windows from every stored text in scope and
// classifies each as risky or safe. Human corrections count their original
// text as one extra failure example.
func (l *Learner) Analyze(f feedback.Filter) (Report, error) {
	outcomes, err := l.source.Outcomes(f)
	if err != nil {
		return Report{}, fmt.Errorf("load outcomes: %w", err)
	}
	corrections, err := l.source.Corrections(f)
	if err != nil {
		return Report{}, fmt.Errorf("load corrections: %w", err)
	}
	for _, c := range corrections {
		outcomes = append(outcomes, feedback.Outcome{Text: c.Original, Success: false})
	}

	if len(outcomes) < l.cfg.MinSamples {
		return Report{Sufficient: false, SampleCount: len(outcomes)}, nil
	}

	type accum struct {
		count int
		fails int
	}
	stats := make(map[string]*accum)
	for _, o := range outcomes {
		// Count each window once per attempt so one repetitive text cannot
		// dominate the statistics.
		for w := range windows(o.Text, l.cfg.WindowMin, l.cfg.WindowMax) {
			a, ok := stats[w]
			if !ok {
				a = &accum{}
				stats[w] = a
			}
			a.count++
			if !o.Success {
				a.fails++
			}
		}
	}

	var risky, safe []Pattern
	for text, a := range stats {
		if a.count < l.cfg.MinOccurrences {
			continue
		}
		failRate := float64(a.fails) / float64(a.count)
		p := Pattern{Text: text, Count: a.count, FailRate: failRate}
		switch {
		case failRate >= l.cfg.MinFailRate:
			risky = append(risky, p)
		case failRate <= l.cfg.SafeFailRate:
			safe = append(safe, p)
		}
	}

	sortPatterns(risky, true)
	sortPatterns(safe, false)

	return Report{
		Sufficient:      true,
		SampleCount:     len(outcomes),
		Risky:           risky,
		Safe:            safe,
		Recommendations: recommendations(risky, safe),
	}, nil
}

// #endregion analyze

// #region helpers

// windows yields the distinct lowercase n-gram windows of text for
// n ∈ [min, max].
func windows(text string, min, max int) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{})
	for n := min; n <= max; n++ {
		for i := 0; i+n <= len(words); i++ {
			out[strings.Join(words[i:i+n], " ")] = struct{}{}
		}
	}
	return out
}

// sortPatterns orders risky by fail rate descending, safe ascending;
// count breaks ties, then text for determinism.
func sortPatterns(ps []Pattern, riskFirst bool) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].FailRate != ps[j].FailRate {
			if riskFirst {
				return ps[i].FailRate > ps[j].FailRate
			}
			return ps[i].FailRate < ps[j].FailRate
		}
		if ps[i].Count != ps[j].Count {
			return ps[i].Count > ps[j].Count
		}
		return ps[i].Text < ps[j].Text
	})
}

func recommendations(risky, safe []Pattern) []string {
	var recs []string
	if len(risky) > 0 {
		recs = append(recs, fmt.Sprintf("avoid %q: fails %.0f%% of the time across %d uses",
			risky[0].Text, risky[0].FailRate*100, risky[0].Count))
	}
	if len(risky) > 3 {
		recs = append(recs, fmt.Sprintf("%d phrasings show high failure rates; consider regenerating the prompt template", len(risky)))
	}
	if len(safe) > 0 {
		recs = append(recs, fmt.Sprintf("prefer %q: succeeds %.0f%% of the time across %d uses",
			safe[0].Text, (1-safe[0].FailRate)*100, safe[0].Count))
	}
	if len(recs) == 0 {
		recs = append(recs, "no strong phrase-level signal yet; keep collecting attempts")
	}
	return recs
}

// #endregion helpers
