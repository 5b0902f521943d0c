package sweetspot

import (
	"fmt"
	"math"
	"sort"
	"time"

	"copyloop/internal/feedback"
)

// #region config

// Config tunes the analyzer.
type Config struct {
	TopFraction float64 // share of successful attempts treated as top performers
	MinSamples  int     // successful-attempt floor below which the result is insufficient
	BestCount   int     // absolute best-ever attempts to retain for inspection
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{TopFraction: 0.25, MinSamples: 5, BestCount: 3}
}

// #endregion config

// #region types

// Confidence tiers for a sweet-spot analysis.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// ParamRange is the observed optimal range for one numeric parameter.
type ParamRange struct {
	Param  string
	Min    float64
	Median float64
	Max    float64
}

// Correlation ranks a parameter by its linear relationship with outcome
// score across the scope.
type Correlation struct {
	Param       string
	Coefficient float64
}

// Analysis is the full analyzer output for one scope.
type Analysis struct {
	Sufficient   bool
	SampleCount  int // successful attempts considered
	TopCount     int // top performers the ranges are computed from
	Confidence   Confidence
	Ranges       []ParamRange
	BestAttempts []feedback.ScoredAttempt
	Correlations []Correlation
}

// Source abstracts the feedback store read the analyzer needs.
type Source interface {
	ScoredAttempts(f feedback.Filter, limit int) ([]feedback.ScoredAttempt, error)
}

// SpotSink receives persisted ranges, keyed by the generic scope.
type SpotSink interface {
	UpsertSweetSpot(s feedback.SweetSpot) error
}

// #endregion types

// #region analyzer

// Analyzer derives per-parameter optimal ranges from the top-scoring
// successful attempts, deliberately pooling across subjects.
type Analyzer struct {
	source Source
	cfg    Config
}

// NewAnalyzer creates an analyzer over the given source.
func NewAnalyzer(source Source, cfg Config) *Analyzer {
	return &Analyzer{source: source, cfg: cfg}
}

// #endregion analyzer

// #region analyze

// Analyze selects the top TopFraction of successful attempts in scope by
// score and computes min/median/max per parameter, plus per-parameter
// correlation with score across all scored attempts. Below the sample
// floor it returns an explicit insufficient result, never an error.
func (a *Analyzer) Analyze(f feedback.Filter) (Analysis, error) {
	all, err := a.source.ScoredAttempts(f, 0)
	if err != nil {
		return Analysis{}, fmt.Errorf("load attempts: %w", err)
	}

	var successful []feedback.ScoredAttempt
	for _, sa := range all {
		if sa.Success {
			successful = append(successful, sa)
		}
	}
	if len(successful) < a.cfg.MinSamples {
		return Analysis{Sufficient: false, SampleCount: len(successful), Confidence: ConfidenceNone}, nil
	}

	sort.Slice(successful, func(i, j int) bool {
		return successful[i].Score > successful[j].Score
	})

	topCount := int(math.Ceil(float64(len(successful)) * a.cfg.TopFraction))
	if topCount < a.cfg.MinSamples {
		topCount = a.cfg.MinSamples
	}
	if topCount > len(successful) {
		topCount = len(successful)
	}
	top := successful[:topCount]

	ranges := paramRanges(top)
	best := successful
	if len(best) > a.cfg.BestCount {
		best = best[:a.cfg.BestCount]
	}

	return Analysis{
		Sufficient:   true,
		SampleCount:  len(successful),
		TopCount:     topCount,
		Confidence:   confidenceFor(top),
		Ranges:       ranges,
		BestAttempts: best,
		Correlations: correlations(all),
	}, nil
}

// Persist upserts every range under the generic scope key.
func (a *Analyzer) Persist(analysis Analysis, sink SpotSink) error {
	if !analysis.Sufficient {
		return nil
	}
	now := time.Now().UTC()
	for _, r := range analysis.Ranges {
		err := sink.UpsertSweetSpot(feedback.SweetSpot{
			Scope:      feedback.GenericScope,
			Param:      r.Param,
			Min:        r.Min,
			Median:     r.Median,
			Max:        r.Max,
			Samples:    analysis.TopCount,
			Confidence: string(analysis.Confidence),
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("persist sweet spot %s: %w", r.Param, err)
		}
	}
	return nil
}

// #endregion analyze

// #region ranges

func paramRanges(top []feedback.ScoredAttempt) []ParamRange {
	values := make(map[string][]float64)
	for _, sa := range top {
		for name, v := range sa.Params.Numeric() {
			values[name] = append(values[name], v)
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ParamRange, 0, len(names))
	for _, name := range names {
		vals := values[name]
		sort.Float64s(vals)
		out = append(out, ParamRange{
			Param:  name,
			Min:    vals[0],
			Median: median(vals),
			Max:    vals[len(vals)-1],
		})
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// confidenceFor derives a tier from top-performer count and score spread:
// many samples with tight scores rank higher.
func confidenceFor(top []feedback.ScoredAttempt) Confidence {
	scores := make([]float64, len(top))
	for i, sa := range top {
		scores[i] = sa.Score
	}
	spread := stddev(scores)
	switch {
	case len(top) >= 10 && spread < 10:
		return ConfidenceHigh
	case len(top) >= 5 && spread < 20:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(vals)))
}

// #endregion ranges

// #region correlation

// correlations computes the Pearson coefficient between each numeric
// parameter and the outcome score across all scored attempts, ranked by
// absolute strength.
func correlations(all []feedback.ScoredAttempt) []Correlation {
	if len(all) < 3 {
		return nil
	}

	scores := make([]float64, len(all))
	values := make(map[string][]float64)
	for i, sa := range all {
		scores[i] = sa.Score
		for name, v := range sa.Params.Numeric() {
			values[name] = append(values[name], v)
		}
	}

	var out []Correlation
	for name, vals := range values {
		out = append(out, Correlation{Param: name, Coefficient: pearson(vals, scores)})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Coefficient), math.Abs(out[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		return out[i].Param < out[j].Param
	})
	return out
}

// pearson returns the linear correlation coefficient, or 0 when either
// series is constant.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 || len(xs) != len(ys) {
		return 0
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// #endregion correlation
