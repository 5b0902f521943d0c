package advisor

import (
	"fmt"
	"math"
	"math/rand"

	"copyloop/internal/feedback"
	"copyloop/internal/params"
)

// #region confidence

// Confidence tiers for a temperature recommendation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // ≥10 samples and ≥70% success
	ConfidenceMedium Confidence = "medium" // ≥5 samples and ≥50% success
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none" // no bucket had enough samples
)

// #endregion confidence

// #region types

// Recommendation is the advisor's best temperature bucket.
type Recommendation struct {
	Temperature float64
	SuccessRate float64
	AvgScore    float64
	Composite   float64
	Samples     int
	Confidence  Confidence
}

// BucketSource abstracts the feedback store read the advisor needs.
type BucketSource interface {
	TemperatureBuckets(f feedback.Filter) ([]feedback.TempBucket, error)
}

// #endregion types

// #region advisor

// Advisor ranks historical temperature buckets and suggests adjustments.
type Advisor struct {
	source BucketSource
	rng    *rand.Rand
}

// NewAdvisor creates an advisor. rng drives the exploratory perturbation
// in Adjust and is injectable for deterministic tests.
func NewAdvisor(source BucketSource, rng *rand.Rand) *Advisor {
	return &Advisor{source: source, rng: rng}
}

// #endregion advisor

// #region recommend

const minBucketSamples = 2

// Recommend ranks buckets with ≥2 samples by
// 0.6·success_rate + 0.4·(score/100) and returns the winner. Sparse
// history yields Confidence none, never an error.
func (a *Advisor) Recommend(f feedback.Filter) (Recommendation, error) {
	buckets, err := a.source.TemperatureBuckets(f)
	if err != nil {
		return Recommendation{}, fmt.Errorf("load buckets: %w", err)
	}

	best := Recommendation{Confidence: ConfidenceNone}
	found := false
	for _, b := range buckets {
		if b.Total < minBucketSamples {
			continue
		}
		composite := 0.6*b.SuccessRate + 0.4*(b.AvgScore/100.0)
		if !found || composite > best.Composite ||
			(composite == best.Composite && b.Temperature < best.Temperature) {
			best = Recommendation{
				Temperature: b.Temperature,
				SuccessRate: b.SuccessRate,
				AvgScore:    b.AvgScore,
				Composite:   composite,
				Samples:     b.Total,
			}
			found = true
		}
	}
	if !found {
		return Recommendation{Confidence: ConfidenceNone}, nil
	}

	best.Confidence = confidenceFor(best.Samples, best.SuccessRate)
	return best, nil
}

func confidenceFor(samples int, successRate float64) Confidence {
	switch {
	case samples >= 10 && successRate >= 0.7:
		return ConfidenceHigh
	case samples >= 5 && successRate >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// #endregion recommend

// #region adjust

const (
	// nearOptimum is the distance under which the current temperature is
	// considered already close to the recommendation.
	nearOptimum = 0.1
	// explorationStep is the bounded perturbation applied near the optimum.
	explorationStep = 0.05
)

// Adjust proposes a new temperature after repeated recent failures: move
// halfway toward the recommended optimum when far from it, or apply a
// small bounded exploratory perturbation when already near it. With fewer
// than 2 recent failures or no recommendation, current is returned as-is.
func (a *Advisor) Adjust(current float64, rec Recommendation, recentFailures int) float64 {
	if recentFailures < 2 || rec.Confidence == ConfidenceNone {
		return current
	}

	if math.Abs(current-rec.Temperature) > nearOptimum {
		return params.ClampTemperature(current + (rec.Temperature-current)/2)
	}

	step := explorationStep
	if a.rng != nil && a.rng.Intn(2) == 0 {
		step = -explorationStep
	}
	return params.ClampTemperature(current + step)
}

// #endregion adjust
