package predictor

import (
	"fmt"
	"math"

	"copyloop/internal/feedback"
)

// #region types

// Action is the predictor's recommendation to the orchestrator.
type Action string

const (
	ActionProceed Action = "proceed"
	ActionCaution Action = "proceed_with_caution"
	ActionAdjust  Action = "adjust_parameters"
)

// Confidence tiers for a prediction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// SubModel is one independently queryable estimate.
type SubModel struct {
	Name        string
	SuccessRate float64
	AvgScore    float64
	Samples     int
	Sufficient  bool
	Weight      float64 // renormalized weight actually applied
}

// Prediction is the combined estimate for an upcoming attempt.
type Prediction struct {
	Probability    float64
	ExpectedScore  float64
	Confidence     Confidence
	Recommendation Action
	Suggestions    []string
	SubModels      []SubModel
}

// StatsSource abstracts the feedback store reads the predictor needs.
type StatsSource interface {
	ScopeStats(f feedback.Filter) (feedback.ScopeStats, error)
	TemperatureBuckets(f feedback.Filter) ([]feedback.TempBucket, error)
}

// #endregion types

// #region weights

// Fixed relative weights, renormalized over whichever sub-models have
// sufficient data.
const (
	weightOverall    = 0.40
	weightKind       = 0.20
	weightTemp       = 0.25
	weightAttemptNum = 0.15
)

const (
	minScopeSamples  = 3
	minBucketSamples = 2
)

// #endregion weights

// #region predictor

// Predictor combines four sub-models into one success estimate.
type Predictor struct {
	source StatsSource
}

// NewPredictor creates a predictor over the given source.
func NewPredictor(source StatsSource) *Predictor {
	return &Predictor{source: source}
}

// #endregion predictor

// #region predict

// Predict estimates the success probability of the next attempt for the
// given kind, temperature, and attempt number. Sparse history degrades to
// a neutral prediction with Confidence none; it never fails for lack of
// data.
func (p *Predictor) Predict(kind string, temperature float64, attemptNum int) (Prediction, error) {
	subs := make([]SubModel, 0, 4)

	overall, err := p.scopeSubModel("overall", feedback.Filter{})
	if err != nil {
		return Prediction{}, err
	}
	subs = append(subs, overall)

	kindSub, err := p.scopeSubModel("content_kind", feedback.Filter{Kind: kind})
	if err != nil {
		return Prediction{}, err
	}
	subs = append(subs, kindSub)

	tempSub, err := p.temperatureSubModel(kind, temperature)
	if err != nil {
		return Prediction{}, err
	}
	subs = append(subs, tempSub)

	attemptSub, err := p.scopeSubModel("attempt_number", feedback.Filter{AttemptNum: attemptNum})
	if err != nil {
		return Prediction{}, err
	}
	subs = append(subs, attemptSub)

	// Renormalize the fixed weights over sufficient sub-models.
	baseWeights := []float64{weightOverall, weightKind, weightTemp, weightAttemptNum}
	var totalWeight float64
	for i := range subs {
		if subs[i].Sufficient {
			totalWeight += baseWeights[i]
		}
	}
	if totalWeight == 0 {
		return Prediction{
			Probability:    0.5,
			ExpectedScore:  50,
			Confidence:     ConfidenceNone,
			Recommendation: ActionProceed,
			Suggestions:    []string{"no history for this scope yet; using neutral estimate"},
			SubModels:      subs,
		}, nil
	}

	var probability, expectedScore float64
	totalSamples := 0
	for i := range subs {
		if !subs[i].Sufficient {
			continue
		}
		w := baseWeights[i] / totalWeight
		subs[i].Weight = w
		probability += w * subs[i].SuccessRate
		expectedScore += w * subs[i].AvgScore
		totalSamples += subs[i].Samples
	}

	return Prediction{
		Probability:    probability,
		ExpectedScore:  expectedScore,
		Confidence:     confidenceFor(totalSamples),
		Recommendation: actionFor(probability),
		Suggestions:    suggestions(subs),
		SubModels:      subs,
	}, nil
}

// #endregion predict

// #region sub-models

func (p *Predictor) scopeSubModel(name string, f feedback.Filter) (SubModel, error) {
	st, err := p.source.ScopeStats(f)
	if err != nil {
		return SubModel{}, fmt.Errorf("%s stats: %w", name, err)
	}
	return SubModel{
		Name:        name,
		SuccessRate: st.SuccessRate,
		AvgScore:    st.AvgScore,
		Samples:     st.Total,
		Sufficient:  st.Total >= minScopeSamples,
	}, nil
}

func (p *Predictor) temperatureSubModel(kind string, temperature float64) (SubModel, error) {
	buckets, err := p.source.TemperatureBuckets(feedback.Filter{Kind: kind})
	if err != nil {
		return SubModel{}, fmt.Errorf("temperature stats: %w", err)
	}
	target := feedback.BucketTemperature(temperature)
	for _, b := range buckets {
		if math.Abs(b.Temperature-target) < 1e-9 {
			return SubModel{
				Name:        "temperature_bucket",
				SuccessRate: b.SuccessRate,
				AvgScore:    b.AvgScore,
				Samples:     b.Total,
				Sufficient:  b.Total >= minBucketSamples,
			}, nil
		}
	}
	return SubModel{Name: "temperature_bucket"}, nil
}

// #endregion sub-models

// #region helpers

func confidenceFor(totalSamples int) Confidence {
	switch {
	case totalSamples >= 30:
		return ConfidenceHigh
	case totalSamples >= 10:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func actionFor(probability float64) Action {
	switch {
	case probability >= 0.6:
		return ActionProceed
	case probability >= 0.4:
		return ActionCaution
	default:
		return ActionAdjust
	}
}

// suggestions names the weakest sufficient sub-model so the orchestrator
// can target its adjustment.
func suggestions(subs []SubModel) []string {
	weakestIdx := -1
	for i, s := range subs {
		if !s.Sufficient {
			continue
		}
		if weakestIdx == -1 || s.SuccessRate < subs[weakestIdx].SuccessRate {
			weakestIdx = i
		}
	}
	if weakestIdx == -1 {
		return nil
	}
	weakest := subs[weakestIdx]
	if weakest.SuccessRate >= 0.5 {
		return nil
	}

	var out []string
	switch weakest.Name {
	case "temperature_bucket":
		out = append(out, fmt.Sprintf("temperature bucket succeeds only %.0f%% of the time; consult the temperature advisor", weakest.SuccessRate*100))
	case "content_kind":
		out = append(out, fmt.Sprintf("this content kind succeeds only %.0f%% of the time; loosen its readability window or detection bar", weakest.SuccessRate*100))
	case "attempt_number":
		out = append(out, fmt.Sprintf("attempts at this position succeed only %.0f%% of the time; earlier parameter adjustment may help", weakest.SuccessRate*100))
	default:
		out = append(out, fmt.Sprintf("overall success rate is %.0f%%; review intensity controls", weakest.SuccessRate*100))
	}
	return out
}

// #endregion helpers
