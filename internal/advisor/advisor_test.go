package advisor

import (
	"math"
	"math/rand"
	"testing"

	"copyloop/internal/feedback"
	"copyloop/internal/params"
)

type fakeBuckets []feedback.TempBucket

func (f fakeBuckets) TemperatureBuckets(feedback.Filter) ([]feedback.TempBucket, error) {
	return f, nil
}

func TestRecommendPicksBestComposite(t *testing.T) {
	a := NewAdvisor(fakeBuckets{
		{Temperature: 0.70, Total: 10, Successes: 5, SuccessRate: 0.5, AvgScore: 60},
		{Temperature: 0.75, Total: 10, Successes: 10, SuccessRate: 1.0, AvgScore: 100},
		{Temperature: 0.90, Total: 8, Successes: 4, SuccessRate: 0.5, AvgScore: 80},
	}, rand.New(rand.NewSource(1)))

	rec, err := a.Recommend(feedback.Filter{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Temperature != 0.75 {
		t.Fatalf("expected 0.75, got %f", rec.Temperature)
	}
	if rec.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence (10 samples, 100%%), got %s", rec.Confidence)
	}
	// 0.6·1.0 + 0.4·(100/100)
	if math.Abs(rec.Composite-1.0) > 1e-9 {
		t.Fatalf("expected composite 1.0, got %f", rec.Composite)
	}
}

func TestRecommendSkipsSparseBuckets(t *testing.T) {
	a := NewAdvisor(fakeBuckets{
		{Temperature: 0.95, Total: 1, Successes: 1, SuccessRate: 1.0, AvgScore: 100},
		{Temperature: 0.70, Total: 3, Successes: 2, SuccessRate: 0.667, AvgScore: 70},
	}, nil)

	rec, err := a.Recommend(feedback.Filter{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	// The 0.95 bucket has only one sample and must be ignored.
	if rec.Temperature != 0.70 {
		t.Fatalf("expected 0.70, got %f", rec.Temperature)
	}
}

func TestRecommendNoData(t *testing.T) {
	a := NewAdvisor(fakeBuckets{}, nil)
	rec, err := a.Recommend(feedback.Filter{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Confidence != ConfidenceNone {
		t.Fatalf("expected none confidence, got %s", rec.Confidence)
	}
}

func TestRecommendTieBreaksOnLowerTemperature(t *testing.T) {
	a := NewAdvisor(fakeBuckets{
		{Temperature: 0.90, Total: 5, Successes: 5, SuccessRate: 1.0, AvgScore: 80},
		{Temperature: 0.70, Total: 5, Successes: 5, SuccessRate: 1.0, AvgScore: 80},
	}, nil)

	rec, err := a.Recommend(feedback.Filter{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Temperature != 0.70 {
		t.Fatalf("expected deterministic tie-break to 0.70, got %f", rec.Temperature)
	}
}

func TestAdjustRequiresRepeatedFailures(t *testing.T) {
	a := NewAdvisor(nil, nil)
	rec := Recommendation{Temperature: 0.7, Confidence: ConfidenceHigh}

	if got := a.Adjust(1.0, rec, 1); got != 1.0 {
		t.Fatalf("expected no change with 1 failure, got %f", got)
	}
	if got := a.Adjust(1.0, rec, 0); got != 1.0 {
		t.Fatalf("expected no change with 0 failures, got %f", got)
	}
}

func TestAdjustMovesHalfwayTowardOptimum(t *testing.T) {
	a := NewAdvisor(nil, nil)
	rec := Recommendation{Temperature: 0.7, Confidence: ConfidenceHigh}

	got := a.Adjust(1.0, rec, 2)
	if math.Abs(got-0.85) > 1e-9 {
		t.Fatalf("expected halfway 0.85, got %f", got)
	}
}

func TestAdjustPerturbsNearOptimum(t *testing.T) {
	a := NewAdvisor(nil, rand.New(rand.NewSource(1)))
	rec := Recommendation{Temperature: 0.8, Confidence: ConfidenceHigh}

	got := a.Adjust(0.82, rec, 3)
	diff := math.Abs(got - 0.82)
	if math.Abs(diff-0.05) > 1e-9 {
		t.Fatalf("expected ±0.05 perturbation, got %f (from 0.82)", got)
	}
}

func TestAdjustIgnoresNoneConfidence(t *testing.T) {
	a := NewAdvisor(nil, nil)
	rec := Recommendation{Confidence: ConfidenceNone}

	if got := a.Adjust(0.9, rec, 5); got != 0.9 {
		t.Fatalf("expected no change without a recommendation, got %f", got)
	}
}

func TestAdjustStaysClamped(t *testing.T) {
	a := NewAdvisor(nil, rand.New(rand.NewSource(2)))
	rec := Recommendation{Temperature: params.TemperatureMax, Confidence: ConfidenceHigh}

	got := a.Adjust(params.TemperatureMax-0.02, rec, 2)
	if got < params.TemperatureMin || got > params.TemperatureMax {
		t.Fatalf("adjusted temperature out of range: %f", got)
	}
}
