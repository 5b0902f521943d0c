package promptopt

import (
	"strings"
	"testing"

	"copyloop/internal/feedback"
	"copyloop/internal/patterns"
)

type fakePatterns struct {
	report patterns.Report
}

func (f fakePatterns) Analyze(feedback.Filter) (patterns.Report, error) {
	return f.report, nil
}

func TestOptimizeAugmentsPrompt(t *testing.T) {
	o := NewOptimizer(fakePatterns{report: patterns.Report{
		Sufficient:  true,
		SampleCount: 30,
		Risky: []patterns.Pattern{
			{Text: "unlock the power", Count: 10, FailRate: 0.9},
		},
		Safe: []patterns.Pattern{
			{Text: "our little shop", Count: 8, FailRate: 0.1},
		},
	}}, 5)

	res, err := o.Optimize("Write a blurb for the bakery.", feedback.Filter{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !strings.HasPrefix(res.Prompt, "Write a blurb for the bakery.") {
		t.Fatal("base prompt must lead the augmented prompt")
	}
	if !strings.Contains(res.Prompt, "unlock the power") {
		t.Fatal("expected risky phrase in the never-use section")
	}
	if !strings.Contains(res.Prompt, "our little shop") {
		t.Fatal("expected safe phrase in the prefer section")
	}
	if res.Confidence != ConfidenceMedium {
		t.Fatalf("expected medium confidence at 30 samples, got %s", res.Confidence)
	}
	if res.RiskyUsed != 1 || res.SafeUsed != 1 {
		t.Fatalf("expected 1/1 patterns used, got %d/%d", res.RiskyUsed, res.SafeUsed)
	}
	if res.ExpectedImprovement <= 0 || res.ExpectedImprovement > 0.25 {
		t.Fatalf("expected improvement in (0, 0.25], got %f", res.ExpectedImprovement)
	}
}

func TestOptimizeInsufficientReturnsBase(t *testing.T) {
	o := NewOptimizer(fakePatterns{report: patterns.Report{Sufficient: false, SampleCount: 2}}, 5)

	res, err := o.Optimize("Base prompt.", feedback.Filter{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Prompt != "Base prompt." {
		t.Fatalf("expected unmodified base prompt, got %q", res.Prompt)
	}
	if res.Confidence != ConfidenceNone {
		t.Fatalf("expected none confidence, got %s", res.Confidence)
	}
}

func TestOptimizeCapsAtTopK(t *testing.T) {
	var risky []patterns.Pattern
	for i := 0; i < 10; i++ {
		risky = append(risky, patterns.Pattern{Text: strings.Repeat("x", i+2) + " phrase", Count: 5, FailRate: 0.9})
	}
	o := NewOptimizer(fakePatterns{report: patterns.Report{
		Sufficient:  true,
		SampleCount: 60,
		Risky:       risky,
	}}, 3)

	res, err := o.Optimize("Base.", feedback.Filter{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.RiskyUsed != 3 {
		t.Fatalf("expected top 3 risky patterns, got %d", res.RiskyUsed)
	}
	if res.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence at 60 samples, got %s", res.Confidence)
	}
}

func TestOptimizeNoPatternsLowConfidence(t *testing.T) {
	o := NewOptimizer(fakePatterns{report: patterns.Report{Sufficient: true, SampleCount: 10}}, 5)

	res, err := o.Optimize("Base prompt.", feedback.Filter{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.Prompt != "Base prompt." {
		t.Fatal("no patterns must leave the prompt unchanged")
	}
	if res.Confidence != ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", res.Confidence)
	}
}
