package orchestrator

import (
	"math"

	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/params"
	"copyloop/internal/qualeval"
	"copyloop/internal/readability"
)

// #region composite-weights

// Composite blend weights. When the qualitative evaluator is absent the
// remaining weights are renormalized.
const (
	detectionWeight   = 0.60
	readabilityWeight = 0.25
	qualWeight        = 0.15
)

// borderlineMargin is how close (in composite points) a failing attempt
// must be to the curriculum threshold to classify as borderline.
const borderlineMargin = 5.0

// #endregion composite-weights

// #region validation

// Validation is the full VALIDATE-stage output for one attempt.
type Validation struct {
	Detection   detector.Result
	ReadScore   float64
	Lint        readability.LintResult
	Qual        qualeval.Evaluation
	QualPresent bool

	Composite float64 // 0–100
	Threshold float64 // curriculum threshold applied

	GateAuthenticity bool
	GateReadability  bool
	GateStyle        bool
	Passed           bool
}

// GatesPassed reports whether every independent quality gate held.
func (v Validation) GatesPassed() bool {
	return v.GateAuthenticity && v.GateReadability && v.GateStyle
}

// ScoreMap flattens the validation into the diagnostic map carried by
// GenerationError and the decision log.
func (v Validation) ScoreMap() map[string]float64 {
	m := map[string]float64{
		"composite":   v.Composite,
		"detection":   v.Detection.Composite * 100,
		"readability": v.ReadScore,
		"threshold":   v.Threshold,
	}
	if v.QualPresent {
		m["qualitative"] = v.Qual.Overall * 10
	}
	return m
}

// #endregion validation

// #region evaluate

// Evaluate combines the detection ensemble, the readability check, the
// style linter, and the optional qualitative evaluation into one composite
// score plus independent gates. Success requires every gate to pass AND
// the composite to clear the curriculum threshold.
func Evaluate(det detector.Result, text string, spec content.Spec, bundle params.Bundle,
	qual qualeval.Evaluation, qualPresent bool, threshold float64) Validation {

	readScore := readability.Score(text)
	lint := readability.Lint(text, spec, bundle.RepetitionSensitivity)

	detPart := det.Composite * 100
	wDet, wRead, wQual := detectionWeight, readabilityWeight, qualWeight
	if !qualPresent {
		total := wDet + wRead
		wDet, wRead, wQual = wDet/total, wRead/total, 0
	}
	composite := wDet*detPart + wRead*readScore + wQual*(qual.Overall*10)

	v := Validation{
		Detection:        det,
		ReadScore:        readScore,
		Lint:             lint,
		Qual:             qual,
		QualPresent:      qualPresent,
		Composite:        composite,
		Threshold:        threshold,
		GateAuthenticity: detPart >= bundle.DetectionThreshold,
		GateReadability:  readScore >= bundle.ReadabilityMin && readScore <= bundle.ReadabilityMax,
		GateStyle:        lint.Passed,
	}
	v.Passed = v.GatesPassed() && composite >= threshold
	return v
}

// #endregion evaluate

// #region curriculum

// curriculumFullyTightAt is the proven-success count at which the bar
// reaches its configured base.
const curriculumFullyTightAt = 20

// curriculumLeniency is how far below base the bar starts.
const curriculumLeniency = 15.0

// CurriculumThreshold starts lenient while a scope has few proven
// successes and tightens linearly toward the configured base. It never
// exceeds base, so the quality bar is never raised past configuration —
// and the orchestrator never lowers it mid-request to force a success.
func CurriculumThreshold(base float64, scopeSuccesses int) float64 {
	progress := float64(scopeSuccesses) / float64(curriculumFullyTightAt)
	if progress > 1 {
		progress = 1
	}
	return base - curriculumLeniency*(1-progress)
}

// #endregion curriculum

// #region classify-failure

// ClassifyFailure buckets a failed validation for retry escalation:
// uniform when every sentence scored below the bar (raise temperature),
// borderline when the composite came within the margin of passing (lower
// temperature), mixed otherwise.
func ClassifyFailure(v Validation, bundle params.Bundle) FailureClass {
	if v.Passed {
		return FailureNone
	}

	if len(v.Detection.Sentences) >= 2 {
		allBelow := true
		for _, s := range v.Detection.Sentences {
			if s.Score >= bundle.DetectionThreshold {
				allBelow = false
				break
			}
		}
		if allBelow {
			return FailureUniform
		}
	}

	if v.GatesPassed() && math.Abs(v.Threshold-v.Composite) <= borderlineMargin {
		return FailureBorderline
	}
	if v.Composite >= v.Threshold-borderlineMargin && v.Composite < v.Threshold {
		return FailureBorderline
	}

	return FailureMixed
}

// #endregion classify-failure
