package detector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// #region weights

// Primary-path blend weights: classifier dominates, the simple local
// heuristic keeps a small corrective share.
const (
	classifierWeight = 0.8
	localWeight      = 0.2
)

// #endregion weights

// #region ensemble

// Ensemble combines the external classifier with local heuristics into one
// composite human-likeness score.
type Ensemble struct {
	classifier Classifier
	secondary  SecondaryScorer // nil when not configured
	logger     *zap.Logger
}

// NewEnsemble creates an ensemble. secondary may be nil.
func NewEnsemble(classifier Classifier, secondary SecondaryScorer, logger *zap.Logger) *Ensemble {
	return &Ensemble{classifier: classifier, secondary: secondary, logger: logger}
}

// #endregion ensemble

// #region detect

// Detect scores text. On classifier success the composite is
// 0.8·classifier + 0.2·simple local heuristic. On classifier failure the
// fallback order is: advanced pattern detector, then the optional secondary
// model, then the simple pattern match. The method that actually produced
// the score is always recorded; a classifier failure never passes silently.
func (e *Ensemble) Detect(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, fmt.Errorf("detect: empty text")
	}

	simple := simplePatternScore(text)

	resp, err := e.classifier.Detect(ctx, text)
	if err == nil {
		composite := classifierWeight*(resp.HumanScore/100.0) + localWeight*simple
		return Result{
			Composite:  composite,
			Method:     MethodEnsemble,
			HumanScore: resp.HumanScore,
			SignalScores: map[string]float64{
				"classifier":     resp.HumanScore / 100.0,
				"simple_pattern": simple,
			},
			Sentences: resp.Sentences,
		}, nil
	}

	e.logger.Warn("classifier unavailable, falling back to local signals", zap.Error(err))

	// Fallback 1: advanced pattern detector, when the text is long enough
	// for its burstiness/diversity signals to mean anything.
	if advanced, reliable := advancedPatternScore(text); reliable {
		return Result{
			Composite: advanced,
			Method:    MethodAdvancedLocal,
			SignalScores: map[string]float64{
				"advanced_pattern": advanced,
				"simple_pattern":   simple,
			},
		}, nil
	}

	// Fallback 2: optional secondary model.
	if e.secondary != nil {
		if score, serr := e.secondary.Score(text); serr == nil {
			return Result{
				Composite: score,
				Method:    MethodSecondaryModel,
				SignalScores: map[string]float64{
					"secondary_model": score,
					"simple_pattern":  simple,
				},
			}, nil
		} else {
			e.logger.Warn("secondary scorer failed", zap.Error(serr))
		}
	}

	// Fallback 3: simple pattern match.
	return Result{
		Composite: simple,
		Method:    MethodSimpleLocal,
		SignalScores: map[string]float64{
			"simple_pattern": simple,
		},
	}, nil
}

// #endregion detect
