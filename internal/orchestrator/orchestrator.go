package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"copyloop/internal/advisor"
	"copyloop/internal/content"
	"copyloop/internal/feedback"
	"copyloop/internal/genclient"
	"copyloop/internal/params"
	"copyloop/internal/patterns"
	"copyloop/internal/predictor"
	"copyloop/internal/promptopt"
	"copyloop/internal/qualeval"
	"copyloop/internal/sweetspot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// #region config

// Config tunes the orchestrator.
type Config struct {
	// ExplorationRate is the per-attempt probability of one bounded random
	// parameter perturbation.
	ExplorationRate float64
	// Controls are the intensity sliders baseline parameters derive from.
	Controls params.Controls
}

// DefaultConfig returns the documented defaults.
func DefaultConfig(controls params.Controls) Config {
	return Config{ExplorationRate: 0.15, Controls: controls}
}

// #endregion config

// #region orchestrator

// Orchestrator runs the per-request retry state machine:
// BUILD_PARAMS → GENERATE → VALIDATE → {ACCEPT | RETRY | REGENERATE_FRESH | FAIL}.
// Per-request flow is single-threaded; independent requests may run
// concurrently since all shared state lives in the feedback store.
type Orchestrator struct {
	store  *feedback.Store
	gen    Generator
	det    Detector
	eval   Evaluator // nil when no qualitative evaluator is configured
	sink   Sink
	logger *zap.Logger
	cfg    Config
	rng    *rand.Rand

	optimizer *promptopt.Optimizer
	advisor   *advisor.Advisor
	predictor *predictor.Predictor
	analyzer  *sweetspot.Analyzer
}

// New wires an orchestrator and its learning modules over the store.
// rng drives exploration and is injectable for deterministic tests.
func New(store *feedback.Store, gen Generator, det Detector, eval Evaluator, sink Sink,
	cfg Config, rng *rand.Rand, logger *zap.Logger) *Orchestrator {

	learner := patterns.NewLearner(store, patterns.DefaultConfig())
	return &Orchestrator{
		store:     store,
		gen:       gen,
		det:       det,
		eval:      eval,
		sink:      sink,
		logger:    logger,
		cfg:       cfg,
		rng:       rng,
		optimizer: promptopt.NewOptimizer(learner, 5),
		advisor:   advisor.NewAdvisor(store, rng),
		predictor: predictor.NewPredictor(store),
		analyzer:  sweetspot.NewAnalyzer(store, sweetspot.DefaultConfig()),
	}
}

// #endregion orchestrator

// #region run

// stuckStreak is the no-improvement run length that triggers a fresh
// regeneration (once) or the terminal failure (after the restart).
const stuckStreak = 3

// Run executes one request through the state machine. It returns a typed
// *GenerationError after exhausting the attempt budget; the quality bar is
// never downgraded to force a success.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Outcome, error) {
	baseline, err := params.Build(o.cfg.Controls, req.Kind)
	if err != nil {
		return Outcome{}, err
	}
	spec, err := content.SpecFor(req.Kind)
	if err != nil {
		return Outcome{}, err
	}

	scope := feedback.Filter{Kind: string(req.Kind)}

	// Curriculum threshold: computed once per request so the bar is stable
	// within the retry loop. The composite base is the detection threshold.
	scopeStats, err := o.store.ScopeStats(scope)
	if err != nil {
		return Outcome{}, err
	}
	threshold := CurriculumThreshold(baseline.DetectionThreshold, scopeStats.Successes)

	actx := AttemptContext{
		RequestID:     uuid.New().String(),
		Params:        o.buildInitialParams(baseline, scope),
		Prompt:        o.buildPrompt(req, scope),
		BestComposite: -1,
		Seed:          o.rng.Int63(),
	}

	o.logPrediction(req, actx)

	effectiveMax := baseline.MaxAttempts
	var lastValidation *Validation
	var lastErrReason string

	for actx.AttemptNum < effectiveMax {
		actx.AttemptNum++

		// BUILD_PARAMS: bounded exploration on top of the merged params.
		if o.rng.Float64() < o.cfg.ExplorationRate {
			o.explore(&actx.Params)
		}

		// GENERATE
		text, genErr := o.gen.Generate(ctx, actx.Prompt, req.SystemPrompt, genclient.Params{
			Temperature:      actx.Params.Temperature,
			MaxTokens:        actx.Params.MaxTokens,
			FrequencyPenalty: actx.Params.FrequencyPenalty,
			PresencePenalty:  actx.Params.PresencePenalty,
			Seed:             actx.Seed,
		})
		if genErr != nil {
			lastErrReason = genErr.Error()
			o.logger.Warn("generation service failed",
				zap.String("request_id", actx.RequestID),
				zap.Int("attempt", actx.AttemptNum),
				zap.Error(genErr))
			o.logDecision(actx, "", StateServiceError, genErr.Error(), 0)
			continue
		}

		// VALIDATE
		det, detErr := o.det.Detect(ctx, text)
		if detErr != nil {
			lastErrReason = detErr.Error()
			o.logDecision(actx, "", StateServiceError, detErr.Error(), 0)
			continue
		}

		var qual qualeval.Evaluation
		qualPresent := false
		if o.eval != nil {
			if q, qerr := o.eval.Evaluate(ctx, text, req.Subject+"/"+string(req.Kind)); qerr == nil {
				qual = q
				qualPresent = true
			} else {
				// Optional signal: degrade, never block.
				o.logger.Debug("qualitative evaluator unavailable", zap.Error(qerr))
			}
		}

		v := Evaluate(det, text, spec, actx.Params, qual, qualPresent, threshold)
		lastValidation = &v

		attemptID := o.persistAttempt(req, actx, text, v)

		if v.Passed {
			return o.accept(req, actx, attemptID, text, v)
		}

		// RETRY / REGENERATE_FRESH / FAIL
		failure := ClassifyFailure(v, actx.Params)
		actx.LastFailure = failure
		actx.RecentFailures++

		if v.Composite > actx.BestComposite {
			actx.BestComposite = v.Composite
			actx.NoImproveStreak = 0
		} else {
			actx.NoImproveStreak++
		}

		if actx.NoImproveStreak >= stuckStreak {
			if actx.Restarts == 0 {
				// One fresh restart per request: baseline params, new seed,
				// one extra attempt of budget.
				actx.Restarts = 1
				actx.NoImproveStreak = 0
				actx.Params = baseline
				actx.Seed = o.rng.Int63()
				effectiveMax = baseline.MaxAttempts + 1
				o.logger.Info("stuck pattern, regenerating fresh",
					zap.String("request_id", actx.RequestID),
					zap.Int("attempt", actx.AttemptNum),
					zap.Float64("best_composite", actx.BestComposite))
				o.logDecision(actx, attemptID, StateRegenerateFresh, "no score improvement across attempts", v.Composite)
				continue
			}
			// Second stuck detection is terminal.
			o.logDecision(actx, attemptID, StateFail, "stuck pattern persisted after fresh restart", v.Composite)
			return Outcome{}, o.fail(req, actx, lastValidation, "stuck pattern persisted after fresh restart")
		}

		o.adjustForRetry(&actx, scope, failure)
		o.logDecision(actx, attemptID, StateRetry, string(failure), v.Composite)
	}

	reason := "attempt budget exhausted"
	if lastValidation == nil && lastErrReason != "" {
		reason = "generation service failed: " + lastErrReason
	}
	o.logDecision(actx, "", StateFail, reason, lastComposite(lastValidation))
	return Outcome{}, o.fail(req, actx, lastValidation, reason)
}

// #endregion run

// #region build-params

// buildInitialParams merges the config-layer baseline with the temperature
// advisor's recommendation for the scope.
func (o *Orchestrator) buildInitialParams(baseline params.Bundle, scope feedback.Filter) params.Bundle {
	merged := baseline
	rec, err := o.advisor.Recommend(scope)
	if err != nil {
		o.logger.Warn("temperature advisor unavailable", zap.Error(err))
		return merged
	}
	if rec.Confidence == advisor.ConfidenceHigh || rec.Confidence == advisor.ConfidenceMedium {
		merged.Temperature = params.ClampTemperature(rec.Temperature)
	}
	return merged
}

// buildPrompt augments the base prompt with learned phrase guidance.
func (o *Orchestrator) buildPrompt(req Request, scope feedback.Filter) string {
	res, err := o.optimizer.Optimize(req.BasePrompt, scope)
	if err != nil {
		o.logger.Warn("prompt optimizer unavailable", zap.Error(err))
		return req.BasePrompt
	}
	if res.Confidence != promptopt.ConfidenceNone {
		o.logger.Debug("prompt augmented",
			zap.String("confidence", string(res.Confidence)),
			zap.Int("risky", res.RiskyUsed),
			zap.Int("safe", res.SafeUsed),
			zap.Float64("expected_improvement", res.ExpectedImprovement))
	}
	return res.Prompt
}

// explore applies one bounded random perturbation to a single parameter.
func (o *Orchestrator) explore(b *params.Bundle) {
	sign := float64(o.rng.Intn(2)*2 - 1)
	switch o.rng.Intn(4) {
	case 0:
		b.Temperature = params.ClampTemperature(b.Temperature + sign*0.05)
	case 1:
		b.FrequencyPenalty = params.ClampPenalty(b.FrequencyPenalty + sign*0.1)
	case 2:
		b.PresencePenalty = params.ClampPenalty(b.PresencePenalty + sign*0.1)
	case 3:
		v := b.VoiceContractions + sign*0.1
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		b.VoiceContractions = v
	}
}

// adjustForRetry applies the advisor pull plus the failure-class delta.
func (o *Orchestrator) adjustForRetry(actx *AttemptContext, scope feedback.Filter, failure FailureClass) {
	rec, err := o.advisor.Recommend(scope)
	if err == nil {
		actx.Params.Temperature = o.advisor.Adjust(actx.Params.Temperature, rec, actx.RecentFailures)
	}

	switch failure {
	case FailureUniform:
		// Every sentence read machine-flat: push for variety.
		actx.Params.Temperature = params.ClampTemperature(actx.Params.Temperature + 0.10)
		actx.Params.PresencePenalty = params.ClampPenalty(actx.Params.PresencePenalty + 0.10)
	case FailureBorderline:
		// Nearly passed: tighten control.
		actx.Params.Temperature = params.ClampTemperature(actx.Params.Temperature - 0.05)
	default:
		actx.Params.Temperature = params.ClampTemperature(actx.Params.Temperature + 0.05)
		actx.Params.FrequencyPenalty = params.ClampPenalty(actx.Params.FrequencyPenalty + 0.05)
	}
}

// #endregion build-params

// #region accept-fail

// accept persists the winning attempt's acceptance, writes the durable
// output, and refreshes the pooled sweet spots.
func (o *Orchestrator) accept(req Request, actx AttemptContext, attemptID, text string, v Validation) (Outcome, error) {
	if err := o.sink.Write(req.Subject, req.Kind, text); err != nil {
		// The attempt row is already persisted as a success; surface the
		// sink failure rather than silently losing the output.
		return Outcome{}, err
	}
	o.logDecision(actx, attemptID, StateAccept, "all gates passed", v.Composite)
	o.logger.Info("accepted",
		zap.String("request_id", actx.RequestID),
		zap.String("subject", req.Subject),
		zap.String("kind", string(req.Kind)),
		zap.Int("attempts", actx.AttemptNum),
		zap.Float64("composite", v.Composite),
		zap.String("method", string(v.Detection.Method)))

	if analysis, err := o.analyzer.Analyze(feedback.Filter{}); err == nil {
		if err := o.analyzer.Persist(analysis, o.store); err != nil {
			o.logger.Warn("sweet spot persist failed", zap.Error(err))
		}
	}

	return Outcome{
		RequestID: actx.RequestID,
		Text:      text,
		Attempts:  actx.AttemptNum,
		Composite: v.Composite,
		Restarts:  actx.Restarts,
	}, nil
}

// fail builds the typed terminal error.
func (o *Orchestrator) fail(req Request, actx AttemptContext, v *Validation, reason string) *GenerationError {
	gerr := &GenerationError{
		Subject:      req.Subject,
		Kind:         req.Kind,
		AttemptCount: actx.AttemptNum,
		Restarts:     actx.Restarts,
		FailureClass: actx.LastFailure,
		Reason:       reason,
	}
	if gerr.FailureClass == "" {
		gerr.FailureClass = FailureMixed
	}
	if v != nil {
		gerr.LastComposite = v.Composite
		gerr.LastScores = v.ScoreMap()
	}
	o.logger.Warn("request failed",
		zap.String("request_id", actx.RequestID),
		zap.Int("attempts", gerr.AttemptCount),
		zap.String("failure_class", string(gerr.FailureClass)),
		zap.Float64("last_composite", gerr.LastComposite),
		zap.String("reason", reason))
	return gerr
}

// #endregion accept-fail

// #region persistence

// persistAttempt writes the attempt, its scores, and its sentence scores
// atomically. Returns the attempt ID, or "" on store failure; the loop keeps
// going since history is advisory and the request is not.
func (o *Orchestrator) persistAttempt(req Request, actx AttemptContext, text string, v Validation) string {
	attemptID := uuid.New().String()
	att := feedback.Attempt{
		ID:         attemptID,
		RequestID:  actx.RequestID,
		Subject:    req.Subject,
		Kind:       string(req.Kind),
		AttemptNum: actx.AttemptNum,
		Params:     actx.Params,
		Text:       text,
		Success:    v.Passed,
		CreatedAt:  time.Now().UTC(),
	}
	sc := feedback.Scores{
		HumanScore:       v.Detection.HumanScore,
		ReadabilityScore: v.ReadScore,
		QualScore:        v.Qual.Overall,
		QualPresent:      v.QualPresent,
		Composite:        v.Composite,
		Method:           string(v.Detection.Method),
	}
	sentences := make([]feedback.SentenceScore, 0, len(v.Detection.Sentences))
	for _, s := range v.Detection.Sentences {
		sentences = append(sentences, feedback.SentenceScore{Text: s.Text, Score: s.Score})
	}

	if err := o.store.InsertAttempt(att, sc, sentences); err != nil {
		o.logger.Error("failed to persist attempt", zap.Error(err))
		return ""
	}
	return attemptID
}

func (o *Orchestrator) logDecision(actx AttemptContext, attemptID string, state State, reason string, composite float64) {
	err := o.store.LogDecision(feedback.Decision{
		RequestID: actx.RequestID,
		AttemptID: attemptID,
		State:     string(state),
		Reason:    reason,
		Composite: composite,
	})
	if err != nil {
		o.logger.Error("failed to log decision", zap.Error(err))
	}
}

func (o *Orchestrator) logPrediction(req Request, actx AttemptContext) {
	pred, err := o.predictor.Predict(string(req.Kind), actx.Params.Temperature, 1)
	if err != nil {
		o.logger.Warn("success predictor unavailable", zap.Error(err))
		return
	}
	o.logger.Info("pre-generation estimate",
		zap.String("request_id", actx.RequestID),
		zap.Float64("probability", pred.Probability),
		zap.Float64("expected_score", pred.ExpectedScore),
		zap.String("confidence", string(pred.Confidence)),
		zap.String("recommendation", string(pred.Recommendation)))
	for _, s := range pred.Suggestions {
		o.logger.Info("predictor suggestion", zap.String("suggestion", s))
	}
}

// #endregion persistence

// #region helpers

func lastComposite(v *Validation) float64 {
	if v == nil {
		return 0
	}
	return v.Composite
}

// #endregion helpers
