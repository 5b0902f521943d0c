package orchestrator

import (
	"context"
	"fmt"

	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/genclient"
	"copyloop/internal/params"
	"copyloop/internal/qualeval"
)

// #region states

// State names the retry state machine's positions. Persisted in the
// decision log, so values are stable strings.
type State string

const (
	StateBuildParams     State = "build_params"
	StateGenerate        State = "generate"
	StateValidate        State = "validate"
	StateAccept          State = "accept"
	StateRetry           State = "retry"
	StateRegenerateFresh State = "regenerate_fresh"
	StateFail            State = "fail"
	StateServiceError    State = "service_error"
)

// #endregion states

// #region failure-class

// FailureClass categorizes why an attempt failed validation, driving the
// next attempt's parameter deltas.
type FailureClass string

const (
	// FailureNone marks a passing attempt.
	FailureNone FailureClass = "none"
	// FailureUniform: every sentence scored below the bar. Raise
	// temperature for more variety.
	FailureUniform FailureClass = "uniform"
	// FailureBorderline: close to passing. Lower temperature for control.
	FailureBorderline FailureClass = "borderline"
	// FailureMixed: standard incremental escalation.
	FailureMixed FailureClass = "mixed"
)

// #endregion failure-class

// #region request

// Request is one content request: subject plus kind plus the assembled
// base prompt.
type Request struct {
	Subject      string
	Kind         content.Kind
	BasePrompt   string
	SystemPrompt string
}

// Outcome is the accepted result of a request.
type Outcome struct {
	RequestID string
	Text      string
	Attempts  int
	Composite float64 // 0–100
	Restarts  int
}

// #endregion request

// #region attempt-context

// AttemptContext is the explicit per-attempt state threaded through the
// retry loop. Keeping it a value (not orchestrator fields) keeps the state
// machine reentrant across concurrent requests.
type AttemptContext struct {
	RequestID  string
	AttemptNum int
	Params     params.Bundle
	Prompt     string

	// Carried between iterations
	BestComposite   float64 // best composite (0–100) seen this request, -1 before any attempt
	NoImproveStreak int     // consecutive attempts without a new best
	Restarts        int     // fresh regenerations performed (max 1)
	RecentFailures  int     // consecutive validation failures
	LastFailure     FailureClass
	Seed            int64
}

// #endregion attempt-context

// #region generation-error

// GenerationError is the typed terminal failure. It carries enough to
// diagnose the request without re-running it.
type GenerationError struct {
	Subject       string
	Kind          content.Kind
	AttemptCount  int
	Restarts      int
	LastComposite float64
	LastScores    map[string]float64
	FailureClass  FailureClass
	Reason        string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for %s/%s after %d attempts (%s): %s, last composite %.1f",
		e.Subject, e.Kind, e.AttemptCount, e.FailureClass, e.Reason, e.LastComposite)
}

// #endregion generation-error

// #region interfaces

// Generator is the external text-generation boundary.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, p genclient.Params) (string, error)
}

// Detector is the detection-ensemble boundary.
type Detector interface {
	Detect(ctx context.Context, text string) (detector.Result, error)
}

// Evaluator is the optional qualitative-evaluation boundary.
type Evaluator interface {
	Evaluate(ctx context.Context, text, evalContext string) (qualeval.Evaluation, error)
}

// Sink is the durable output boundary; Write must be atomic with respect
// to concurrent readers.
type Sink interface {
	Write(subject string, kind content.Kind, text string) error
}

// #endregion interfaces
