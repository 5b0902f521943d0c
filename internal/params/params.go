package params

import (
	"copyloop/internal/content"
)

// #region controls

// Controls are the normalized intensity sliders, each on a 0–10 scale.
// They are the only user-facing tuning surface; everything downstream is
// derived from them deterministically.
type Controls struct {
	Creativity   float64 `yaml:"creativity"`   // raises temperature and penalties
	Authenticity float64 `yaml:"authenticity"` // raises the detection bar
	Strictness   float64 `yaml:"strictness"`   // raises retry budget and repetition sensitivity
	VoiceWarmth  float64 `yaml:"voice_warmth"` // raises contraction/colloquialism frequency
	Enrichment   float64 `yaml:"enrichment"`   // raises detail density and output length headroom
}

// Valid reports whether every slider is within [0, 10].
func (c Controls) Valid() bool {
	for _, v := range []float64{c.Creativity, c.Authenticity, c.Strictness, c.VoiceWarmth, c.Enrichment} {
		if v < 0 || v > 10 {
			return false
		}
	}
	return true
}

// #endregion controls

// #region bundle

// BundleVersion tags the parameter schema so persisted snapshots stay
// queryable after the knob set changes.
const BundleVersion = 2

// Clamp ranges for every derived parameter.
const (
	TemperatureMin = 0.5
	TemperatureMax = 1.1

	DetectionThresholdMin = 20.0
	DetectionThresholdMax = 60.0

	PenaltyMin = 0.0
	PenaltyMax = 1.5

	MaxAttemptsMin = 1
	MaxAttemptsMax = 8

	RepetitionMin = 0.1
	RepetitionMax = 1.0

	ReadabilityFloorMin = 30.0
	ReadabilityCeilMax  = 95.0

	VoiceFreqMin = 0.0
	VoiceFreqMax = 1.0
)

// Bundle is the full merged parameter snapshot for exactly one attempt.
// It is a value type; the orchestrator copies and mutates it per attempt.
type Bundle struct {
	Version int

	// API parameters
	Temperature      float64
	FrequencyPenalty float64
	PresencePenalty  float64
	MaxTokens        int

	// Validation parameters
	MaxAttempts           int
	DetectionThreshold    float64 // 0–100 bar on the composite authenticity score
	RepetitionSensitivity float64
	ReadabilityMin        float64
	ReadabilityMax        float64

	// Voice parameters (trait frequencies, 0–1)
	VoiceContractions float64
	VoiceColloquial   float64

	// Enrichment parameters
	EnrichmentDetail float64 // 0–1 density of concrete detail requested
}

// Numeric returns the tunable numeric knobs keyed by their persisted column
// names. Used by the sweet-spot analyzer and correlation ranking.
func (b Bundle) Numeric() map[string]float64 {
	return map[string]float64{
		"temperature":            b.Temperature,
		"frequency_penalty":      b.FrequencyPenalty,
		"presence_penalty":       b.PresencePenalty,
		"detection_threshold":    b.DetectionThreshold,
		"repetition_sensitivity": b.RepetitionSensitivity,
		"voice_contractions":     b.VoiceContractions,
		"voice_colloquial":       b.VoiceColloquial,
		"enrichment_detail":      b.EnrichmentDetail,
	}
}

// #endregion bundle

// #region build

// Build maps intensity controls and a content kind to a concrete parameter
// bundle. Pure and deterministic: identical inputs always yield identical
// outputs, and every derived value is clamped to its documented range.
func Build(c Controls, kind content.Kind) (Bundle, error) {
	spec, err := content.SpecFor(kind)
	if err != nil {
		return Bundle{}, err
	}

	// Temperature: 0.6 baseline + 0.05 per creativity point.
	temperature := clamp(0.6+0.05*c.Creativity, TemperatureMin, TemperatureMax)

	// Penalties scale with creativity but saturate earlier.
	freqPenalty := clamp(0.2+0.08*c.Creativity, PenaltyMin, PenaltyMax)
	presPenalty := clamp(0.1+0.06*c.Creativity, PenaltyMin, PenaltyMax)

	// Detection bar: 25 baseline + 3.5 per authenticity point.
	detection := clamp(25+3.5*c.Authenticity, DetectionThresholdMin, DetectionThresholdMax)

	// Retry ceiling: 3 baseline, +1 per 3 strictness points.
	attempts := clampInt(3+int(c.Strictness)/3, MaxAttemptsMin, MaxAttemptsMax)

	// Repetition sensitivity grows with strictness.
	repetition := clamp(0.3+0.07*c.Strictness, RepetitionMin, RepetitionMax)

	// Readability window narrows as strictness grows.
	readMin := clamp(40+2*c.Strictness, ReadabilityFloorMin, 70)
	readMax := clamp(95-1.5*c.Strictness, readMin+5, ReadabilityCeilMax)

	// Voice trait frequencies from warmth.
	contractions := clamp(0.2+0.08*c.VoiceWarmth, VoiceFreqMin, VoiceFreqMax)
	colloquial := clamp(0.05+0.06*c.VoiceWarmth, VoiceFreqMin, VoiceFreqMax)

	// Enrichment adds token headroom on top of the kind envelope.
	detail := clamp(0.1+0.09*c.Enrichment, 0, 1)
	maxTokens := spec.MaxTokens + int(float64(spec.MaxTokens)*0.25*detail)

	return Bundle{
		Version:               BundleVersion,
		Temperature:           temperature,
		FrequencyPenalty:      freqPenalty,
		PresencePenalty:       presPenalty,
		MaxTokens:             maxTokens,
		MaxAttempts:           attempts,
		DetectionThreshold:    detection,
		RepetitionSensitivity: repetition,
		ReadabilityMin:        readMin,
		ReadabilityMax:        readMax,
		VoiceContractions:     contractions,
		VoiceColloquial:       colloquial,
		EnrichmentDetail:      detail,
	}, nil
}

// #endregion build

// #region helpers

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampTemperature restricts t to the documented temperature range.
// Exposed for the advisor's adjustment heuristic and the orchestrator's
// exploration perturbations.
func ClampTemperature(t float64) float64 {
	return clamp(t, TemperatureMin, TemperatureMax)
}

// ClampPenalty restricts p to the documented penalty range.
func ClampPenalty(p float64) float64 {
	return clamp(p, PenaltyMin, PenaltyMax)
}

// #endregion helpers
