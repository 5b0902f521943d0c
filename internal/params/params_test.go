package params

import (
	"testing"

	"copyloop/internal/content"
)

func TestBuildDeterministic(t *testing.T) {
	c := Controls{Creativity: 6, Authenticity: 4, Strictness: 7, VoiceWarmth: 3, Enrichment: 5}

	a, err := Build(c, content.KindBlurb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build(c, content.KindBlurb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical bundles, got %+v vs %+v", a, b)
	}
}

func TestBuildBaselines(t *testing.T) {
	b, err := Build(Controls{}, content.KindTagline)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.Temperature != 0.6 {
		t.Fatalf("expected baseline temperature 0.6, got %f", b.Temperature)
	}
	if b.DetectionThreshold != 25 {
		t.Fatalf("expected baseline detection 25, got %f", b.DetectionThreshold)
	}
	if b.MaxAttempts != 3 {
		t.Fatalf("expected baseline attempts 3, got %d", b.MaxAttempts)
	}
	if b.Version != BundleVersion {
		t.Fatalf("expected version %d, got %d", BundleVersion, b.Version)
	}
}

func TestBuildClampsAtMaxControls(t *testing.T) {
	c := Controls{Creativity: 10, Authenticity: 10, Strictness: 10, VoiceWarmth: 10, Enrichment: 10}
	b, err := Build(c, content.KindDescription)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if b.Temperature != TemperatureMax {
		t.Fatalf("expected temperature clamped to %f, got %f", TemperatureMax, b.Temperature)
	}
	if b.DetectionThreshold != DetectionThresholdMax {
		t.Fatalf("expected detection clamped to %f, got %f", DetectionThresholdMax, b.DetectionThreshold)
	}
	if b.MaxAttempts < MaxAttemptsMin || b.MaxAttempts > MaxAttemptsMax {
		t.Fatalf("attempts out of range: %d", b.MaxAttempts)
	}
	if b.ReadabilityMin >= b.ReadabilityMax {
		t.Fatalf("readability window inverted: [%f, %f]", b.ReadabilityMin, b.ReadabilityMax)
	}
	if b.VoiceContractions > VoiceFreqMax || b.VoiceColloquial > VoiceFreqMax {
		t.Fatalf("voice frequencies out of range: %f / %f", b.VoiceContractions, b.VoiceColloquial)
	}
}

func TestBuildUnknownKind(t *testing.T) {
	if _, err := Build(Controls{}, content.Kind("poem")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestNumericKeys(t *testing.T) {
	b, err := Build(Controls{Creativity: 5}, content.KindSocialPost)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := b.Numeric()
	for _, key := range []string{
		"temperature", "frequency_penalty", "presence_penalty", "detection_threshold",
		"repetition_sensitivity", "voice_contractions", "voice_colloquial", "enrichment_detail",
	} {
		if _, ok := n[key]; !ok {
			t.Fatalf("missing numeric key %q", key)
		}
	}
	if n["temperature"] != b.Temperature {
		t.Fatalf("numeric temperature mismatch: %f vs %f", n["temperature"], b.Temperature)
	}
}

func TestControlsValid(t *testing.T) {
	if !(Controls{Creativity: 10}).Valid() {
		t.Fatal("expected 10 to be valid")
	}
	if (Controls{Strictness: 11}).Valid() {
		t.Fatal("expected 11 to be invalid")
	}
	if (Controls{Authenticity: -0.5}).Valid() {
		t.Fatal("expected negative slider to be invalid")
	}
}

func TestClampExported(t *testing.T) {
	if got := ClampTemperature(2.0); got != TemperatureMax {
		t.Fatalf("expected %f, got %f", TemperatureMax, got)
	}
	if got := ClampTemperature(0.1); got != TemperatureMin {
		t.Fatalf("expected %f, got %f", TemperatureMin, got)
	}
	if got := ClampPenalty(-1); got != PenaltyMin {
		t.Fatalf("expected %f, got %f", PenaltyMin, got)
	}
}
