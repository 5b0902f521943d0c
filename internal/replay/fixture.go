package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"copyloop/internal/content"
	"copyloop/internal/detector"
	"copyloop/internal/params"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig mirrors ReplayConfig with JSON tags.
type FixtureConfig struct {
	Controls       FixtureControls `json:"controls"`
	ScopeSuccesses int             `json:"scope_successes"`
}

// FixtureControls mirrors params.Controls with JSON tags.
type FixtureControls struct {
	Creativity   float64 `json:"creativity"`
	Authenticity float64 `json:"authenticity"`
	Strictness   float64 `json:"strictness"`
	VoiceWarmth  float64 `json:"voice_warmth"`
	Enrichment   float64 `json:"enrichment"`
}

// FixtureInteraction mirrors Interaction with JSON tags.
type FixtureInteraction struct {
	AttemptID  string            `json:"attempt_id"`
	Kind       string            `json:"kind"`
	Text       string            `json:"text"`
	HumanScore float64           `json:"human_score"`
	Composite  float64           `json:"composite"`
	Method     string            `json:"method"`
	Sentences  []FixtureSentence `json:"sentences"`
	QualScore  float64           `json:"qual_score"`
	QualHas    bool              `json:"qual_present"`
}

// FixtureSentence mirrors detector.SentenceScore with JSON tags.
type FixtureSentence struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// FixtureExpectedResult captures the expected action per attempt.
type FixtureExpectedResult struct {
	AttemptID string `json:"attempt_id"`
	Action    string `json:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	return ReplayConfig{
		Controls: params.Controls{
			Creativity:   fc.Controls.Creativity,
			Authenticity: fc.Controls.Authenticity,
			Strictness:   fc.Controls.Strictness,
			VoiceWarmth:  fc.Controls.VoiceWarmth,
			Enrichment:   fc.Controls.Enrichment,
		},
		ScopeSuccesses: fc.ScopeSuccesses,
	}
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	sentences := make([]detector.SentenceScore, 0, len(fi.Sentences))
	for _, s := range fi.Sentences {
		sentences = append(sentences, detector.SentenceScore{Text: s.Text, Score: s.Score})
	}
	return Interaction{
		AttemptID:  fi.AttemptID,
		Kind:       content.Kind(fi.Kind),
		Text:       fi.Text,
		HumanScore: fi.HumanScore,
		Composite:  fi.Composite,
		Method:     fi.Method,
		Sentences:  sentences,
		QualScore:  fi.QualScore,
		QualHas:    fi.QualHas,
	}
}

// #endregion fixture-loader
