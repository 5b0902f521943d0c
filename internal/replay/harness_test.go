package replay

import (
	"os"
	"path/filepath"
	"testing"

	"copyloop/internal/content"
	"copyloop/internal/orchestrator"
	"copyloop/internal/params"
)

const goodBlurb = "We opened the bakery in an old hardware store with two ovens and a stubborn idea about sourdough. Ten years later the starter is still alive, the floorboards still creak, and the morning line still snakes past the window."

// lenientConfig keeps every slider at zero and the curriculum fully relaxed,
// so pass/fail in these tests is driven by the recorded scores alone.
func lenientConfig() ReplayConfig {
	return ReplayConfig{Controls: params.Controls{}, ScopeSuccesses: 0}
}

func TestReplayAcceptsGoodRecording(t *testing.T) {
	results, err := Replay([]Interaction{{
		AttemptID:  "a1",
		Kind:       content.KindBlurb,
		Text:       goodBlurb,
		HumanScore: 90,
		Composite:  0.90,
		Method:     "ensemble",
	}}, lenientConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Action != "accept" {
		t.Fatalf("expected accept, got %s (%s)", r.Action, r.Reason)
	}
	if r.FailureClass != orchestrator.FailureNone {
		t.Fatalf("accepted result must carry no failure class, got %s", r.FailureClass)
	}
	for gate, passed := range r.Gates {
		if !passed {
			t.Fatalf("expected %s gate to pass", gate)
		}
	}
}

func TestReplayRejectsLowDetectionScore(t *testing.T) {
	results, err := Replay([]Interaction{{
		AttemptID:  "a1",
		Kind:       content.KindBlurb,
		Text:       goodBlurb,
		HumanScore: 5,
		Composite:  0.05,
		Method:     "ensemble",
	}}, lenientConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	r := results[0]
	if r.Action != "reject" {
		t.Fatalf("expected reject, got %s", r.Action)
	}
	if r.Reason != "authenticity gate failed" {
		t.Fatalf("expected authenticity reason, got %q", r.Reason)
	}
	if r.Gates["authenticity"] {
		t.Fatal("expected authenticity gate to fail")
	}
}

func TestReplayTighterControlsFlipTheVerdict(t *testing.T) {
	// A borderline recording: fine under lenient controls, rejected once the
	// authenticity slider raises the detection bar past its score.
	rec := Interaction{
		AttemptID:  "a1",
		Kind:       content.KindBlurb,
		Text:       goodBlurb,
		HumanScore: 35,
		Composite:  0.35,
		Method:     "ensemble",
	}

	lenient, err := Replay([]Interaction{rec}, lenientConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if lenient[0].Action != "accept" {
		t.Fatalf("expected accept under lenient controls, got %s (%s)", lenient[0].Action, lenient[0].Reason)
	}

	strict := lenientConfig()
	strict.Controls.Authenticity = 10 // detection threshold 60
	tightened, err := Replay([]Interaction{rec}, strict)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if tightened[0].Action != "reject" {
		t.Fatal("expected reject once the bar passes the recorded score")
	}
}

func TestReplayUnknownKind(t *testing.T) {
	_, err := Replay([]Interaction{{AttemptID: "a1", Kind: content.Kind("poem"), Text: "x"}}, lenientConfig())
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSummarize(t *testing.T) {
	results := []ReplayResult{
		{Action: "accept"},
		{Action: "reject", FailureClass: orchestrator.FailureUniform},
		{Action: "reject", FailureClass: orchestrator.FailureBorderline},
		{Action: "reject", FailureClass: orchestrator.FailureMixed},
		{Action: "reject", FailureClass: orchestrator.FailureMixed},
	}
	s := Summarize(results)
	if s.Total != 5 || s.Accepts != 1 || s.Rejects != 4 {
		t.Fatalf("bad totals: %+v", s)
	}
	if s.Uniform != 1 || s.Borderline != 1 || s.Mixed != 2 {
		t.Fatalf("bad failure breakdown: %+v", s)
	}
}

func TestLoadFixture(t *testing.T) {
	raw := `{
		"description": "smoke",
		"config": {
			"controls": {"creativity": 5, "strictness": 2},
			"scope_successes": 10
		},
		"interactions": [{
			"attempt_id": "a1",
			"kind": "blurb",
			"text": "hello",
			"human_score": 80,
			"composite": 0.8,
			"method": "ensemble",
			"sentences": [{"text": "hello", "score": 80}]
		}],
		"expected_results": [{"attempt_id": "a1", "action": "accept"}]
	}`
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "smoke" {
		t.Fatalf("bad description: %q", f.Description)
	}

	cfg := f.Config.ToReplayConfig()
	if cfg.Controls.Creativity != 5 || cfg.Controls.Strictness != 2 || cfg.ScopeSuccesses != 10 {
		t.Fatalf("bad config conversion: %+v", cfg)
	}

	if len(f.Interactions) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(f.Interactions))
	}
	inter := f.Interactions[0].ToInteraction()
	if inter.Kind != content.KindBlurb || inter.HumanScore != 80 || len(inter.Sentences) != 1 {
		t.Fatalf("bad interaction conversion: %+v", inter)
	}

	if len(f.ExpectedResults) != 1 || f.ExpectedResults[0].Action != "accept" {
		t.Fatalf("bad expected results: %+v", f.ExpectedResults)
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
