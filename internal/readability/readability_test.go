package readability

import (
	"strings"
	"testing"

	"copyloop/internal/content"
)

func blurbSpec(t *testing.T) content.Spec {
	t.Helper()
	s, err := content.SpecFor(content.KindBlurb)
	if err != nil {
		t.Fatalf("SpecFor: %v", err)
	}
	return s
}

func TestScoreSimpleTextIsEasy(t *testing.T) {
	got := Score("The cat sat on the mat.")
	if got < 90 {
		t.Fatalf("expected easy text to score high, got %f", got)
	}
}

func TestScoreDenseTextIsHarder(t *testing.T) {
	easy := Score("We made this. It works. You will like it.")
	dense := Score("Our organization systematically revolutionizes multidimensional optimization methodologies facilitating unprecedented organizational transformation initiatives.")
	if dense >= easy {
		t.Fatalf("expected dense text to score lower: dense=%f easy=%f", dense, easy)
	}
}

func TestScoreEmpty(t *testing.T) {
	if got := Score(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %f", got)
	}
}

func TestLintWordBounds(t *testing.T) {
	spec := blurbSpec(t) // 25-90 words

	short := Lint("Too short.", spec, 0.5)
	if short.Passed {
		t.Fatal("expected short text to fail")
	}
	if len(short.Violations) == 0 || !strings.Contains(short.Violations[0], "too short") {
		t.Fatalf("expected too-short violation, got %v", short.Violations)
	}

	long := Lint(strings.Repeat("word ", 120), spec, 0.5)
	if long.Passed {
		t.Fatal("expected long text to fail")
	}
}

func TestLintBannedConstruction(t *testing.T) {
	spec := blurbSpec(t)
	text := "Our little shop has been roasting beans since nineteen ninety two and we still taste every batch ourselves. Click here to order a bag and see what all the fuss in the neighborhood is about."
	res := Lint(text, spec, 0.3)
	if res.Passed {
		t.Fatal("expected banned construction to fail")
	}
	found := false
	for _, v := range res.Violations {
		if strings.Contains(v, "banned construction") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected banned-construction violation, got %v", res.Violations)
	}
}

func TestLintRepeatedTrigram(t *testing.T) {
	spec := blurbSpec(t)
	// "try the blend" appears three times; with sensitivity 1.0 the budget is 1.
	text := "You should try the blend today because we think you will try the blend again tomorrow and then try the blend with friends over the weekend when everyone has a little more free time to relax."
	res := Lint(text, spec, 1.0)
	if res.Passed {
		t.Fatal("expected repeated trigram to fail at full sensitivity")
	}

	// At low sensitivity the budget is 3, so the same text passes.
	relaxed := Lint(text, spec, 0.1)
	if !relaxed.Passed {
		t.Fatalf("expected relaxed sensitivity to pass, got %v", relaxed.Violations)
	}
}

func TestLintRepeatedSentence(t *testing.T) {
	spec := blurbSpec(t)
	text := "We roast every single batch by hand each morning. The shop smells like toasted hazelnut before the sun comes up most days. We roast every single batch by hand each morning. Stop by and try a cup whenever you happen to pass through the old market district."
	res := Lint(text, spec, 0.2)
	if res.Passed {
		t.Fatal("expected repeated sentence to fail")
	}
}

func TestLintCleanTextPasses(t *testing.T) {
	spec := blurbSpec(t)
	text := "We opened the bakery in an old hardware store with two ovens and a stubborn idea about sourdough. Ten years later the starter is still alive, the floorboards still creak, and the morning line still snakes past the window."
	res := Lint(text, spec, 0.5)
	if !res.Passed {
		t.Fatalf("expected clean text to pass, got %v", res.Violations)
	}
}
