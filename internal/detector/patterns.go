package detector

import (
	"math"
	"strings"
)

// #region pattern-lists

// machineTellPhrases are constructions that reliably mark generated
// marketing copy. Each hit lowers the local human-likeness estimate.
var machineTellPhrases = []string{
	"in today's fast-paced world",
	"look no further",
	"unlock the power of",
	"elevate your",
	"seamlessly",
	"whether you're",
	"in conclusion",
	"game-changer",
	"revolutionize the way",
	"crafted with care",
	"delve into",
	"a testament to",
	"unparalleled",
	"cutting-edge",
	"take your experience to the next level",
}

// hedgeOpeners are formulaic sentence openers weighted less heavily than
// full tell phrases.
var hedgeOpeners = []string{
	"introducing",
	"discover",
	"experience the",
	"imagine a",
	"welcome to",
	"get ready to",
}

// #endregion pattern-lists

// #region simple

// simplePatternScore estimates human-likeness in [0, 1] from tell-phrase
// density alone. Cheap enough to run on every attempt.
func simplePatternScore(text string) float64 {
	lower := strings.ToLower(text)
	words := len(strings.Fields(lower))
	if words == 0 {
		return 0
	}

	hits := 0
	for _, p := range machineTellPhrases {
		hits += strings.Count(lower, p)
	}
	openerHits := 0
	for _, p := range hedgeOpeners {
		if strings.HasPrefix(lower, p) {
			openerHits++
		}
	}

	// Each tell costs 0.2, each opener 0.08, scaled down for long texts.
	penalty := 0.2*float64(hits) + 0.08*float64(openerHits)
	if words > 120 {
		penalty *= 120.0 / float64(words)
	}
	score := 1.0 - penalty
	if score < 0 {
		return 0
	}
	return score
}

// #endregion simple

// #region advanced

// advancedPatternScore adds burstiness and lexical-diversity signals on top
// of the simple tell-phrase match. Needs enough text to be meaningful; the
// ensemble falls through when reliable() is false.
func advancedPatternScore(text string) (score float64, reliable bool) {
	sentences := splitSentences(text)
	words := strings.Fields(strings.ToLower(text))
	if len(sentences) < 3 || len(words) < 30 {
		return 0, false
	}

	base := simplePatternScore(text)

	// Burstiness: humans vary sentence length; uniform lengths read machine.
	var lengths []float64
	for _, s := range sentences {
		lengths = append(lengths, float64(len(strings.Fields(s))))
	}
	burstiness := normalizedStddev(lengths)

	// Lexical diversity: unique/total ratio.
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	diversity := float64(len(unique)) / float64(len(words))

	score = 0.5*base + 0.3*math.Min(1, burstiness*2) + 0.2*math.Min(1, diversity*1.5)
	return score, true
}

// #endregion advanced

// #region helpers

// splitSentences breaks text on terminal punctuation, dropping fragments
// under 3 characters.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) >= 3 {
			out = append(out, s)
		}
	}
	return out
}

// normalizedStddev returns stddev/mean, or 0 for degenerate input.
func normalizedStddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / mean
}

// #endregion helpers
