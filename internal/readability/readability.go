package readability

import (
	"fmt"
	"strings"
	"unicode"

	"copyloop/internal/content"
)

// #region score

// Score computes a 0–100 reading-ease estimate (Flesch-style: penalizes
// long sentences and long words). Higher is easier.
func Score(text string) float64 {
	sentences := splitSentences(text)
	words := strings.Fields(text)
	if len(sentences) == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wps := float64(len(words)) / float64(len(sentences))
	spw := float64(syllables) / float64(len(words))

	score := 206.835 - 1.015*wps - 84.6*spw
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// #endregion score

// #region lint

// LintResult is the style-gate outcome for one text.
type LintResult struct {
	Passed     bool
	Violations []string
}

// bannedConstructions fail the style gate outright.
var bannedConstructions = []string{
	"click here",
	"act now!!!",
	"100% guaranteed",
	"best in the world",
	"limited time only!!!",
}

// Lint runs the style gate: length bounds from the kind envelope, banned
// constructions, and repeated-sentence detection scaled by sensitivity.
func Lint(text string, spec content.Spec, repetitionSensitivity float64) LintResult {
	var violations []string
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	sentences := splitSentences(text)

	if len(words) < spec.MinWords {
		violations = append(violations, fmt.Sprintf("too short: %d words, minimum %d", len(words), spec.MinWords))
	}
	if len(words) > spec.MaxWords {
		violations = append(violations, fmt.Sprintf("too long: %d words, maximum %d", len(words), spec.MaxWords))
	}
	if len(sentences) > spec.MaxSentences {
		violations = append(violations, fmt.Sprintf("too many sentences: %d, maximum %d", len(sentences), spec.MaxSentences))
	}

	for _, b := range bannedConstructions {
		if strings.Contains(lower, b) {
			violations = append(violations, fmt.Sprintf("banned construction: %q", b))
		}
	}

	// Repetition: identical sentences, or repeated 3-grams past the
	// sensitivity-scaled budget.
	if rep := repeatedSentence(sentences); rep != "" {
		violations = append(violations, fmt.Sprintf("repeated sentence: %q", rep))
	}
	budget := int(4 - 3*repetitionSensitivity) // sensitivity 1.0 → budget 1
	if budget < 1 {
		budget = 1
	}
	if n := maxTrigramCount(lower); n > budget {
		violations = append(violations, fmt.Sprintf("repeated phrasing: trigram occurs %d times (budget %d)", n, budget))
	}

	return LintResult{Passed: len(violations) == 0, Violations: violations}
}

// #endregion lint

// #region helpers

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

// countSyllables approximates syllables by vowel-group counting.
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	// Silent trailing e
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func repeatedSentence(sentences []string) string {
	seen := make(map[string]int, len(sentences))
	for _, s := range sentences {
		key := strings.ToLower(strings.TrimSpace(s))
		if len(key) < 10 {
			continue
		}
		seen[key]++
		if seen[key] >= 2 {
			return s
		}
	}
	return ""
}

func maxTrigramCount(lower string) int {
	words := strings.Fields(lower)
	if len(words) < 3 {
		return 0
	}
	counts := make(map[string]int)
	maxCount := 0
	for i := 0; i+3 <= len(words); i++ {
		key := strings.Join(words[i:i+3], " ")
		counts[key]++
		if counts[key] > maxCount {
			maxCount = counts[key]
		}
	}
	return maxCount
}

// #endregion helpers
