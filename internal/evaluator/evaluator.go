// Package evaluator scores model responses against a clarity/completeness
// rubric. Evaluate is pure: no I/O, no side effects, deterministic for
// identical inputs.
package evaluator

import (
	"strings"

	"github.com/3CBolt/promptpractice/internal/model"
)

// Sub-score bounds. Total is always clarity + completeness.
const (
	SubScoreMax = 5
	midpoint    = 3
)

// Evaluate scores one model result against the prompt that produced it.
// Both sub-scores are integers in [0,5]; Notes carries non-empty guidance
// whenever either sub-score falls below the midpoint.
func Evaluate(userPrompt string, r model.ModelResult) (model.Score, string) {
	clarity := scoreClarity(r.Response)
	completeness := scoreCompleteness(userPrompt, r.Response)

	score := model.Score{
		Clarity:      clarity,
		Completeness: completeness,
		Total:        clarity + completeness,
	}
	return score, buildNotes(clarity, completeness)
}

// EvaluateResult wraps a ModelResult into a ScoredResult.
func EvaluateResult(userPrompt string, r model.ModelResult) model.ScoredResult {
	score, notes := Evaluate(userPrompt, r)
	return model.ScoredResult{
		ModelResult: r,
		Scores:      score,
		Notes:       notes,
	}
}

// scoreClarity rewards structured, readable responses: reasonable length,
// complete sentences, paragraph or list structure.
func scoreClarity(response string) int {
	text := strings.TrimSpace(response)
	if text == "" {
		return 0
	}

	score := 1

	n := len(text)
	if n >= 40 {
		score++
	}
	if n >= 120 && n <= 4000 {
		score++
	}

	if sentenceCount(text) >= 2 {
		score++
	}

	// Structure: paragraphs, list markers, or headers all read clearer
	// than a single run-on block.
	if strings.Contains(text, "\n\n") ||
		strings.Contains(text, "\n- ") ||
		strings.Contains(text, "\n1.") ||
		strings.HasSuffix(text, ".") {
		score++
	}

	if score > SubScoreMax {
		score = SubScoreMax
	}
	return score
}

// scoreCompleteness rewards responses that engage with the prompt's key
// terms rather than answering something adjacent.
func scoreCompleteness(userPrompt, response string) int {
	text := strings.TrimSpace(response)
	if text == "" {
		return 0
	}

	score := 1

	terms := keyTerms(userPrompt)
	if len(terms) == 0 {
		// Nothing to match against: length is the only signal left.
		if len(text) >= 80 {
			score += 2
		}
		if len(text) >= 200 {
			score++
		}
		return min(score, SubScoreMax)
	}

	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(terms))
	switch {
	case coverage >= 0.75:
		score += 3
	case coverage >= 0.5:
		score += 2
	case coverage >= 0.25:
		score++
	}

	if len(text) >= 120 {
		score++
	}

	return min(score, SubScoreMax)
}

// keyTerms extracts the prompt's meaningful words (length > 3, not a
// stopword), lowercased.
func keyTerms(prompt string) []string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var terms []string
	seen := make(map[string]struct{})
	for _, w := range words {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

var stopwords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "which": {}, "about": {},
	"that": {}, "this": {}, "with": {}, "from": {}, "have": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "please": {},
	"write": {}, "tell": {}, "give": {}, "explain": {}, "describe": {},
}

func sentenceCount(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	return count
}

// buildNotes produces guidance text. Below-midpoint sub-scores always get
// a concrete suggestion; strong responses get a short confirmation.
func buildNotes(clarity, completeness int) string {
	var parts []string

	if clarity < midpoint {
		parts = append(parts, "The response reads as unclear or underdeveloped; a prompt that names the desired format (list, steps, short paragraph) usually produces better structure.")
	}
	if completeness < midpoint {
		parts = append(parts, "The response misses part of what the prompt asked for; restating the key subject explicitly and asking for each piece by name helps the model cover everything.")
	}
	if len(parts) == 0 {
		parts = append(parts, "Clear and on-topic. To push further, try constraining length or asking for an example.")
	}

	return strings.Join(parts, " ")
}
