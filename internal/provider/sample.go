package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/3CBolt/promptpractice/internal/model"
)

// promptCategory buckets a prompt so the sample generator stays
// deterministic: same category, same response template.
type promptCategory int

const (
	categoryDefault promptCategory = iota
	categoryQuestion
	categoryInstruction
	categoryCreative
)

func categorize(prompt string) promptCategory {
	p := strings.ToLower(strings.TrimSpace(prompt))
	switch {
	case strings.HasSuffix(p, "?"),
		strings.HasPrefix(p, "what"),
		strings.HasPrefix(p, "why"),
		strings.HasPrefix(p, "how"),
		strings.HasPrefix(p, "who"),
		strings.HasPrefix(p, "when"),
		strings.HasPrefix(p, "where"):
		return categoryQuestion
	case strings.HasPrefix(p, "write"),
		strings.HasPrefix(p, "compose"),
		strings.HasPrefix(p, "imagine"),
		strings.Contains(p, "story"),
		strings.Contains(p, "poem"):
		return categoryCreative
	case strings.HasPrefix(p, "list"),
		strings.HasPrefix(p, "explain"),
		strings.HasPrefix(p, "summarize"),
		strings.HasPrefix(p, "describe"),
		strings.HasPrefix(p, "translate"):
		return categoryInstruction
	default:
		return categoryDefault
	}
}

var sampleTemplates = map[promptCategory]string{
	categoryQuestion: "Here is a direct answer to your question. %s A strong prompt " +
		"names the subject precisely and states what form the answer should take, " +
		"which is why this one could be answered without guessing.",
	categoryInstruction: "Following your instruction step by step: %s First the task is " +
		"restated, then each requirement is addressed in order, and the result is " +
		"summarized at the end so nothing is left implicit.",
	categoryCreative: "A short piece in response to your creative prompt: %s The scene " +
		"opens quietly, builds around the detail you asked for, and closes on the " +
		"image the prompt suggested.",
	categoryDefault: "Here is a response to your prompt. %s Adding an explicit goal, " +
		"audience, or output format would make an even more specific answer possible.",
}

// sampleStyle tunes the generator per sample model so the catalog's
// fallback designation is observable: the balanced generator elaborates,
// the fast one stays terse.
type sampleStyle struct {
	latencyBase int64
	elaboration string
}

var sampleStyles = map[string]sampleStyle{
	"sample-fast": {latencyBase: 40},
	"sample-balanced": {
		latencyBase: 120,
		elaboration: " For contrast, a weaker phrasing of the same prompt " +
			"would leave the subject or the desired format unstated.",
	},
}

func styleFor(modelID string) sampleStyle {
	if s, ok := sampleStyles[modelID]; ok {
		return s
	}
	return sampleStyle{latencyBase: 50}
}

// truncatedEcho returns a short echo of the prompt for template insertion,
// truncating on rune boundaries so multi-byte input stays valid UTF-8.
func truncatedEcho(prompt string) string {
	p := strings.TrimSpace(prompt)
	if r := []rune(p); len(r) > 80 {
		p = string(r[:77]) + "..."
	}
	return fmt.Sprintf("You asked about: %q.", p)
}

// estimateTokens approximates token count from text length (≈4 chars/token).
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// SampleResult produces a deterministic local response for a prompt. The
// returned result reports the given modelID and source so fallback callers
// can relabel provenance without losing client display continuity.
func SampleResult(modelID, prompt string, source model.Source) model.ModelResult {
	style := styleFor(modelID)
	template := sampleTemplates[categorize(prompt)]
	response := fmt.Sprintf(template, truncatedEcho(prompt)) + style.elaboration

	// Latency simulated from prompt length, bounded to stay plausible.
	latency := style.latencyBase + int64(len(prompt)/10)
	if latency > 2000 {
		latency = 2000
	}

	return model.ModelResult{
		ModelID:    modelID,
		Response:   response,
		LatencyMs:  latency,
		TokenCount: estimateTokens(prompt) + estimateTokens(response),
		Source:     source,
	}
}

// simulateDelay sleeps briefly so sample calls behave like asynchronous
// suspension points rather than synchronous returns. Kept tiny for tests.
func simulateDelay() {
	time.Sleep(time.Millisecond)
}
