package model

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// injectionPatterns match known prompt-injection phrasings. Detection is
// observability only: matches are logged, never blocked. The same list
// drives redaction during sanitization.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(in\s+)?(developer|dan|jailbreak)\s*mode`),
	regexp.MustCompile(`(?i)reveal\s+(your\s+)?system\s+prompt`),
	regexp.MustCompile(`(?i)pretend\s+you\s+have\s+no\s+(rules|restrictions|guidelines)`),
}

var (
	scriptTagPattern = regexp.MustCompile(`(?is)<\s*/?\s*script[^>]*>`)
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
)

// Sanitize strips control characters, neutralizes script/HTML injection,
// and redacts known prompt-injection phrases to [FILTERED]. The result may
// be empty, which callers must reject.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()

	out = scriptTagPattern.ReplaceAllString(out, "")
	out = htmlTagPattern.ReplaceAllString(out, "")

	for _, p := range injectionPatterns {
		out = p.ReplaceAllString(out, "[FILTERED]")
	}

	return strings.TrimSpace(out)
}

// DetectInjection reports whether the prompt matches any known injection
// pattern and logs a warning when it does. It never blocks processing.
func DetectInjection(attemptID, prompt string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(prompt) {
			zap.L().Warn("prompt injection pattern detected",
				zap.String("attempt_id", attemptID),
				zap.String("pattern", p.String()),
			)
			return true
		}
	}
	return false
}
