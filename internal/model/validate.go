package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Default prompt length ceilings after sanitization.
const (
	UserPromptMax   = 2000
	SystemPromptMax = 1000
)

// Limits bounds prompt lengths for a deployment. Zero or negative fields
// fall back to the package defaults.
type Limits struct {
	UserPromptMax   int
	SystemPromptMax int
}

func (l Limits) withDefaults() Limits {
	if l.UserPromptMax <= 0 {
		l.UserPromptMax = UserPromptMax
	}
	if l.SystemPromptMax <= 0 {
		l.SystemPromptMax = SystemPromptMax
	}
	return l
}

var attemptIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateAttemptID checks that an attempt identifier is URL- and
// filesystem-safe. Rejecting anything outside the allowed alphabet also
// rules out path traversal sequences.
func ValidateAttemptID(id string) error {
	if id == "" {
		return &SecurityError{Reason: "empty attempt id"}
	}
	if strings.Contains(id, "..") || strings.ContainsAny(id, "/\\") {
		return &SecurityError{Reason: "attempt id contains path separators"}
	}
	if !attemptIDPattern.MatchString(id) {
		return &SecurityError{Reason: "attempt id must be alphanumeric, hyphen, or underscore (max 64 chars)"}
	}
	return nil
}

// Registry answers model membership questions during validation.
type Registry interface {
	IsRegistered(modelID string) bool
}

// ValidateRequest checks an attempt request against schema rules, the
// per-lab model-count rule, and registry membership. It must be called
// before any persistence; failures are never written as artifacts.
func ValidateRequest(req AttemptRequest, reg Registry, lim Limits) error {
	lim = lim.withDefaults()

	if req.AttemptID != "" {
		if err := ValidateAttemptID(req.AttemptID); err != nil {
			return err
		}
	}

	rule, ok := RuleFor(req.LabID)
	if !ok {
		return &ValidationError{Field: "labId", Reason: "unknown lab"}
	}

	if req.UserPrompt == "" {
		return &ValidationError{Field: "userPrompt", Reason: "required"}
	}
	if len(req.UserPrompt) > lim.UserPromptMax {
		return &ValidationError{Field: "userPrompt", Reason: fmt.Sprintf("exceeds %d characters", lim.UserPromptMax)}
	}
	if len(req.SystemPrompt) > lim.SystemPromptMax {
		return &ValidationError{Field: "systemPrompt", Reason: fmt.Sprintf("exceeds %d characters", lim.SystemPromptMax)}
	}

	n := len(req.Models)
	if n < rule.MinModels || n > rule.MaxModels || n > MaxModelsAbsolute {
		return &ValidationError{
			Field:  "models",
			Reason: labCountReason(req.LabID, rule),
		}
	}

	seen := make(map[string]struct{}, n)
	for _, id := range req.Models {
		if _, dup := seen[id]; dup {
			return &ValidationError{Field: "models", Reason: "duplicate model: " + id}
		}
		seen[id] = struct{}{}
		if reg != nil && !reg.IsRegistered(id) {
			return &ValidationError{Field: "models", Reason: "unknown model: " + id}
		}
	}

	return nil
}

func labCountReason(lab LabID, rule LabRule) string {
	if rule.MinModels == rule.MaxModels {
		return fmt.Sprintf("%s requires exactly %d model(s)", lab, rule.MinModels)
	}
	return fmt.Sprintf("%s requires %d-%d models", lab, rule.MinModels, rule.MaxModels)
}
