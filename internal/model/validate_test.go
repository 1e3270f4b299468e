package model

import (
	"errors"
	"strings"
	"testing"
)

type fakeRegistry map[string]bool

func (f fakeRegistry) IsRegistered(id string) bool { return f[id] }

var testRegistry = fakeRegistry{
	"claude-haiku":    true,
	"sample-fast":     true,
	"sample-balanced": true,
	"local-stub":      true,
}

func TestValidateAttemptID(t *testing.T) {
	valid := []string{"abc", "a-b_c", "ABC123", strings.Repeat("x", 64)}
	for _, id := range valid {
		if err := ValidateAttemptID(id); err != nil {
			t.Errorf("ValidateAttemptID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"../etc/passwd",
		"a/b",
		"a\\b",
		"a b",
		"a.b",
		strings.Repeat("x", 65),
	}
	for _, id := range invalid {
		err := ValidateAttemptID(id)
		if err == nil {
			t.Errorf("ValidateAttemptID(%q) = nil, want error", id)
			continue
		}
		var serr *SecurityError
		if !errors.As(err, &serr) {
			t.Errorf("ValidateAttemptID(%q) = %T, want *SecurityError", id, err)
		}
	}
}

func validRequest() AttemptRequest {
	return AttemptRequest{
		AttemptID:  "attempt-1",
		LabID:      LabPracticeBasics,
		UserPrompt: "What is the capital of France?",
		Models:     []string{"sample-fast"},
	}
}

func TestValidateRequest_OK(t *testing.T) {
	if err := ValidateRequest(validRequest(), testRegistry, Limits{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequest_UnknownLab(t *testing.T) {
	req := validRequest()
	req.LabID = "advanced-wizardry"
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for unknown lab")
	}
}

func TestValidateRequest_PromptLimits(t *testing.T) {
	req := validRequest()
	req.UserPrompt = strings.Repeat("a", UserPromptMax+1)
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for oversized user prompt")
	}

	req = validRequest()
	req.UserPrompt = ""
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for empty user prompt")
	}

	req = validRequest()
	req.SystemPrompt = strings.Repeat("b", SystemPromptMax+1)
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for oversized system prompt")
	}
}

func TestValidateRequest_ConfiguredLimits(t *testing.T) {
	lim := Limits{UserPromptMax: 10, SystemPromptMax: 5}

	req := validRequest()
	req.UserPrompt = strings.Repeat("a", 11)
	err := ValidateRequest(req, testRegistry, lim)
	if err == nil {
		t.Fatal("expected error when user prompt exceeds configured limit")
	}
	if !strings.Contains(err.Error(), "10") {
		t.Errorf("error %q should mention the configured limit", err)
	}

	req = validRequest()
	req.SystemPrompt = strings.Repeat("b", 6)
	if err := ValidateRequest(req, testRegistry, lim); err == nil {
		t.Fatal("expected error when system prompt exceeds configured limit")
	}

	// Zero fields keep the defaults.
	req = validRequest()
	req.UserPrompt = strings.Repeat("a", 11)
	if err := ValidateRequest(req, testRegistry, Limits{}); err != nil {
		t.Fatalf("11-char prompt should pass default limits: %v", err)
	}
}

func TestValidateRequest_LabModelCounts(t *testing.T) {
	// Practice lab takes exactly one model.
	req := validRequest()
	req.Models = []string{"sample-fast", "sample-balanced"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for two models in practice lab")
	}

	// Compare lab needs at least two.
	req = validRequest()
	req.LabID = LabCompareBasics
	req.Models = []string{"sample-fast"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for single model in compare lab")
	}

	// And never more than three.
	req.Models = []string{"claude-haiku", "sample-fast", "sample-balanced", "local-stub"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for four models in compare lab")
	}

	req.Models = []string{"claude-haiku", "sample-fast", "sample-balanced"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err != nil {
		t.Fatalf("unexpected error for three models: %v", err)
	}
}

func TestValidateRequest_DuplicateAndUnknownModels(t *testing.T) {
	req := validRequest()
	req.LabID = LabCompareBasics
	req.Models = []string{"sample-fast", "sample-fast"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for duplicate models")
	}

	req.Models = []string{"sample-fast", "gpt-unknown"}
	if err := ValidateRequest(req, testRegistry, Limits{}); err == nil {
		t.Fatal("expected error for unregistered model")
	}
}

func TestValidateRequest_ValidationErrorType(t *testing.T) {
	req := validRequest()
	req.UserPrompt = ""
	err := ValidateRequest(req, testRegistry, Limits{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %T, want *ValidationError", err)
	}
}
