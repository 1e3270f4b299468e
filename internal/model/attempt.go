package model

import (
	"time"
)

// LabID identifies a practice lab. Each lab constrains how many models an
// attempt may dispatch to.
type LabID string

const (
	LabPracticeBasics LabID = "practice-basics"
	LabCompareBasics  LabID = "compare-basics"
	LabSystemPrompt   LabID = "system-prompt-lab"
)

// LabRule bounds the model count allowed for a lab.
type LabRule struct {
	MinModels int
	MaxModels int
}

// MaxModelsAbsolute caps model count across all labs.
const MaxModelsAbsolute = 3

// labRules is the closed table mapping each lab to its model-count rule.
var labRules = map[LabID]LabRule{
	LabPracticeBasics: {MinModels: 1, MaxModels: 1},
	LabCompareBasics:  {MinModels: 2, MaxModels: 3},
	LabSystemPrompt:   {MinModels: 1, MaxModels: 1},
}

// RuleFor returns the model-count rule for a lab.
func RuleFor(lab LabID) (LabRule, bool) {
	r, ok := labRules[lab]
	return r, ok
}

// Labs returns all known lab IDs.
func Labs() []LabID {
	return []LabID{LabPracticeBasics, LabCompareBasics, LabSystemPrompt}
}

// Source describes the provenance of a model response.
type Source string

const (
	// SourceHosted means a real hosted inference call succeeded.
	SourceHosted Source = "hosted"
	// SourceSample means a deterministic local generator produced the
	// response, either directly or as a fallback.
	SourceSample Source = "sample"
	// SourceLocal means a browser-local model produced the response.
	SourceLocal Source = "local"
)

// Attempt is an immutable record of a user's request. It is written exactly
// once by the orchestrator and never mutated.
type Attempt struct {
	AttemptID    string    `json:"attemptId"`
	LabID        LabID     `json:"labId"`
	UserPrompt   string    `json:"userPrompt"`
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Models       []string  `json:"models"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ModelResult is one provider's response to an attempt.
type ModelResult struct {
	ModelID    string `json:"modelId"`
	Response   string `json:"response"`
	LatencyMs  int64  `json:"latencyMs"`
	TokenCount int    `json:"tokenCount,omitempty"`
	Source     Source `json:"source"`
}

// Score is the rubric outcome for a single model result.
type Score struct {
	Clarity      int `json:"clarity"`
	Completeness int `json:"completeness"`
	Total        int `json:"total"`
}

// ScoredResult extends a ModelResult with its rubric score and notes.
type ScoredResult struct {
	ModelResult
	Scores Score  `json:"scores"`
	Notes  string `json:"notes"`
}

// Evaluation is the scored outcome for an attempt, written once as a
// terminal artifact.
type Evaluation struct {
	AttemptID string         `json:"attemptId"`
	Status    Status         `json:"status"`
	Results   []ScoredResult `json:"results"`
	CreatedAt time.Time      `json:"createdAt"`
}

// EvaluationError is the error artifact written when processing throws
// before scoring completes.
type EvaluationError struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// IdempotencyRecord is a ledger entry controlling concurrent processing of
// one attempt. A nil LockExpiry means unlocked.
type IdempotencyRecord struct {
	AttemptID  string     `json:"attemptId"`
	Status     Status     `json:"status"`
	Timestamp  time.Time  `json:"timestamp"`
	LockExpiry *time.Time `json:"lockExpiry,omitempty"`
}

// Locked reports whether the record holds an unexpired lock at the given time.
func (r IdempotencyRecord) Locked(now time.Time) bool {
	return r.LockExpiry != nil && r.LockExpiry.After(now)
}

// AttemptRequest is the inbound shape for creating an attempt. It is
// validated and sanitized before an Attempt is materialized.
type AttemptRequest struct {
	AttemptID    string   `json:"attemptId,omitempty"`
	LabID        LabID    `json:"labId"`
	UserPrompt   string   `json:"userPrompt"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Models       []string `json:"models"`
}
