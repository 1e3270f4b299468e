package orchestrator

import (
	"context"
	"time"

	"github.com/3CBolt/promptpractice/internal/model"
)

// StatusResult is the poll-facing view of one attempt.
type StatusResult struct {
	AttemptID  string                 `json:"attemptId"`
	Status     string                 `json:"status"`
	Evaluation *model.Evaluation      `json:"evaluation,omitempty"`
	Error      *model.EvaluationError `json:"error,omitempty"`
	CanRetry   bool                   `json:"canRetry,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Found      bool                   `json:"-"`
}

// StatusProcessing is reported while the attempt artifact exists but no
// terminal artifact does.
const StatusProcessing = "processing"

// Status inspects artifact state for an attempt. The ID is validated
// before any filesystem access; a malformed ID returns a SecurityError.
// Artifact precedence: evaluation, then error artifact, then attempt.
func (o *Orchestrator) Status(ctx context.Context, attemptID string) (*StatusResult, error) {
	if err := model.ValidateAttemptID(attemptID); err != nil {
		return nil, err
	}

	out := &StatusResult{
		AttemptID: attemptID,
		Timestamp: o.nowFunc().UTC(),
	}

	eval, ok, err := o.store.ReadEvaluation(attemptID)
	if err != nil {
		return nil, err
	}
	if ok {
		out.Status = string(eval.Status)
		out.Evaluation = &eval
		out.Found = true
		return out, nil
	}

	evalErr, ok, err := o.store.ReadEvaluationError(attemptID)
	if err != nil {
		return nil, err
	}
	if ok {
		out.Status = string(model.StatusError)
		out.Error = &evalErr
		out.CanRetry = model.CanRetry(evalErr.Code)
		out.Found = true
		return out, nil
	}

	exists, err := o.store.AttemptExists(attemptID)
	if err != nil {
		return nil, err
	}
	if exists {
		out.Status = StatusProcessing
		out.Found = true
		return out, nil
	}

	// Unknown attempt.
	out.Status = string(model.StatusError)
	return out, nil
}
