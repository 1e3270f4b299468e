// Package orchestrator drives one attempt from validated request to
// terminal artifact: idempotency lock, parallel provider fan-out, rubric
// evaluation, durable persistence.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3CBolt/promptpractice/internal/evaluator"
	"github.com/3CBolt/promptpractice/internal/ledger"
	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/provider"
	"github.com/3CBolt/promptpractice/internal/store"
)

// Dispatcher is the provider fan-out dependency.
type Dispatcher interface {
	CallModel(ctx context.Context, modelID, prompt, systemPrompt string) model.ModelResult
}

// Orchestrator wires the attempt pipeline together.
type Orchestrator struct {
	store      *store.ArtifactStore
	ledger     ledger.Ledger
	dispatcher Dispatcher
	registry   *provider.Registry
	limits     model.Limits

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// New creates an orchestrator.
func New(st *store.ArtifactStore, led ledger.Ledger, disp Dispatcher, reg *provider.Registry) *Orchestrator {
	return &Orchestrator{
		store:      st,
		ledger:     led,
		dispatcher: disp,
		registry:   reg,
		nowFunc:    time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (o *Orchestrator) WithNow(fn func() time.Time) *Orchestrator {
	o.nowFunc = fn
	return o
}

// WithLimits overrides the default prompt length ceilings.
func (o *Orchestrator) WithLimits(lim model.Limits) *Orchestrator {
	o.limits = lim
	return o
}

// Result is the outcome of Process.
type Result struct {
	AttemptID  string            `json:"attemptId"`
	Status     model.Status      `json:"status"`
	Evaluation *model.Evaluation `json:"evaluation,omitempty"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
}

// Process runs one attempt to completion. Validation failures return an
// error before anything is persisted; provider failures are absorbed into
// fallback results; unexpected failures during processing produce an error
// artifact and a ledger status of error.
func (o *Orchestrator) Process(ctx context.Context, req model.AttemptRequest) (*Result, error) {
	if err := model.ValidateRequest(req, o.registry, o.limits); err != nil {
		return nil, err
	}

	// Injection detection runs on the raw prompt, before redaction makes
	// the patterns invisible. Matches are logged, never blocked.
	model.DetectInjection(req.AttemptID, req.UserPrompt)

	userPrompt := model.Sanitize(req.UserPrompt)
	if userPrompt == "" {
		return nil, &model.ValidationError{Field: "userPrompt", Reason: "empty after sanitization"}
	}
	systemPrompt := model.Sanitize(req.SystemPrompt)

	attempt := model.Attempt{
		AttemptID:    req.AttemptID,
		LabID:        req.LabID,
		UserPrompt:   userPrompt,
		SystemPrompt: systemPrompt,
		Models:       req.Models,
		CreatedAt:    o.nowFunc().UTC(),
	}

	// Attempts are persisted exactly once: a retry of the same ID must
	// not rewrite the artifact or bump its creation time.
	exists, err := o.store.AttemptExists(attempt.AttemptID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := o.store.WriteAttempt(attempt); err != nil {
			return nil, eris.Wrap(err, "orchestrator: write attempt artifact")
		}
	}

	// Idempotent retry safety: a held lock means another run is already
	// processing this attempt. Report its status without duplicating work.
	acquired, err := o.ledger.AcquireLock(ctx, attempt.AttemptID)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: acquire lock")
	}
	if !acquired {
		status, _, serr := o.ledger.GetStatus(ctx, attempt.AttemptID)
		if serr != nil {
			return nil, eris.Wrap(serr, "orchestrator: read in-flight status")
		}
		zap.L().Info("orchestrator: attempt already processing",
			zap.String("attempt_id", attempt.AttemptID),
			zap.String("status", string(status)),
		)
		return &Result{AttemptID: attempt.AttemptID, Status: status}, nil
	}

	// A completed attempt keeps its original artifact: re-processing the
	// same ID must not rewrite the evaluation.
	if done, derr := o.store.EvaluationExists(attempt.AttemptID); derr == nil && done {
		_ = o.ledger.ReleaseLock(ctx, attempt.AttemptID)
		eval, _, rerr := o.store.ReadEvaluation(attempt.AttemptID)
		if rerr != nil {
			return nil, eris.Wrap(rerr, "orchestrator: read existing evaluation")
		}
		return &Result{AttemptID: attempt.AttemptID, Status: eval.Status, Evaluation: &eval}, nil
	}

	eval, perr := o.run(ctx, attempt)
	if perr != nil {
		o.failAttempt(ctx, attempt.AttemptID, perr)
		return &Result{
			AttemptID: attempt.AttemptID,
			Status:    model.StatusError,
			Error:     perr.Error(),
			Code:      model.CodeProcessing,
		}, nil
	}

	if err := o.ledger.ReleaseLock(ctx, attempt.AttemptID); err != nil {
		zap.L().Warn("orchestrator: release lock failed",
			zap.String("attempt_id", attempt.AttemptID),
			zap.Error(err),
		)
	}

	return &Result{AttemptID: attempt.AttemptID, Status: eval.Status, Evaluation: eval}, nil
}

// run executes the locked portion of the pipeline: fan out, evaluate,
// persist evaluation, advance ledger status.
func (o *Orchestrator) run(ctx context.Context, attempt model.Attempt) (*model.Evaluation, error) {
	if err := o.transition(ctx, attempt.AttemptID, model.StatusQueued, model.StatusRunning); err != nil {
		return nil, err
	}

	results := o.fanOut(ctx, attempt)

	scored := make([]model.ScoredResult, len(results))
	for i, r := range results {
		scored[i] = evaluator.EvaluateResult(attempt.UserPrompt, r)
	}

	eval := model.Evaluation{
		AttemptID: attempt.AttemptID,
		Status:    model.StatusSuccess,
		Results:   scored,
		CreatedAt: o.nowFunc().UTC(),
	}

	if err := o.store.WriteEvaluation(eval); err != nil {
		return nil, eris.Wrap(err, "orchestrator: write evaluation artifact")
	}

	if err := o.transition(ctx, attempt.AttemptID, model.StatusRunning, model.StatusSuccess); err != nil {
		return nil, err
	}

	zap.L().Info("orchestrator: attempt complete",
		zap.String("attempt_id", attempt.AttemptID),
		zap.Int("models", len(scored)),
	)
	return &eval, nil
}

// fanOut dispatches every model concurrently. Result order matches the
// input models order, and the join cannot fail: provider failures are
// already absorbed into fallback results.
func (o *Orchestrator) fanOut(ctx context.Context, attempt model.Attempt) []model.ModelResult {
	results := make([]model.ModelResult, len(attempt.Models))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range attempt.Models {
		g.Go(func() error {
			results[i] = o.dispatcher.CallModel(gctx, id, attempt.UserPrompt, attempt.SystemPrompt)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// transition advances the ledger status, enforcing the allowed transition
// table.
func (o *Orchestrator) transition(ctx context.Context, attemptID string, from, to model.Status) error {
	if !from.CanTransition(to) {
		return eris.Errorf("orchestrator: invalid status transition %s -> %s", from, to)
	}
	if err := o.ledger.UpdateStatus(ctx, attemptID, to); err != nil {
		return eris.Wrapf(err, "orchestrator: update status to %s", to)
	}
	return nil
}

// failAttempt records a processing failure: error artifact, released lock,
// ledger status error.
func (o *Orchestrator) failAttempt(ctx context.Context, attemptID string, cause error) {
	zap.L().Error("orchestrator: attempt failed",
		zap.String("attempt_id", attemptID),
		zap.Error(cause),
	)

	evalErr := model.EvaluationError{
		Error:     cause.Error(),
		Code:      model.CodeProcessing,
		Timestamp: o.nowFunc().UTC(),
	}
	if err := o.store.WriteEvaluationError(attemptID, evalErr); err != nil {
		zap.L().Error("orchestrator: write error artifact failed",
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
	}
	if err := o.ledger.ReleaseLock(ctx, attemptID); err != nil {
		zap.L().Warn("orchestrator: release lock failed",
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
	}
	if err := o.ledger.UpdateStatus(ctx, attemptID, model.StatusError); err != nil {
		zap.L().Error("orchestrator: update status failed",
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
	}
}
