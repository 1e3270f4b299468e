package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/3CBolt/promptpractice/internal/evaluator"
	"github.com/3CBolt/promptpractice/internal/model"
)

// CompareRequest is a synchronous multi-model comparison without
// persistence: same dispatcher and evaluator, no ledger, no artifacts.
type CompareRequest struct {
	UserPrompt   string   `json:"userPrompt"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Models       []string `json:"models"`
}

// CompareResult holds scored results in input model order.
type CompareResult struct {
	Results []model.ScoredResult `json:"results"`
}

// Compare validates the request shape, fans out, and scores. Nothing is
// written to disk.
func (o *Orchestrator) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if err := model.ValidateRequest(model.AttemptRequest{
		LabID:        model.LabCompareBasics,
		UserPrompt:   req.UserPrompt,
		SystemPrompt: req.SystemPrompt,
		Models:       req.Models,
	}, o.registry, o.limits); err != nil {
		return nil, err
	}

	userPrompt := model.Sanitize(req.UserPrompt)
	if userPrompt == "" {
		return nil, &model.ValidationError{Field: "userPrompt", Reason: "empty after sanitization"}
	}
	systemPrompt := model.Sanitize(req.SystemPrompt)

	results := make([]model.ScoredResult, len(req.Models))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range req.Models {
		g.Go(func() error {
			r := o.dispatcher.CallModel(gctx, id, userPrompt, systemPrompt)
			results[i] = evaluator.EvaluateResult(userPrompt, r)
			return nil
		})
	}
	_ = g.Wait()

	return &CompareResult{Results: results}, nil
}
