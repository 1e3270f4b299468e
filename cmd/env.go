package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/3CBolt/promptpractice/internal/ledger"
	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/orchestrator"
	"github.com/3CBolt/promptpractice/internal/provider"
	"github.com/3CBolt/promptpractice/internal/store"
	"github.com/3CBolt/promptpractice/pkg/anthropic"
)

// pipelineEnv holds the initialized store, ledger, dispatcher, and
// orchestrator shared by the serve/run/status/compare/cleanup commands.
type pipelineEnv struct {
	Store        *store.ArtifactStore
	Ledger       ledger.Ledger
	Registry     *provider.Registry
	Orchestrator *orchestrator.Orchestrator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Ledger != nil {
		_ = pe.Ledger.Close()
	}
}

// initPipeline wires the attempt pipeline from config. Callers should
// defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := store.NewArtifactStore(cfg.Data.Dir)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(ctx, ledger.Config{
		Driver:      cfg.Ledger.Driver,
		FilePath:    st.LedgerPath(),
		SQLitePath:  cfg.Ledger.SQLitePath,
		DatabaseURL: cfg.Ledger.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}

	reg, err := provider.NewRegistry()
	if err != nil {
		_ = led.Close()
		return nil, err
	}

	hosted := anthropic.NewClient(cfg.Anthropic.Key)
	tracker := provider.NewRateTracker(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	disp := provider.NewDispatcher(reg, hosted, tracker, cfg.Anthropic.DefaultModel, cfg.Anthropic.MaxTokens)

	orch := orchestrator.New(st, led, disp, reg).WithLimits(model.Limits{
		UserPromptMax:   cfg.Limits.UserPromptMax,
		SystemPromptMax: cfg.Limits.SystemPromptMax,
	})

	return &pipelineEnv{
		Store:        st,
		Ledger:       led,
		Registry:     reg,
		Orchestrator: orch,
	}, nil
}
