package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/ledger"
	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/provider"
	"github.com/3CBolt/promptpractice/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// countingDispatcher serves sample results and records which models were
// dispatched.
type countingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *countingDispatcher) CallModel(_ context.Context, modelID, prompt, _ string) model.ModelResult {
	d.mu.Lock()
	d.calls = append(d.calls, modelID)
	d.mu.Unlock()
	return provider.SampleResult(modelID, prompt, model.SourceSample)
}

func (d *countingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type testPipeline struct {
	orch   *Orchestrator
	store  *store.ArtifactStore
	ledger ledger.Ledger
	disp   *countingDispatcher
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()

	dir := t.TempDir()
	st, err := store.NewArtifactStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	led := ledger.NewFileLedger(filepath.Join(dir, ".idempotency.json"))
	reg, err := provider.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	disp := &countingDispatcher{}

	return &testPipeline{
		orch:   New(st, led, disp, reg),
		store:  st,
		ledger: led,
		disp:   disp,
	}
}

func practiceRequest(id string) model.AttemptRequest {
	return model.AttemptRequest{
		AttemptID:  id,
		LabID:      model.LabPracticeBasics,
		UserPrompt: "What is the capital of France?",
		Models:     []string{"local-stub"},
	}
}

func TestProcess_Success(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	res, err := p.orch.Process(ctx, practiceRequest("attempt-1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != model.StatusSuccess {
		t.Fatalf("Status = %q", res.Status)
	}
	if res.Evaluation == nil || len(res.Evaluation.Results) != 1 {
		t.Fatalf("Evaluation = %+v", res.Evaluation)
	}

	scored := res.Evaluation.Results[0]
	if scored.ModelID != "local-stub" {
		t.Errorf("ModelID = %q", scored.ModelID)
	}
	if scored.Source != model.SourceSample {
		t.Errorf("Source = %q", scored.Source)
	}
	if scored.Notes == "" {
		t.Error("scored result must carry notes")
	}
	if scored.Scores.Total != scored.Scores.Clarity+scored.Scores.Completeness {
		t.Error("total must equal sum of sub-scores")
	}

	// Both artifacts landed and the ledger reached a terminal state.
	if exists, _ := p.store.AttemptExists("attempt-1"); !exists {
		t.Error("attempt artifact missing")
	}
	if exists, _ := p.store.EvaluationExists("attempt-1"); !exists {
		t.Error("evaluation artifact missing")
	}
	st, found, _ := p.ledger.GetStatus(ctx, "attempt-1")
	if !found || st != model.StatusSuccess {
		t.Errorf("ledger status = %q found=%v", st, found)
	}
}

func TestProcess_ReprocessingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	p.orch.WithNow(func() time.Time { return now })

	first, err := p.orch.Process(ctx, practiceRequest("attempt-1"))
	if err != nil {
		t.Fatal(err)
	}
	firstAttempt, _, _ := p.store.ReadAttempt("attempt-1")

	now = now.Add(time.Hour)
	second, err := p.orch.Process(ctx, practiceRequest("attempt-1"))
	if err != nil {
		t.Fatal(err)
	}

	if second.Status != model.StatusSuccess {
		t.Fatalf("second Status = %q", second.Status)
	}
	if p.disp.count() != 1 {
		t.Errorf("dispatch count = %d, reprocessing must not redo work", p.disp.count())
	}
	if !second.Evaluation.CreatedAt.Equal(first.Evaluation.CreatedAt) {
		t.Error("evaluation must not be rewritten on reprocess")
	}

	secondAttempt, _, _ := p.store.ReadAttempt("attempt-1")
	if !secondAttempt.CreatedAt.Equal(firstAttempt.CreatedAt) {
		t.Error("attempt artifact must keep its original creation time")
	}
}

func TestProcess_HeldLockSkipsDispatch(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	if ok, _ := p.ledger.AcquireLock(ctx, "attempt-1"); !ok {
		t.Fatal("setup: acquire lock")
	}

	res, err := p.orch.Process(ctx, practiceRequest("attempt-1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != model.StatusQueued {
		t.Errorf("Status = %q, want in-flight status", res.Status)
	}
	if res.Evaluation != nil {
		t.Error("held lock must not produce an evaluation")
	}
	if p.disp.count() != 0 {
		t.Errorf("dispatch count = %d, held lock must prevent dispatch", p.disp.count())
	}
}

func TestProcess_ValidationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	req := model.AttemptRequest{
		AttemptID:  "attempt-1",
		LabID:      model.LabCompareBasics,
		UserPrompt: "compare these",
		Models:     []string{"sample-fast", "sample-balanced", "local-stub", "claude-haiku"},
	}

	_, err := p.orch.Process(ctx, req)
	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if exists, _ := p.store.AttemptExists("attempt-1"); exists {
		t.Error("rejected request must not persist an attempt artifact")
	}
	if p.disp.count() != 0 {
		t.Error("rejected request must not dispatch")
	}
}

func TestProcess_EmptyAfterSanitizationRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	req := practiceRequest("attempt-1")
	req.UserPrompt = "<b></b>"

	_, err := p.orch.Process(ctx, req)
	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestProcess_WriteFailureProducesErrorArtifact(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	// Occupy the evaluation temp-file path with a directory so persisting
	// the evaluation fails after dispatch.
	dirInWay := filepath.Join(p.store.Dir(), "evaluations", "attempt-1.json.tmp")
	if err := os.MkdirAll(dirInWay, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := p.orch.Process(ctx, practiceRequest("attempt-1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != model.StatusError {
		t.Errorf("Status = %q, want error", res.Status)
	}
	if res.Code != model.CodeProcessing {
		t.Errorf("Code = %q, want %q", res.Code, model.CodeProcessing)
	}

	if exists, _ := p.store.EvaluationErrorExists("attempt-1"); !exists {
		t.Error("error artifact missing after failed run")
	}
	st, found, _ := p.ledger.GetStatus(ctx, "attempt-1")
	if !found || st != model.StatusError {
		t.Errorf("ledger status = %q found=%v, want error", st, found)
	}
}

func TestProcess_ConfiguredPromptLimit(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)
	p.orch.WithLimits(model.Limits{UserPromptMax: 10})

	req := practiceRequest("attempt-1")
	req.UserPrompt = "well over ten characters"

	_, err := p.orch.Process(ctx, req)
	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if exists, _ := p.store.AttemptExists("attempt-1"); exists {
		t.Error("rejected request must not persist an attempt artifact")
	}
}

func TestProcess_ResultOrderMatchesRequest(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	models := []string{"sample-balanced", "sample-fast"}
	req := model.AttemptRequest{
		AttemptID:  "attempt-1",
		LabID:      model.LabCompareBasics,
		UserPrompt: "Compare response styles for a short factual answer",
		Models:     models,
	}

	res, err := p.orch.Process(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Evaluation.Results) != len(models) {
		t.Fatalf("results = %d", len(res.Evaluation.Results))
	}
	for i, m := range models {
		if res.Evaluation.Results[i].ModelID != m {
			t.Errorf("result[%d] = %q, want %q", i, res.Evaluation.Results[i].ModelID, m)
		}
	}
}

func TestProcess_SanitizedPromptReachesDispatcher(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	req := practiceRequest("attempt-1")
	req.UserPrompt = "What is the capital of France? <script>alert(1)</script>"

	if _, err := p.orch.Process(ctx, req); err != nil {
		t.Fatal(err)
	}

	attempt, _, _ := p.store.ReadAttempt("attempt-1")
	if attempt.UserPrompt != "What is the capital of France? alert(1)" {
		t.Errorf("persisted prompt = %q, want sanitized", attempt.UserPrompt)
	}
}

func TestCompare_NoPersistence(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	res, err := p.orch.Compare(ctx, CompareRequest{
		UserPrompt: "Compare how each model answers a trivia question",
		Models:     []string{"sample-fast", "sample-balanced"},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %d", len(res.Results))
	}
	if res.Results[0].ModelID != "sample-fast" || res.Results[1].ModelID != "sample-balanced" {
		t.Errorf("result order = [%q %q]", res.Results[0].ModelID, res.Results[1].ModelID)
	}
	if p.disp.count() != 2 {
		t.Errorf("dispatch count = %d", p.disp.count())
	}
}

func TestCompare_EnforcesCompareLabRule(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	_, err := p.orch.Compare(ctx, CompareRequest{
		UserPrompt: "only one model",
		Models:     []string{"sample-fast"},
	})
	var valErr *model.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
