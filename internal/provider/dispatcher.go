package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/resilience"
	"github.com/3CBolt/promptpractice/pkg/anthropic"
)

// FailureCode classifies a hosted-provider failure. Failures are absorbed
// into fallback results, never surfaced as pipeline errors.
type FailureCode string

const (
	FailureNoAPIKey    FailureCode = "NO_API_KEY"
	FailureRateLimited FailureCode = "RATE_LIMITED"
	FailureAPIError    FailureCode = "API_ERROR"
	FailureNetwork     FailureCode = "NETWORK_ERROR"
	FailureHTTP        FailureCode = "HTTP_ERROR"
)

// Dispatcher routes a model call to the right provider path and guarantees
// a usable ModelResult: the hosted path may fail, but CallModel never does.
type Dispatcher struct {
	registry     *Registry
	hosted       anthropic.Client
	tracker      *RateTracker
	breaker      *resilience.CircuitBreaker
	defaultModel string
	maxTokens    int64
}

// NewDispatcher creates a dispatcher over the given registry and hosted
// client. tracker must not be nil; it is shared across all hosted calls.
// defaultModel is the hosted model name used when a catalog entry omits
// one.
func NewDispatcher(registry *Registry, hosted anthropic.Client, tracker *RateTracker, defaultModel string, maxTokens int64) *Dispatcher {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Dispatcher{
		registry: registry,
		hosted:   hosted,
		tracker:  tracker,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		}),
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
	}
}

// RateTracker exposes the tracker for status reporting.
func (d *Dispatcher) RateTracker() *RateTracker {
	return d.tracker
}

// CallModel dispatches a prompt to the model identified by modelID.
// Hosted failures of any kind degrade to the model's sample fallback with
// source relabeled away from hosted; the original modelID is preserved for
// client display continuity.
func (d *Dispatcher) CallModel(ctx context.Context, modelID, prompt, systemPrompt string) model.ModelResult {
	m, ok := d.registry.Get(modelID)
	if !ok {
		// Unknown IDs are rejected by validation before dispatch; this
		// path only serves the unpersisted compare flow.
		zap.L().Warn("dispatcher: unregistered model, serving sample",
			zap.String("model_id", modelID),
		)
		return SampleResult(modelID, prompt, model.SourceSample)
	}

	switch m.Kind {
	case KindLocal:
		// Browser-local inference is client territory; the server side of
		// a local model always degrades to the deterministic generator.
		simulateDelay()
		return SampleResult(modelID, prompt, model.SourceSample)

	case KindHosted:
		return d.callHosted(ctx, m, prompt, systemPrompt)

	default:
		simulateDelay()
		return SampleResult(modelID, prompt, model.SourceSample)
	}
}

func (d *Dispatcher) callHosted(ctx context.Context, m Model, prompt, systemPrompt string) model.ModelResult {
	// Skip the network entirely while limited: the fallback is immediate
	// and no latency is wasted on a call that would 429.
	if !d.tracker.Allow() {
		zap.L().Info("dispatcher: rate limited, serving fallback",
			zap.String("model_id", m.ID),
		)
		return d.fallback(m, prompt)
	}

	// One transient-error retry inside the breaker; anything past that
	// degrades to the fallback rather than blocking the attempt.
	hostedModel := m.HostedModel
	if hostedModel == "" {
		hostedModel = d.defaultModel
	}

	start := time.Now()
	resp, err := resilience.DoVal(ctx, resilience.RetryConfig{}, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.ExecuteVal(ctx, d.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return d.hosted.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     hostedModel,
				MaxTokens: d.maxTokens,
				System:    systemPrompt,
				Prompt:    prompt,
			})
		})
	})
	if err != nil {
		code := d.classifyFailure(err)
		zap.L().Warn("dispatcher: hosted call failed, serving fallback",
			zap.String("model_id", m.ID),
			zap.String("code", string(code)),
			zap.Error(err),
		)
		return d.fallback(m, prompt)
	}

	d.tracker.RecordSuccess()

	return model.ModelResult{
		ModelID:    m.ID,
		Response:   resp.Text,
		LatencyMs:  time.Since(start).Milliseconds(),
		TokenCount: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		Source:     model.SourceHosted,
	}
}

// classifyFailure maps a hosted error to its failure code and feeds the
// rate tracker on 429s.
func (d *Dispatcher) classifyFailure(err error) FailureCode {
	if errors.Is(err, anthropic.ErrNoAPIKey) {
		return FailureNoAPIKey
	}

	var apierr *anthropic.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			d.tracker.RecordRateLimited(apierr.RetryAfter)
			return FailureRateLimited
		case apierr.StatusCode >= 500:
			return FailureAPIError
		default:
			return FailureHTTP
		}
	}

	if errors.Is(err, resilience.ErrCircuitOpen) || resilience.IsTransient(err) {
		return FailureNetwork
	}
	return FailureHTTP
}

// fallback produces the sample substitute for a failed or skipped hosted
// call, generated by the catalog's designated fallback model. Source is
// relabeled to sample; the original model ID stays for display continuity.
func (d *Dispatcher) fallback(m Model, prompt string) model.ModelResult {
	gen := m.Fallback
	if gen == "" {
		gen = m.ID
	}
	res := SampleResult(gen, prompt, model.SourceSample)
	res.ModelID = m.ID
	return res
}
