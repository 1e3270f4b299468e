package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoVal_SuccessFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{}, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoVal: %v", err)
	}
	if val != 42 {
		t.Errorf("val = %d", val)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), RetryConfig{InitialBackoff: time.Millisecond}, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("flaky"), 503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoVal: %v", err)
	}
	if val != "ok" {
		t.Errorf("val = %q", val)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want retry", calls)
	}
}

func TestDoVal_NoRetryOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid request")
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{InitialBackoff: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retry", calls)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	transient := NewTransientError(errors.New("down"), 502)
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		return 0, transient
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoVal_ShouldRetryOverride(t *testing.T) {
	marker := errors.New("retry me")
	calls := 0
	_, err := DoVal(context.Background(), RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		ShouldRetry:    func(err error) bool { return errors.Is(err, marker) },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, marker
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoVal_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Minute}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retry after cancellation", calls)
	}
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second})
	d := computeBackoff(10, cfg)
	// Cap plus at most JitterFraction of the cap.
	if d > 2*time.Second+time.Duration(cfg.JitterFraction*float64(2*time.Second)) {
		t.Errorf("backoff %v exceeds cap with jitter", d)
	}
}
