package provider

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateTracker bounds hosted-provider call volume with a rolling window
// counter plus a token-bucket limiter for burst smoothing. It is an
// injectable service rather than package-level state so tests and
// multi-tenant callers get isolated instances.
type RateTracker struct {
	mu sync.Mutex

	maxRequests int
	window      time.Duration

	count       int
	windowStart time.Time

	limited   bool
	resetTime time.Time

	bucket *rate.Limiter

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewRateTracker creates a tracker allowing maxRequests per window.
func NewRateTracker(maxRequests int, window time.Duration) *RateTracker {
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	if window <= 0 {
		window = time.Hour
	}
	perSecond := rate.Limit(float64(maxRequests) / window.Seconds())
	return &RateTracker{
		maxRequests: maxRequests,
		window:      window,
		bucket:      rate.NewLimiter(perSecond, maxRequests/10+1),
		nowFunc:     time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (t *RateTracker) WithNow(fn func() time.Time) *RateTracker {
	t.nowFunc = fn
	return t
}

// rollWindow resets the counter when the window has elapsed and clears a
// 429-imposed limit once its reset time passes.
func (t *RateTracker) rollWindow(now time.Time) {
	if t.windowStart.IsZero() {
		t.windowStart = now
	}
	if now.Sub(t.windowStart) >= t.window {
		t.count = 0
		t.windowStart = now
	}
	if t.limited && !now.Before(t.resetTime) {
		t.limited = false
	}
}

// Allow reports whether a hosted call may proceed right now. It never
// blocks: when limited, the dispatcher skips the network entirely and
// falls back locally.
func (t *RateTracker) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.rollWindow(now)

	if t.limited {
		return false
	}
	if t.count >= t.maxRequests {
		t.limited = true
		t.resetTime = t.windowStart.Add(t.window)
		zap.L().Warn("rate tracker: window exhausted",
			zap.Int("max_requests", t.maxRequests),
			zap.Time("reset_time", t.resetTime),
		)
		return false
	}
	return t.bucket.Allow()
}

// RecordSuccess counts a completed hosted call against the window.
func (t *RateTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindow(t.nowFunc())
	t.count++
}

// RecordRateLimited marks the tracker limited after an upstream 429. The
// reset time comes from retry-after when present, otherwise the window
// boundary.
func (t *RateTracker) RecordRateLimited(retryAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.rollWindow(now)
	t.limited = true
	if retryAfter > 0 {
		t.resetTime = now.Add(retryAfter)
	} else {
		t.resetTime = t.windowStart.Add(t.window)
	}
	zap.L().Warn("rate tracker: upstream 429",
		zap.Duration("retry_after", retryAfter),
		zap.Time("reset_time", t.resetTime),
	)
}

// Snapshot returns the current limited flag and reset time.
func (t *RateTracker) Snapshot() (limited bool, resetTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollWindow(t.nowFunc())
	return t.limited, t.resetTime
}
