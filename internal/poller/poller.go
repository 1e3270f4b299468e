// Package poller implements the client-side polling loop: bounded
// exponential backoff against the status endpoint until a terminal state
// or a give-up threshold. Giving up is purely a client decision; the
// server-side run keeps going.
package poller

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/orchestrator"
)

// Defaults for the polling loop.
const (
	DefaultBaseInterval = 2 * time.Second
	DefaultMaxInterval  = 10 * time.Second
	DefaultMaxErrors    = 5
	DefaultTimeout      = 60 * time.Second
)

// StatusFunc queries the status endpoint for one attempt.
type StatusFunc func(ctx context.Context, attemptID string) (*orchestrator.StatusResult, error)

// Config tunes the polling loop. Zero values take the defaults above.
type Config struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	MaxErrors    int
	Timeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseInterval <= 0 {
		c.BaseInterval = DefaultBaseInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = DefaultMaxErrors
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// ErrPollTimeout is returned when polling gives up before a terminal
// state, from either the error-count threshold or the wall-clock timeout.
var ErrPollTimeout = eris.New("poller: gave up before terminal state")

// Poll queries status until the attempt reaches a terminal state. A
// successful query resets the interval to base; consecutive transport
// errors double it up to the cap. Cancellation of ctx stops the loop
// without signaling the server.
func Poll(ctx context.Context, attemptID string, fn StatusFunc, cfg Config) (*orchestrator.StatusResult, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	interval := cfg.BaseInterval
	consecutiveErrors := 0

	for {
		result, err := fn(ctx, attemptID)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= cfg.MaxErrors {
				return nil, eris.Wrap(ErrPollTimeout, err.Error())
			}
			// Back off after errors; successful polls stay at base.
			interval *= 2
			if interval > cfg.MaxInterval {
				interval = cfg.MaxInterval
			}
			zap.L().Warn("poller: status query failed",
				zap.String("attempt_id", attemptID),
				zap.Int("consecutive_errors", consecutiveErrors),
				zap.Error(err),
			)
		} else {
			consecutiveErrors = 0
			interval = cfg.BaseInterval

			if model.Status(result.Status).Terminal() {
				return result, nil
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrPollTimeout
		case <-timer.C:
		}
	}
}
