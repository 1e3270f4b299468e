// Package ledger tracks per-attempt processing status and an expiring lock,
// guaranteeing at-most-one active processing run per attempt and making
// retries safe.
package ledger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/3CBolt/promptpractice/internal/model"
)

const (
	// LockTTL is how long an acquired lock stays valid. Expiry prevents a
	// crashed worker from deadlocking an attempt permanently.
	LockTTL = 5 * time.Minute

	// TerminalRetention is how long terminal records survive before
	// Cleanup deletes them.
	TerminalRetention = 24 * time.Hour
)

// Ledger is the idempotency store keyed by attempt identifier.
type Ledger interface {
	// AcquireLock marks the record locked with expiry now+LockTTL and
	// returns true, unless an unexpired lock already exists.
	AcquireLock(ctx context.Context, attemptID string) (bool, error)

	// ReleaseLock clears the lock expiry, preserving status.
	ReleaseLock(ctx context.Context, attemptID string) error

	// GetStatus returns the recorded status, or ok=false when no record
	// exists.
	GetStatus(ctx context.Context, attemptID string) (model.Status, bool, error)

	// UpdateStatus upserts the record and stamps its timestamp.
	UpdateStatus(ctx context.Context, attemptID string, status model.Status) error

	// IsProcessed reports whether a record exists with status other than
	// queued.
	IsProcessed(ctx context.Context, attemptID string) (bool, error)

	// Cleanup drops expired locks and deletes terminal records older than
	// TerminalRetention. It returns the number of records deleted.
	Cleanup(ctx context.Context) (int, error)

	Close() error
}

// Config selects and configures a ledger backend.
type Config struct {
	Driver      string
	FilePath    string
	SQLitePath  string
	DatabaseURL string
}

// Open constructs the configured ledger backend.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileLedger(cfg.FilePath), nil
	case "sqlite":
		return NewSQLiteLedger(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresLedger(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
}
