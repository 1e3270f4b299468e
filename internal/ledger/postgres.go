package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/3CBolt/promptpractice/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the ledger. pgxmock satisfies
// it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresLedger implements Ledger on pgx for multi-instance deployments,
// where a shared transactional store replaces the single-host file ledger.
type PostgresLedger struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS idempotency (
	attempt_id  TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'queued',
	updated_at  TIMESTAMPTZ NOT NULL,
	lock_expiry TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_idempotency_status ON idempotency(status);
`

// NewPostgresLedger connects to Postgres and applies the schema.
func NewPostgresLedger(ctx context.Context, connString string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: postgres connect")
	}

	l := &PostgresLedger{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ledger: postgres migrate")
	}
	return l, nil
}

// NewPostgresLedgerWithPool wraps an existing pool; used by tests.
func NewPostgresLedgerWithPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

func (l *PostgresLedger) AcquireLock(ctx context.Context, attemptID string) (bool, error) {
	now := time.Now().UTC()
	expiry := now.Add(LockTTL)

	tag, err := l.pool.Exec(ctx, `
		INSERT INTO idempotency (attempt_id, status, updated_at, lock_expiry)
		VALUES ($1, 'queued', $2, $3)
		ON CONFLICT (attempt_id) DO UPDATE SET
			lock_expiry = EXCLUDED.lock_expiry,
			updated_at  = EXCLUDED.updated_at
		WHERE idempotency.lock_expiry IS NULL OR idempotency.lock_expiry <= $2
	`, attemptID, now, expiry)
	if err != nil {
		return false, eris.Wrap(err, "ledger: postgres acquire lock")
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PostgresLedger) ReleaseLock(ctx context.Context, attemptID string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE idempotency SET lock_expiry = NULL WHERE attempt_id = $1`, attemptID)
	return eris.Wrap(err, "ledger: postgres release lock")
}

func (l *PostgresLedger) GetStatus(ctx context.Context, attemptID string) (model.Status, bool, error) {
	var status string
	err := l.pool.QueryRow(ctx,
		`SELECT status FROM idempotency WHERE attempt_id = $1`, attemptID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "ledger: postgres get status")
	}
	return model.Status(status), true, nil
}

func (l *PostgresLedger) UpdateStatus(ctx context.Context, attemptID string, status model.Status) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO idempotency (attempt_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (attempt_id) DO UPDATE SET
			status     = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, attemptID, string(status), time.Now().UTC())
	return eris.Wrap(err, "ledger: postgres update status")
}

func (l *PostgresLedger) IsProcessed(ctx context.Context, attemptID string) (bool, error) {
	status, ok, err := l.GetStatus(ctx, attemptID)
	if err != nil || !ok {
		return false, err
	}
	return status != model.StatusQueued, nil
}

func (l *PostgresLedger) Cleanup(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	if _, err := l.pool.Exec(ctx,
		`UPDATE idempotency SET lock_expiry = NULL WHERE lock_expiry <= $1`, now); err != nil {
		return 0, eris.Wrap(err, "ledger: postgres clear expired locks")
	}

	tag, err := l.pool.Exec(ctx, `
		DELETE FROM idempotency
		WHERE status IN ('success', 'error', 'timeout') AND updated_at <= $1
	`, now.Add(-TerminalRetention))
	if err != nil {
		return 0, eris.Wrap(err, "ledger: postgres delete stale records")
	}
	return int(tag.RowsAffected()), nil
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
