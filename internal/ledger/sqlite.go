package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/3CBolt/promptpractice/internal/model"
)

// SQLiteLedger implements Ledger on modernc.org/sqlite. Lock acquisition is
// a conditional UPDATE, so it is safe across processes sharing the file.
type SQLiteLedger struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS idempotency (
	attempt_id  TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'queued',
	updated_at  DATETIME NOT NULL,
	lock_expiry DATETIME
);

CREATE INDEX IF NOT EXISTS idx_idempotency_status ON idempotency(status);
`

// NewSQLiteLedger opens a SQLite ledger at the given path, configures WAL
// mode, and applies the schema.
func NewSQLiteLedger(ctx context.Context, dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ledger: sqlite migrate")
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) AcquireLock(ctx context.Context, attemptID string) (bool, error) {
	now := time.Now().UTC()
	expiry := now.Add(LockTTL)

	// Upsert, taking the lock only when no unexpired lock exists.
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO idempotency (attempt_id, status, updated_at, lock_expiry)
		VALUES (?, 'queued', ?, ?)
		ON CONFLICT(attempt_id) DO UPDATE SET
			lock_expiry = excluded.lock_expiry,
			updated_at  = excluded.updated_at
		WHERE idempotency.lock_expiry IS NULL OR idempotency.lock_expiry <= ?
	`, attemptID, now, expiry, now)
	if err != nil {
		return false, eris.Wrap(err, "ledger: sqlite acquire lock")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "ledger: sqlite rows affected")
	}
	return n > 0, nil
}

func (l *SQLiteLedger) ReleaseLock(ctx context.Context, attemptID string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE idempotency SET lock_expiry = NULL WHERE attempt_id = ?`, attemptID)
	return eris.Wrap(err, "ledger: sqlite release lock")
}

func (l *SQLiteLedger) GetStatus(ctx context.Context, attemptID string) (model.Status, bool, error) {
	var status string
	err := l.db.QueryRowContext(ctx,
		`SELECT status FROM idempotency WHERE attempt_id = ?`, attemptID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "ledger: sqlite get status")
	}
	return model.Status(status), true, nil
}

func (l *SQLiteLedger) UpdateStatus(ctx context.Context, attemptID string, status model.Status) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO idempotency (attempt_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(attempt_id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at
	`, attemptID, string(status), time.Now().UTC())
	return eris.Wrap(err, "ledger: sqlite update status")
}

func (l *SQLiteLedger) IsProcessed(ctx context.Context, attemptID string) (bool, error) {
	status, ok, err := l.GetStatus(ctx, attemptID)
	if err != nil || !ok {
		return false, err
	}
	return status != model.StatusQueued, nil
}

func (l *SQLiteLedger) Cleanup(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	if _, err := l.db.ExecContext(ctx,
		`UPDATE idempotency SET lock_expiry = NULL WHERE lock_expiry <= ?`, now); err != nil {
		return 0, eris.Wrap(err, "ledger: sqlite clear expired locks")
	}

	res, err := l.db.ExecContext(ctx, `
		DELETE FROM idempotency
		WHERE status IN ('success', 'error', 'timeout') AND updated_at <= ?
	`, now.Add(-TerminalRetention))
	if err != nil {
		return 0, eris.Wrap(err, "ledger: sqlite delete stale records")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "ledger: sqlite rows affected")
	}
	return int(n), nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
