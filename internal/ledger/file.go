package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
)

// FileLedger stores records in a single JSON object file mapping attempt ID
// to record. A process-wide mutex serializes every read-modify-write, and
// writes go through a temp file followed by rename so concurrent readers
// never observe a partial ledger.
type FileLedger struct {
	path string

	mu sync.Mutex

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewFileLedger creates a file-backed ledger at the given path.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{
		path:    path,
		nowFunc: time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (l *FileLedger) WithNow(fn func() time.Time) *FileLedger {
	l.nowFunc = fn
	return l
}

// load reads the ledger file. A missing, unreadable, or corrupt file is
// treated as an empty ledger so a damaged file never blocks processing.
func (l *FileLedger) load() map[string]model.IdempotencyRecord {
	records := make(map[string]model.IdempotencyRecord)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("ledger: unreadable file, treating as empty",
				zap.String("path", l.path),
				zap.Error(err),
			)
		}
		return records
	}

	if err := json.Unmarshal(data, &records); err != nil {
		zap.L().Warn("ledger: corrupt file, treating as empty",
			zap.String("path", l.path),
			zap.Error(err),
		)
		return make(map[string]model.IdempotencyRecord)
	}

	return records
}

// save persists the ledger atomically. Write failures propagate: processing
// cannot proceed safely without durable state.
func (l *FileLedger) save(records map[string]model.IdempotencyRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return eris.Wrap(err, "ledger: create directory")
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ledger: marshal")
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "ledger: write temp file")
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return eris.Wrap(err, "ledger: rename temp file")
	}

	return nil
}

func (l *FileLedger) AcquireLock(_ context.Context, attemptID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	records := l.load()

	rec, ok := records[attemptID]
	if ok && rec.Locked(now) {
		return false, nil
	}

	expiry := now.Add(LockTTL)
	if !ok {
		rec = model.IdempotencyRecord{
			AttemptID: attemptID,
			Status:    model.StatusQueued,
		}
	}
	rec.LockExpiry = &expiry
	rec.Timestamp = now
	records[attemptID] = rec

	if err := l.save(records); err != nil {
		return false, err
	}
	return true, nil
}

func (l *FileLedger) ReleaseLock(_ context.Context, attemptID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	rec, ok := records[attemptID]
	if !ok {
		return nil
	}
	rec.LockExpiry = nil
	records[attemptID] = rec

	return l.save(records)
}

func (l *FileLedger) GetStatus(_ context.Context, attemptID string) (model.Status, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	rec, ok := records[attemptID]
	if !ok {
		return "", false, nil
	}
	return rec.Status, true, nil
}

func (l *FileLedger) UpdateStatus(_ context.Context, attemptID string, status model.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	rec, ok := records[attemptID]
	if !ok {
		rec = model.IdempotencyRecord{AttemptID: attemptID}
	}
	rec.Status = status
	rec.Timestamp = l.nowFunc()
	records[attemptID] = rec

	return l.save(records)
}

func (l *FileLedger) IsProcessed(_ context.Context, attemptID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	rec, ok := records[attemptID]
	return ok && rec.Status != model.StatusQueued, nil
}

func (l *FileLedger) Cleanup(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	records := l.load()

	deleted := 0
	changed := false
	for id, rec := range records {
		if rec.LockExpiry != nil && !rec.LockExpiry.After(now) {
			rec.LockExpiry = nil
			records[id] = rec
			changed = true
		}
		if rec.Status.Terminal() && now.Sub(rec.Timestamp) > TerminalRetention {
			delete(records, id)
			deleted++
			changed = true
		}
	}

	if !changed {
		return 0, nil
	}
	if err := l.save(records); err != nil {
		return 0, err
	}

	zap.L().Info("ledger: cleanup complete",
		zap.Int("deleted", deleted),
		zap.Int("remaining", len(records)),
	)
	return deleted, nil
}

func (l *FileLedger) Close() error { return nil }
