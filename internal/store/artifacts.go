// Package store persists attempt and evaluation artifacts as one JSON file
// per entity. Artifacts are written once through a temp-file rename and
// never mutated, so concurrent readers cannot observe partial writes.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
)

// ArtifactStore reads and writes per-attempt JSON artifacts under a data
// directory:
//
//	<dir>/attempts/<attemptId>.json
//	<dir>/evaluations/<attemptId>.json
//	<dir>/evaluations/<attemptId>.error.json
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir and ensures the artifact
// subdirectories exist.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	for _, sub := range []string{"attempts", "evaluations"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create %s directory", sub)
		}
	}
	return &ArtifactStore{dir: dir}, nil
}

// Dir returns the data directory root.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// LedgerPath returns the idempotency ledger file location inside the data
// directory.
func (s *ArtifactStore) LedgerPath() string {
	return filepath.Join(s.dir, ".idempotency.json")
}

func (s *ArtifactStore) attemptPath(id string) string {
	return filepath.Join(s.dir, "attempts", id+".json")
}

func (s *ArtifactStore) evaluationPath(id string) string {
	return filepath.Join(s.dir, "evaluations", id+".json")
}

func (s *ArtifactStore) errorPath(id string) string {
	return filepath.Join(s.dir, "evaluations", id+".error.json")
}

// writeJSON marshals v and writes it atomically. Every artifact write in
// the pipeline funnels through here.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: marshal artifact")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "store: write temp artifact")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "store: rename artifact")
	}
	return nil
}

// WriteAttempt persists an attempt artifact. Attempts are immutable; the
// caller must not write the same ID twice.
func (s *ArtifactStore) WriteAttempt(a model.Attempt) error {
	if err := model.ValidateAttemptID(a.AttemptID); err != nil {
		return err
	}
	return writeJSON(s.attemptPath(a.AttemptID), a)
}

// ReadAttempt loads an attempt artifact. ok=false when it does not exist.
func (s *ArtifactStore) ReadAttempt(id string) (model.Attempt, bool, error) {
	var a model.Attempt
	if err := model.ValidateAttemptID(id); err != nil {
		return a, false, err
	}

	data, err := os.ReadFile(s.attemptPath(id))
	if os.IsNotExist(err) {
		return a, false, nil
	}
	if err != nil {
		return a, false, eris.Wrap(err, "store: read attempt")
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, false, eris.Wrap(err, "store: parse attempt")
	}
	return a, true, nil
}

// AttemptExists reports whether an attempt artifact is present.
func (s *ArtifactStore) AttemptExists(id string) (bool, error) {
	if err := model.ValidateAttemptID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.attemptPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "store: stat attempt")
	}
	return true, nil
}

// WriteEvaluation persists the evaluation artifact.
func (s *ArtifactStore) WriteEvaluation(e model.Evaluation) error {
	if err := model.ValidateAttemptID(e.AttemptID); err != nil {
		return err
	}
	return writeJSON(s.evaluationPath(e.AttemptID), e)
}

// ReadEvaluation loads an evaluation artifact. ok=false when it does not
// exist.
func (s *ArtifactStore) ReadEvaluation(id string) (model.Evaluation, bool, error) {
	var e model.Evaluation
	if err := model.ValidateAttemptID(id); err != nil {
		return e, false, err
	}

	data, err := os.ReadFile(s.evaluationPath(id))
	if os.IsNotExist(err) {
		return e, false, nil
	}
	if err != nil {
		return e, false, eris.Wrap(err, "store: read evaluation")
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, false, eris.Wrap(err, "store: parse evaluation")
	}
	return e, true, nil
}

// EvaluationExists reports whether the evaluation artifact is present.
func (s *ArtifactStore) EvaluationExists(id string) (bool, error) {
	if err := model.ValidateAttemptID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.evaluationPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "store: stat evaluation")
	}
	return true, nil
}

// WriteEvaluationError persists the error artifact for a failed run.
func (s *ArtifactStore) WriteEvaluationError(id string, evalErr model.EvaluationError) error {
	if err := model.ValidateAttemptID(id); err != nil {
		return err
	}
	return writeJSON(s.errorPath(id), evalErr)
}

// ReadEvaluationError loads the error artifact. A present but corrupt file
// degrades to a generic UNKNOWN_ERROR body instead of failing, so a bad
// disk state can never crash a status query.
func (s *ArtifactStore) ReadEvaluationError(id string) (model.EvaluationError, bool, error) {
	var e model.EvaluationError
	if err := model.ValidateAttemptID(id); err != nil {
		return e, false, err
	}

	data, err := os.ReadFile(s.errorPath(id))
	if os.IsNotExist(err) {
		return e, false, nil
	}
	if err != nil {
		zap.L().Warn("store: unreadable error artifact",
			zap.String("attempt_id", id),
			zap.Error(err),
		)
		return genericError(), true, nil
	}
	if err := json.Unmarshal(data, &e); err != nil {
		zap.L().Warn("store: corrupt error artifact",
			zap.String("attempt_id", id),
			zap.Error(err),
		)
		return genericError(), true, nil
	}
	return e, true, nil
}

// EvaluationErrorExists reports whether the error artifact is present.
func (s *ArtifactStore) EvaluationErrorExists(id string) (bool, error) {
	if err := model.ValidateAttemptID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.errorPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "store: stat error artifact")
	}
	return true, nil
}

func genericError() model.EvaluationError {
	return model.EvaluationError{
		Error:     "processing failed",
		Code:      model.CodeUnknown,
		Timestamp: time.Now().UTC(),
	}
}
