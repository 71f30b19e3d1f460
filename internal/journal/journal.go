// Package journal records the outcome of named side-effecting steps of a
// workflow run. A step whose outcome is committed is never invoked again for
// that run; replays return the stored outcome.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type StepStatus string

const (
	StatusStarted   StepStatus = "started"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

var (
	ErrStepNotFound = errors.New("step record not found")

	// ErrAtMostOnceInterrupted is returned when an at-most-once step was
	// started by an earlier attempt that never recorded its outcome.
	ErrAtMostOnceInterrupted = status.Error(codes.Aborted, "at-most-once step was interrupted before completing")
)

type StepRecord struct {
	RunID       string          `json:"run_id"`
	StepName    string          `json:"step_name"`
	Status      StepStatus      `json:"status"`
	Outcome     json.RawMessage `json:"outcome,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (r *StepRecord) Completed() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

type Journal struct {
	db     repository.Querier
	logger *zap.Logger
}

func New(db repository.Querier, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{db: db, logger: logger}
}

// AtLeastOnce returns the committed outcome of step within runID, invoking fn
// only when none exists. The outcome is persisted before it is returned. An
// ordinary error from fn is not recorded, so the step is retried on the next
// attempt; errors wrapped with Permanent are recorded and replayed.
func AtLeastOnce[T any](ctx context.Context, j *Journal, runID, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	rec, err := j.Lookup(ctx, runID, step)
	switch {
	case err == nil && rec.Completed():
		j.logger.Debug("replaying step", zap.String("run_id", runID), zap.String("step", step))
		return decode[T](rec)
	case err != nil && !errors.Is(err, ErrStepNotFound):
		return zero, err
	}

	v, err := fn(ctx)
	// fn may have had its effect; the outcome is recorded even if ctx is done
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		var perm *permanentError
		if !errors.As(err, &perm) {
			return zero, err
		}
		if errRec := j.complete(ctx, runID, step, StatusFailed, nil, perm.err.Error()); errRec != nil {
			return zero, errRec
		}
	} else {
		data, errMarshal := json.Marshal(v)
		if errMarshal != nil {
			return zero, fmt.Errorf("marshal outcome of step %q: %w", step, errMarshal)
		}
		if errRec := j.complete(ctx, runID, step, StatusSucceeded, data, ""); errRec != nil {
			return zero, errRec
		}
	}

	// the stored record is authoritative when another attempt committed first
	rec, err = j.Lookup(ctx, runID, step)
	if err != nil {
		return zero, err
	}
	return decode[T](rec)
}

// AtMostOnce persists a started marker before invoking fn and records any
// outcome, failures included. If a replay finds the marker without an outcome
// fn is not invoked again and ErrAtMostOnceInterrupted is returned.
func AtMostOnce[T any](ctx context.Context, j *Journal, runID, step string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	rec, err := j.Lookup(ctx, runID, step)
	switch {
	case err == nil && rec.Completed():
		return decode[T](rec)
	case err == nil:
		return zero, fmt.Errorf("step %q of run %s: %w", step, runID, ErrAtMostOnceInterrupted)
	case !errors.Is(err, ErrStepNotFound):
		return zero, err
	}

	started, err := j.start(ctx, runID, step)
	if err != nil {
		return zero, err
	}
	if !started {
		return zero, fmt.Errorf("step %q of run %s: %w", step, runID, ErrAtMostOnceInterrupted)
	}

	v, err := fn(ctx)
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		var perm *permanentError
		if errors.As(err, &perm) {
			err = perm.err
		}
		if errRec := j.complete(ctx, runID, step, StatusFailed, nil, err.Error()); errRec != nil {
			return zero, errRec
		}
	} else {
		data, errMarshal := json.Marshal(v)
		if errMarshal != nil {
			return zero, fmt.Errorf("marshal outcome of step %q: %w", step, errMarshal)
		}
		if errRec := j.complete(ctx, runID, step, StatusSucceeded, data, ""); errRec != nil {
			return zero, errRec
		}
	}

	rec, err = j.Lookup(ctx, runID, step)
	if err != nil {
		return zero, err
	}
	return decode[T](rec)
}

func (j *Journal) Lookup(ctx context.Context, runID, step string) (*StepRecord, error) {
	query := `SELECT run_id, step_name, status, outcome, error, created_at, completed_at
	          FROM step_records WHERE run_id = $1 AND step_name = $2`

	rec, err := scanStepRecord(j.db.QueryRowContext(ctx, query, runID, step))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStepNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query step record: %w", err)
	}
	return rec, nil
}

// Steps lists the records of a run in the order they were first written.
func (j *Journal) Steps(ctx context.Context, runID string) ([]*StepRecord, error) {
	query := `SELECT run_id, step_name, status, outcome, error, created_at, completed_at
	          FROM step_records WHERE run_id = $1
	          ORDER BY created_at, step_name`

	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query step records: %w", err)
	}
	defer rows.Close()

	records := make([]*StepRecord, 0)
	for rows.Next() {
		rec, err := scanStepRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

func (j *Journal) start(ctx context.Context, runID, step string) (bool, error) {
	query := `INSERT INTO step_records (run_id, step_name, status, created_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (run_id, step_name) DO NOTHING`

	res, err := j.db.ExecContext(ctx, query, runID, step, StatusStarted, repository.UnixMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("insert step marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert step marker rows affected: %w", err)
	}
	return n == 1, nil
}

// complete writes the outcome of a step. A completed record is never
// overwritten; only a started marker may be upgraded.
func (j *Journal) complete(ctx context.Context, runID, step string, st StepStatus, outcome []byte, errMsg string) error {
	now := repository.UnixMillis(time.Now())
	query := `INSERT INTO step_records (run_id, step_name, status, outcome, error, created_at, completed_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (run_id, step_name) DO UPDATE
	          SET status = excluded.status, outcome = excluded.outcome, error = excluded.error, completed_at = excluded.completed_at
	          WHERE step_records.status = $8`

	if _, err := j.db.ExecContext(ctx, query, runID, step, st, outcome, errMsg, now, now, StatusStarted); err != nil {
		return fmt.Errorf("record step %q: %w", step, err)
	}

	j.logger.Info("step recorded",
		zap.String("run_id", runID),
		zap.String("step", step),
		zap.String("status", string(st)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStepRecord(row rowScanner) (*StepRecord, error) {
	var (
		rec         StepRecord
		st          string
		outcome     []byte
		createdAt   int64
		completedAt sql.NullInt64
	)
	if err := row.Scan(&rec.RunID, &rec.StepName, &st, &outcome, &rec.Error, &createdAt, &completedAt); err != nil {
		return nil, err
	}

	rec.Status = StepStatus(st)
	if len(outcome) > 0 {
		rec.Outcome = outcome
	}
	rec.CreatedAt = repository.FromMillis(createdAt)
	rec.CompletedAt = repository.NullMillis(completedAt)
	return &rec, nil
}

func decode[T any](rec *StepRecord) (T, error) {
	var v T
	if rec.Status == StatusFailed {
		return v, &RecordedFailure{RunID: rec.RunID, Step: rec.StepName, Message: rec.Error}
	}
	if err := json.Unmarshal(rec.Outcome, &v); err != nil {
		return v, fmt.Errorf("unmarshal outcome of step %q: %w", rec.StepName, err)
	}
	return v, nil
}
