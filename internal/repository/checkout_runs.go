package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrCheckoutRunNotFound = errors.New("checkout run not found")
	ErrIllegalTransition   = errors.New("illegal transition of checkout status")
)

type CheckoutRun struct {
	ID        string
	CartID    string
	OrdersID  string
	Status    domain.CheckoutStatus
	Input     []byte
	Result    []byte
	LastError string
	OrderID   string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CheckoutRunRepository interface {
	CreateCheckoutRun(ctx context.Context, run *CheckoutRun) (bool, error)
	GetCheckoutRun(ctx context.Context, id string) (*CheckoutRun, error)
	MarkCheckoutRunAttempt(ctx context.Context, id string) error
	SetCheckoutRunError(ctx context.Context, id string, lastError string) error
	CompleteCheckoutRun(ctx context.Context, id string, orderID string, result []byte) error
	FailCheckoutRun(ctx context.Context, id string, lastError string) error
	GetStuckRuns(ctx context.Context, updatedBefore time.Time, limit int) ([]*CheckoutRun, error)
}

const checkoutRunColumns = `id, cart_id, orders_id, status, input, result, last_error, order_id, attempts, created_at, updated_at`

// CreateCheckoutRun registers a RUNNING run. It reports false when a run with
// the same id already exists, leaving the stored run untouched.
func (r *Repository) CreateCheckoutRun(ctx context.Context, run *CheckoutRun) (bool, error) {
	now := time.Now()
	query := `INSERT INTO checkout_runs (id, cart_id, orders_id, status, input, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.CartID,
		run.OrdersID,
		domain.CheckoutStatusRunning,
		run.Input,
		UnixMillis(now),
		UnixMillis(now))
	if err != nil {
		return false, fmt.Errorf("insert checkout run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert checkout run rows affected: %w", err)
	}
	if n == 1 {
		run.Status = domain.CheckoutStatusRunning
		run.CreatedAt = FromMillis(UnixMillis(now))
		run.UpdatedAt = run.CreatedAt
	}
	return n == 1, nil
}

func (r *Repository) GetCheckoutRun(ctx context.Context, id string) (*CheckoutRun, error) {
	query := `SELECT ` + checkoutRunColumns + ` FROM checkout_runs WHERE id = $1`

	run, err := scanCheckoutRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout run: %w", err)
	}
	return run, nil
}

func (r *Repository) MarkCheckoutRunAttempt(ctx context.Context, id string) error {
	query := `UPDATE checkout_runs SET attempts = attempts + 1, updated_at = $1
	          WHERE id = $2 AND status = $3`

	return r.updateRunningRun(ctx, query, UnixMillis(time.Now()), id, domain.CheckoutStatusRunning)
}

func (r *Repository) SetCheckoutRunError(ctx context.Context, id string, lastError string) error {
	query := `UPDATE checkout_runs SET last_error = $1, updated_at = $2
	          WHERE id = $3 AND status = $4`

	return r.updateRunningRun(ctx, query, lastError, UnixMillis(time.Now()), id, domain.CheckoutStatusRunning)
}

func (r *Repository) CompleteCheckoutRun(ctx context.Context, id string, orderID string, result []byte) error {
	query := `UPDATE checkout_runs SET status = $1, order_id = $2, result = $3, last_error = '', updated_at = $4
	          WHERE id = $5 AND status = $6`

	return r.updateRunningRun(ctx, query,
		domain.CheckoutStatusCompleted,
		orderID,
		result,
		UnixMillis(time.Now()),
		id,
		domain.CheckoutStatusRunning)
}

func (r *Repository) FailCheckoutRun(ctx context.Context, id string, lastError string) error {
	query := `UPDATE checkout_runs SET status = $1, last_error = $2, updated_at = $3
	          WHERE id = $4 AND status = $5`

	return r.updateRunningRun(ctx, query,
		domain.CheckoutStatusFailed,
		lastError,
		UnixMillis(time.Now()),
		id,
		domain.CheckoutStatusRunning)
}

// GetStuckRuns lists RUNNING runs whose last update is older than updatedBefore,
// oldest first.
func (r *Repository) GetStuckRuns(ctx context.Context, updatedBefore time.Time, limit int) ([]*CheckoutRun, error) {
	query := `SELECT ` + checkoutRunColumns + ` FROM checkout_runs
	          WHERE status = $1 AND updated_at < $2
	          ORDER BY updated_at
	          LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, domain.CheckoutStatusRunning, UnixMillis(updatedBefore), limit)
	if err != nil {
		return nil, fmt.Errorf("query stuck runs: %w", err)
	}
	defer rows.Close()

	var runs []*CheckoutRun
	for rows.Next() {
		run, err := scanCheckoutRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// updateRunningRun executes a status-guarded update. Zero affected rows means
// the run is missing or has already settled.
func (r *Repository) updateRunningRun(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update checkout run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checkout run rows affected: %w", err)
	}
	if n == 0 {
		return ErrIllegalTransition
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckoutRun(row rowScanner) (*CheckoutRun, error) {
	var (
		run       CheckoutRun
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&run.ID,
		&run.CartID,
		&run.OrdersID,
		&status,
		&run.Input,
		&run.Result,
		&run.LastError,
		&run.OrderID,
		&run.Attempts,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	run.Status = domain.CheckoutStatus(status)
	run.CreatedAt = FromMillis(createdAt)
	run.UpdatedAt = FromMillis(updatedAt)
	return &run, nil
}
