// Package orderedmap is a sorted string-keyed value store backed by the
// ordered_map_entries table. A Map is a handle bound to a querier, so the same
// map can be read through the database or written inside a transaction.
package orderedmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/repository"
)

const (
	DefaultRangeLimit = 100
	MaxRangeLimit     = 1000
)

var ErrEmptyKey = errors.New("ordered map key must not be empty")

type Entry struct {
	Key   string
	Value []byte
}

// RangeRequest selects keys strictly after StartAfter in ascending order.
// An empty StartAfter starts from the first key.
type RangeRequest struct {
	Limit      int
	StartAfter string
}

type Map struct {
	q  repository.Querier
	id string
}

func New(q repository.Querier, id string) *Map {
	return &Map{q: q, id: id}
}

func (m *Map) ID() string {
	return m.id
}

// Insert stores value under key, overwriting any existing value.
func (m *Map) Insert(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	query := `INSERT INTO ordered_map_entries (map_id, entry_key, value)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (map_id, entry_key) DO UPDATE SET value = excluded.value`

	if _, err := m.q.ExecContext(ctx, query, m.id, key, value); err != nil {
		return fmt.Errorf("insert %s/%s: %w", m.id, key, err)
	}
	return nil
}

// InsertIfAbsent stores value only when key is not present yet.
func (m *Map) InsertIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	query := `INSERT INTO ordered_map_entries (map_id, entry_key, value)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (map_id, entry_key) DO NOTHING`

	res, err := m.q.ExecContext(ctx, query, m.id, key, value)
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", m.id, key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s/%s rows affected: %w", m.id, key, err)
	}
	return n == 1, nil
}

func (m *Map) Search(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	query := `SELECT value FROM ordered_map_entries WHERE map_id = $1 AND entry_key = $2`

	var value []byte
	err := m.q.QueryRowContext(ctx, query, m.id, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("search %s/%s: %w", m.id, key, err)
	}
	return value, true, nil
}

func (m *Map) Range(ctx context.Context, req RangeRequest) ([]Entry, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRangeLimit
	}
	if limit > MaxRangeLimit {
		limit = MaxRangeLimit
	}

	query := `SELECT entry_key, value FROM ordered_map_entries
	          WHERE map_id = $1 AND entry_key > $2
	          ORDER BY entry_key
	          LIMIT $3`

	rows, err := m.q.QueryContext(ctx, query, m.id, req.StartAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", m.id, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", m.id, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
