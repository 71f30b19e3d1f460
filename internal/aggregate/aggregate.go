// Package aggregate runs uniquely keyed durable objects. Mutations of one key
// are serialized by a per-key lock and persisted in a single SQL transaction;
// readers share the lock and never see an in-flight write.
package aggregate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrEmptyKey = errors.New("aggregate key must not be empty")

// Store is the persistence the runtime needs; *repository.Repository satisfies it.
type Store interface {
	DB() repository.Querier
	WithTx(ctx context.Context, fn func(q repository.Querier) error) error
}

type Option func(*options)

type options struct {
	cache  cache.StateCache
	logger *zap.Logger
}

// WithCache enables a read-through cache of the encoded state.
func WithCache(c cache.StateCache) Option {
	return func(o *options) { o.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Type is one aggregate kind, e.g. "cart", whose instances hold state S.
type Type[S any] struct {
	name   string
	store  Store
	locks  *KeyedMutex
	cache  cache.StateCache
	sfg    singleflight.Group
	logger *zap.Logger
}

func NewType[S any](name string, store Store, opts ...Option) *Type[S] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Type[S]{
		name:   name,
		store:  store,
		locks:  NewKeyedMutex(),
		cache:  o.cache,
		logger: o.logger.With(zap.String("aggregate", name)),
	}
}

func (t *Type[S]) Name() string {
	return t.name
}

// Create initializes key with the state built by init. Creating a key that
// already exists is a no-op and reports false.
func (t *Type[S]) Create(ctx context.Context, key string, init func(*S)) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	unlock := t.locks.Lock(key)
	defer unlock()

	var state S
	if init != nil {
		init(&state)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("marshal %s state: %w", t.name, err)
	}

	now := repository.UnixMillis(time.Now())
	query := `INSERT INTO aggregate_states (agg_type, agg_key, state, version, created_at, updated_at)
	          VALUES ($1, $2, $3, 1, $4, $5)
	          ON CONFLICT (agg_type, agg_key) DO NOTHING`

	res, err := t.store.DB().ExecContext(ctx, query, t.name, key, data, now, now)
	if err != nil {
		return false, fmt.Errorf("create %s %s: %w", t.name, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create %s %s rows affected: %w", t.name, key, err)
	}
	if n == 1 {
		t.logger.Debug("aggregate created", zap.String("key", key))
	}
	return n == 1, nil
}

func (t *Type[S]) Exists(ctx context.Context, key string) (bool, error) {
	query := `SELECT 1 FROM aggregate_states WHERE agg_type = $1 AND agg_key = $2`

	var one int
	err := t.store.DB().QueryRowContext(ctx, query, t.name, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %s %s: %w", t.name, key, err)
	}
	return true, nil
}

// Read runs fn against the last committed state of key. Readers of the same
// key run concurrently but wait for an in-flight writer.
func (t *Type[S]) Read(ctx context.Context, key string, fn func(S) error) error {
	unlock := t.locks.RLock(key)
	defer unlock()

	state, err := t.loadShared(ctx, key)
	if err != nil {
		return err
	}
	return fn(state)
}

// Write runs fn with exclusive access to key and persists the mutated state.
// An error from fn leaves the stored state unchanged.
func (t *Type[S]) Write(ctx context.Context, key string, fn func(*S) error) error {
	return t.Transact(ctx, key, func(_ context.Context, _ repository.Querier, s *S) error {
		return fn(s)
	})
}

// Transact is Write with the transaction exposed to fn, so writes to stores
// the aggregate owns commit atomically with its state.
func (t *Type[S]) Transact(ctx context.Context, key string, fn func(ctx context.Context, q repository.Querier, s *S) error) error {
	unlock := t.locks.Lock(key)
	defer unlock()

	var data []byte
	err := t.store.WithTx(ctx, func(q repository.Querier) error {
		state, err := t.load(ctx, q, key)
		if err != nil {
			return err
		}

		if err := fn(ctx, q, &state); err != nil {
			return err
		}

		data, err = json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal %s state: %w", t.name, err)
		}

		query := `UPDATE aggregate_states SET state = $1, version = version + 1, updated_at = $2
		          WHERE agg_type = $3 AND agg_key = $4`
		if _, err := q.ExecContext(ctx, query, data, repository.UnixMillis(time.Now()), t.name, key); err != nil {
			return fmt.Errorf("update %s %s: %w", t.name, key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.writeThrough(ctx, key, data)
	return nil
}

// loadShared serves readers from the cache when one is configured. Cache
// fills happen under the read lock, so no writer can commit in between.
// A fill is shared by every reader of key and outlives the caller that
// started it.
func (t *Type[S]) loadShared(ctx context.Context, key string) (S, error) {
	if t.cache == nil {
		return t.load(ctx, t.store.DB(), key)
	}

	ctx = context.WithoutCancel(ctx)
	v, err, _ := t.sfg.Do(key, func() (interface{}, error) {
		data, err := t.cache.Get(ctx, t.cacheKey(key))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			t.logger.Warn("cache get error", zap.String("key", key), zap.Error(err))
		}

		data, err = t.loadRaw(ctx, t.store.DB(), key)
		if err != nil {
			return nil, err
		}

		if err := t.cache.Set(ctx, t.cacheKey(key), data); err != nil {
			t.logger.Warn("cache set error", zap.String("key", key), zap.Error(err))
		}
		return data, nil
	})

	var state S
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(v.([]byte), &state); err != nil {
		return state, fmt.Errorf("unmarshal %s state: %w", t.name, err)
	}
	return state, nil
}

func (t *Type[S]) load(ctx context.Context, q repository.Querier, key string) (S, error) {
	var state S
	data, err := t.loadRaw(ctx, q, key)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("unmarshal %s state: %w", t.name, err)
	}
	return state, nil
}

func (t *Type[S]) loadRaw(ctx context.Context, q repository.Querier, key string) ([]byte, error) {
	query := `SELECT state FROM aggregate_states WHERE agg_type = $1 AND agg_key = $2`

	var data []byte
	err := q.QueryRowContext(ctx, query, t.name, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.Errorf(codes.NotFound, "%s %s not constructed", t.name, key)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", t.name, key, err)
	}
	return data, nil
}

// writeThrough refreshes the cache after a commit while the write lock is
// still held. A failed refresh evicts the entry instead.
func (t *Type[S]) writeThrough(ctx context.Context, key string, data []byte) {
	if t.cache == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if err := t.cache.Set(ctx, t.cacheKey(key), data); err != nil {
		t.logger.Warn("cache write-through error", zap.String("key", key), zap.Error(err))
		if errDel := t.cache.Delete(ctx, t.cacheKey(key)); errDel != nil {
			t.logger.Error("cache invalidate error", zap.String("key", key), zap.Error(errDel))
		}
	}
}

func (t *Type[S]) cacheKey(key string) string {
	return t.name + ":" + key
}
