package cache

import (
	"context"
	"errors"
)

// StateCache holds encoded aggregate state keyed by "<type>:<key>".
type StateCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, state []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
