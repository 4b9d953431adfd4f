package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A zero TTL never expires.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetMany writes all entries together so readers never see half a document.
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	Close() error
}
