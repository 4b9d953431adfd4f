package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
}

// TTLCache is the in-process BytesCache used when Redis is disabled.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.m[key] = c.entry(value, ttl)
	c.mu.Unlock()
	return nil
}

func (c *TTLCache) SetMany(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.m[k] = c.entry(v, ttl)
	}
	return nil
}

func (c *TTLCache) entry(v []byte, ttl time.Duration) entry {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	return entry{v: v, exp: exp}
}

func (c *TTLCache) Close() error { return nil }
