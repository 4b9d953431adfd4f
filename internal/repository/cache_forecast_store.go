package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	icache "PriceCast/internal/service/cache"
)

const (
	cacheMetaKey = "meta"
	cacheKeysKey = "keys"
	cacheGenKey  = "generation"
)

// CacheForecastStore keeps the latest document in a BytesCache: the meta, the
// sorted key index and one entry per series. Series entries are namespaced by a
// generation unique to each Write, so a reader never sees a series the latest
// document dropped, even when two documents share generated_at.
type CacheForecastStore struct {
	cache icache.BytesCache
	ttl   time.Duration
	seq   atomic.Uint64
}

func NewCacheForecastStore(c icache.BytesCache, ttl time.Duration) *CacheForecastStore {
	return &CacheForecastStore{cache: c, ttl: ttl}
}

func (s *CacheForecastStore) Name() string { return "cache" }

func seriesCacheKey(generation, key string) string {
	return "series:" + generation + ":" + key
}

func (s *CacheForecastStore) nextGeneration(generatedAt string) string {
	return generatedAt + "." + strconv.FormatInt(time.Now().UnixNano(), 36) + "." + strconv.FormatUint(s.seq.Add(1), 10)
}

func (s *CacheForecastStore) Write(ctx context.Context, doc *models.Document) error {
	gen := s.nextGeneration(doc.Meta.GeneratedAt)
	entries := make(map[string][]byte, len(doc.Series))
	keys := make([]string, 0, len(doc.Series))
	for k, sf := range doc.Series {
		b, err := json.Marshal(sf)
		if err != nil {
			return fmt.Errorf("encode series %s: %w", k, err)
		}
		entries[seriesCacheKey(gen, k)] = b
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kb, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode keys: %w", err)
	}
	mb, err := json.Marshal(doc.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	// series first so meta never points at missing entries
	if err := s.cache.SetMany(ctx, entries, s.ttl); err != nil {
		return err
	}
	return s.cache.SetMany(ctx, map[string][]byte{
		cacheKeysKey: kb,
		cacheMetaKey: mb,
		cacheGenKey:  []byte(gen),
	}, s.ttl)
}

func (s *CacheForecastStore) Meta(ctx context.Context) (*models.Meta, error) {
	b, ok, err := s.cache.GetBytes(ctx, cacheMetaKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domrepo.ErrNoDocument
	}
	var m models.Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &m, nil
}

func (s *CacheForecastStore) Keys(ctx context.Context) ([]string, error) {
	b, ok, err := s.cache.GetBytes(ctx, cacheKeysKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domrepo.ErrNoDocument
	}
	var keys []string
	if err := json.Unmarshal(b, &keys); err != nil {
		return nil, fmt.Errorf("decode keys: %w", err)
	}
	return keys, nil
}

func (s *CacheForecastStore) Series(ctx context.Context, key string) (*models.SeriesForecast, error) {
	gen, ok, err := s.cache.GetBytes(ctx, cacheGenKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domrepo.ErrNoDocument
	}
	b, ok, err := s.cache.GetBytes(ctx, seriesCacheKey(string(gen), key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, key)
	}
	var sf models.SeriesForecast
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", key, err)
	}
	return &sf, nil
}
