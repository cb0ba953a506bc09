package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/geocoder89/mural/internal/domain/announcement"
	"github.com/redis/go-redis/v9"
)

// ListCache stores rendered board listings keyed by BuildMuralListKey.
//
// Callers read Generation before querying the store and build the key from
// it. Invalidate moves the generation forward, so a listing that raced with a
// write is stored under a key nobody reads again.
type ListCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, key string) ([]announcement.Entry, bool, error)
	Set(ctx context.Context, key string, entries []announcement.Entry) error
	// Invalidate bumps the generation; called after any write.
	Invalidate(ctx context.Context) error
}

// MemoryListCache keeps listings in process.
type MemoryListCache struct {
	c   *Cache
	gen atomic.Uint64
}

func NewMemoryListCache(ttl time.Duration) *MemoryListCache {
	return &MemoryListCache{c: New(ttl)}
}

func (m *MemoryListCache) Generation(_ context.Context) (uint64, error) {
	return m.gen.Load(), nil
}

func (m *MemoryListCache) Get(_ context.Context, key string) ([]announcement.Entry, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	entries, ok := v.([]announcement.Entry)
	if !ok {
		m.c.Delete(key)
		return nil, false, nil
	}

	return entries, true, nil
}

func (m *MemoryListCache) Set(_ context.Context, key string, entries []announcement.Entry) error {
	m.c.Set(key, entries)
	return nil
}

func (m *MemoryListCache) Invalidate(_ context.Context) error {
	m.gen.Add(1)
	// old generations are unreachable; free them now rather than at expiry
	m.c.Clear()
	return nil
}

// RedisListCache shares listings and the generation counter between API
// instances.
type RedisListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisListCache(rdb *redis.Client, ttl time.Duration) *RedisListCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisListCache{rdb: rdb, ttl: ttl}
}

func (r *RedisListCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := r.rdb.Get(ctx, listGenKey).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get %s: %w", listGenKey, err)
	}
	return gen, nil
}

func (r *RedisListCache) Get(ctx context.Context, key string) ([]announcement.Entry, bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entries []announcement.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// corrupt entry: drop it and report a miss
		_ = r.rdb.Del(ctx, key).Err()
		return nil, false, nil
	}

	return entries, true, nil
}

func (r *RedisListCache) Set(ctx context.Context, key string, entries []announcement.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Invalidate only bumps the counter. Listings of older generations expire on
// their own TTL.
func (r *RedisListCache) Invalidate(ctx context.Context) error {
	if err := r.rdb.Incr(ctx, listGenKey).Err(); err != nil {
		return fmt.Errorf("redis incr %s: %w", listGenKey, err)
	}
	return nil
}
