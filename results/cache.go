// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lifecatcher9182/vote-system-sub000/models"
	"github.com/lifecatcher9182/vote-system-sub000/store"
)

const cachePrefix = "results:"

// NewRedisClient connects to Redis at addr. It returns nil when addr is
// empty or the server does not answer a ping; callers then run without a
// results cache.
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, results cache disabled", "addr", addr, "error", err)
		client.Close()
		return nil
	}
	return client
}

// Cache holds recently computed live results in Redis. A nil *Cache, or
// one without a client, misses on every read and ignores writes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Get returns cached results for electionID, if any.
func (c *Cache) Get(ctx context.Context, electionID string) (*models.ElectionResults, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cachePrefix+electionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("results cache read failed", "election_id", electionID, "error", err)
		}
		return nil, false
	}

	var res models.ElectionResults
	if err := json.Unmarshal(raw, &res); err != nil {
		slog.Warn("results cache entry unreadable", "election_id", electionID, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *Cache) Set(ctx context.Context, res *models.ElectionResults) {
	if !c.enabled() || res == nil {
		return
	}

	raw, err := json.Marshal(res)
	if err != nil {
		slog.Warn("results cache encode failed", "election_id", res.Election.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, cachePrefix+res.Election.ID, raw, c.ttl).Err(); err != nil {
		slog.Warn("results cache write failed", "election_id", res.Election.ID, "error", err)
	}
}

// Invalidate drops the cached results of an election after a ballot is
// recorded or the election closes.
func (c *Cache) Invalidate(ctx context.Context, electionID string) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, cachePrefix+electionID).Err(); err != nil {
		slog.Warn("results cache invalidate failed", "election_id", electionID, "error", err)
	}
}

// Monitor serves live results for the operator view, going through the
// cache before recomputing.
type Monitor struct {
	store   *store.Store
	cache   *Cache
	refresh time.Duration
}

func NewMonitor(st *store.Store, cache *Cache, refresh time.Duration) *Monitor {
	return &Monitor{store: st, cache: cache, refresh: refresh}
}

// Live returns the current results of an election in any status. The
// response tells clients how long to wait before polling again.
func (m *Monitor) Live(ctx context.Context, electionID string) (*models.ElectionResults, error) {
	res, ok := m.cache.Get(ctx, electionID)
	if !ok {
		var err error
		res, err = Compute(ctx, m.store, electionID)
		if err != nil {
			return nil, err
		}
		m.cache.Set(ctx, res)
	}

	res.RefreshAfter = int(m.refresh / time.Second)
	return res, nil
}

// Invalidate forwards to the cache.
func (m *Monitor) Invalidate(ctx context.Context, electionID string) {
	if m == nil {
		return
	}
	m.cache.Invalidate(ctx, electionID)
}
