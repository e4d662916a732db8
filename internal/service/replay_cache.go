package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ReplayCache is a Redis fast path for manual-trigger idempotency: it maps a
// trigger key to the cut id it produced, with a short TTL. It is only an
// accelerator — the authoritative duplicate check lives inside the
// LedgerStore critical section, so a cache miss or a Redis outage never
// breaks the exactly-once invariant.
type ReplayCache struct {
	rdb *redis.Client
	ttl time.Duration
}

const replayKeyPrefix = "cut:replay:"

func NewReplayCache(rdb *redis.Client, ttl time.Duration) *ReplayCache {
	return &ReplayCache{rdb: rdb, ttl: ttl}
}

// Get returns the cut id recorded for key, if any.
func (c *ReplayCache) Get(ctx context.Context, key string) (uuid.UUID, bool) {
	if c == nil || c.rdb == nil {
		return uuid.Nil, false
	}
	val, err := c.rdb.Get(ctx, replayKeyPrefix+key).Result()
	if err == redis.Nil {
		return uuid.Nil, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("replay cache read failed, falling back to store")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Remember records the cut produced for key. Best effort.
func (c *ReplayCache) Remember(ctx context.Context, key string, id uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, replayKeyPrefix+key, id.String(), c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("replay cache write failed")
	}
}
