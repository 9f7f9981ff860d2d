package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ytget/ytgate/internal/log"
	"github.com/ytget/ytgate/internal/media"
)

const redisKeyPrefix = "ytgate:info:"

// Redis is a Store backed by a redis instance; expiry is delegated to redis
// key TTLs. Useful when several gateway replicas share one cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedis creates a redis-backed store. The client stays owned by the
// caller of Close.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, logger: log.WithComponent("cache")}
}

// Get implements Store. Redis errors degrade to cache misses; the extractor
// remains the source of truth.
func (r *Redis) Get(ctx context.Context, key string) (*media.Info, bool) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn().Err(err).Msg("redis get failed")
		}
		return nil, false
	}
	var info media.Info
	if err := json.Unmarshal(val, &info); err != nil {
		r.logger.Warn().Err(err).Msg("corrupt cache entry dropped")
		r.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &info, true
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, info *media.Info) {
	val, err := json.Marshal(info)
	if err != nil {
		r.logger.Warn().Err(err).Msg("marshal cache entry failed")
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, val, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("redis set failed")
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
