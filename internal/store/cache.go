package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/email-tracking-service/internal/monitoring"
)

type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// recordCache holds tenants and emails. Both are immutable once written,
// so entries are never invalidated, only expired.
type recordCache struct {
	client RedisClient
	ttl    time.Duration
}

func tenantCacheKey(id string) string {
	return fmt.Sprintf("tenant:%s", id)
}

// the email id is the last segment and numeric, so keys stay unique for
// any tenant id
func emailCacheKey(tenantID string, emailID int64) string {
	return fmt.Sprintf("email:%s:%d", tenantID, emailID)
}

func (c *recordCache) get(ctx context.Context, kind, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		monitoring.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(cached), dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		monitoring.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	monitoring.CacheLookups.WithLabelValues(kind, "hit").Inc()
	return true
}

func (c *recordCache) set(ctx context.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.SetEx(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
