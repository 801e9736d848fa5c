package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "city-info:relay:"

// store is the subset of the Redis client the cache uses.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedRelay serves repeated relay requests from Redis. Cache failures fall
// through to the wrapped relay.
type CachedRelay struct {
	inner   domain.Relay
	store   store
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedRelay wraps inner with a Redis cache whose entries expire after ttl.
func NewCachedRelay(inner domain.Relay, rdb redis.Cmdable, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedRelay {
	return &CachedRelay{
		inner:   inner,
		store:   rdb,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedRelay) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)

	body, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.metrics.RelayCache.WithLabelValues("hit").Inc()
		return body, nil
	case errors.Is(err, redis.Nil):
		c.metrics.RelayCache.WithLabelValues("miss").Inc()
	default:
		c.metrics.RelayCache.WithLabelValues("error").Inc()
		c.logger.Warn("relay cache read failed", "error", err)
	}

	body, err = c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.logger.Warn("relay cache write failed", "error", err)
	}
	return body, nil
}

// cacheKey hashes the URL so credentials in query strings never reach Redis.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
