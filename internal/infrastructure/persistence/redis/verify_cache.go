package redis

import (
	"context"
	"errors"
	"time"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFIED-STUDENT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// VerifyCache implements query.StudentCache on top of Redis.
// It holds display projections only; the activity gate is never decided
// from here. Cache failures degrade to misses so verification always
// falls back to the database.
type VerifyCache struct {
	cache *Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewVerifyCache creates a verified-student cache with the default TTL.
func NewVerifyCache(cache *Cache, log *logger.Logger) *VerifyCache {
	return &VerifyCache{
		cache: cache,
		ttl:   TTLVerifiedStudent,
		log:   log.With(logger.Component("verify_cache")),
	}
}

// GetVerified returns a cached projection, or false on miss.
func (c *VerifyCache) GetVerified(ctx context.Context, telegramID int64) (*query.VerifiedStudent, bool) {
	var v query.VerifiedStudent

	err := c.cache.Get(ctx, VerifiedKey(telegramID), &v)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("verified cache read failed", logger.TelegramID(telegramID), logger.Err(err))
		}
		return nil, false
	}

	return &v, true
}

// SetVerified stores a projection with the cache TTL.
func (c *VerifyCache) SetVerified(ctx context.Context, telegramID int64, v *query.VerifiedStudent) {
	if v == nil {
		return
	}

	if err := c.cache.Set(ctx, VerifiedKey(telegramID), v, c.ttl); err != nil {
		c.log.Warn("verified cache write failed", logger.TelegramID(telegramID), logger.Err(err))
	}
}

// Invalidate drops the cached projection for a Telegram account.
func (c *VerifyCache) Invalidate(ctx context.Context, telegramID int64) {
	if err := c.cache.Delete(ctx, VerifiedKey(telegramID)); err != nil {
		c.log.Warn("verified cache invalidation failed", logger.TelegramID(telegramID), logger.Err(err))
	}
}
