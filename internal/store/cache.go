package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/metrics"
	"nearby-market/internal/models"
)

// ActiveShopsKey holds the JSON-encoded list of active shops.
const ActiveShopsKey = "shops:active"

// CachedShopStore serves ListActiveShops from Redis and drops the entry on every
// shop write. Redis failures fall through to the wrapped store.
type CachedShopStore struct {
	ShopStore
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedShopStore(next ShopStore, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedShopStore {
	return &CachedShopStore{
		ShopStore: next,
		redis:     rdb,
		ttl:       ttl,
		logger:    log,
	}
}

func (c *CachedShopStore) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	val, err := c.redis.Get(ctx, ActiveShopsKey).Result()
	switch {
	case err == nil:
		var shops []models.Shop
		if jsonErr := json.Unmarshal([]byte(val), &shops); jsonErr == nil {
			metrics.ShopCacheRequests.WithLabelValues(metrics.CacheHit).Inc()
			return shops, nil
		}
		c.logger.Warn("discarding undecodable shop cache entry", map[string]interface{}{"key": ActiveShopsKey})
		metrics.ShopCacheRequests.WithLabelValues(metrics.CacheError).Inc()
	case errors.Is(err, redis.Nil):
		metrics.ShopCacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		c.logger.Warn("shop cache read failed", map[string]interface{}{"error": err})
		metrics.ShopCacheRequests.WithLabelValues(metrics.CacheError).Inc()
	}

	shops, err := c.ShopStore.ListActiveShops(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(shops); err == nil {
		if err := c.redis.Set(ctx, ActiveShopsKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("shop cache write failed", map[string]interface{}{"error": err})
		}
	}
	return shops, nil
}

func (c *CachedShopStore) CreateShop(ctx context.Context, shop *models.Shop) error {
	if err := c.ShopStore.CreateShop(ctx, shop); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedShopStore) UpdateShop(ctx context.Context, shop *models.Shop) error {
	if err := c.ShopStore.UpdateShop(ctx, shop); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *CachedShopStore) UpdateShopDiscount(ctx context.Context, shopID string, d models.ShopDiscount) error {
	if err := c.ShopStore.UpdateShopDiscount(ctx, shopID, d); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached active-shop list.
func (c *CachedShopStore) Invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, ActiveShopsKey).Err(); err != nil {
		c.logger.Warn("shop cache invalidation failed", map[string]interface{}{"error": err})
	}
}

// CachedStore is a Store whose shop reads go through CachedShopStore.
type CachedStore struct {
	*CachedShopStore
	ProductStore
	ReviewStore
}

// WithShopCache wraps s so its shop methods use the Redis cache.
func WithShopCache(s Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		CachedShopStore: NewCachedShopStore(s, rdb, ttl, log),
		ProductStore:    s,
		ReviewStore:     s,
	}
}

var _ Store = (*CachedStore)(nil)
