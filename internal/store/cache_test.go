package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-market/internal/common/logger"
	"nearby-market/internal/models"
)

// countingShopStore records how often the active-shop list was loaded.
type countingShopStore struct {
	ShopStore
	shops []models.Shop
	loads int
	err   error
}

func (c *countingShopStore) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	c.loads++
	if c.err != nil {
		return nil, c.err
	}
	return c.shops, nil
}

func (c *countingShopStore) UpdateShopDiscount(ctx context.Context, shopID string, d models.ShopDiscount) error {
	return c.err
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestCachedShopStore_ListActiveShops(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	next := &countingShopStore{shops: []models.Shop{{ID: "shop-1", Name: "Sharma Kirana", IsActive: true}}}
	cache := NewCachedShopStore(next, rdb, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := cache.ListActiveShops(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, next.loads)
	assert.True(t, mr.Exists(ActiveShopsKey))
	assert.Equal(t, time.Minute, mr.TTL(ActiveShopsKey))

	second, err := cache.ListActiveShops(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, 1, next.loads, "second call should be served from redis")

	mr.FastForward(2 * time.Minute)
	_, err = cache.ListActiveShops(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.loads, "expired entry should reload")
}

func TestCachedShopStore_WriteInvalidates(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	next := &countingShopStore{}
	cache := NewCachedShopStore(next, rdb, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	require.NoError(t, mr.Set(ActiveShopsKey, `[]`))
	require.NoError(t, cache.UpdateShopDiscount(ctx, "shop-1", models.ShopDiscount{HasGeneralDiscount: true}))
	assert.False(t, mr.Exists(ActiveShopsKey))
}

func TestCachedShopStore_FailedWriteKeepsEntry(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	next := &countingShopStore{err: ErrNotFound}
	cache := NewCachedShopStore(next, rdb, time.Minute, logger.NewTestLogger(t))

	require.NoError(t, mr.Set(ActiveShopsKey, `[]`))
	err := cache.UpdateShopDiscount(context.Background(), "missing", models.ShopDiscount{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, mr.Exists(ActiveShopsKey))
}

func TestCachedShopStore_CorruptEntryReloads(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	next := &countingShopStore{shops: []models.Shop{{ID: "shop-2"}}}
	cache := NewCachedShopStore(next, rdb, time.Minute, logger.NewTestLogger(t))

	require.NoError(t, mr.Set(ActiveShopsKey, `not json`))
	shops, err := cache.ListActiveShops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shop-2", shops[0].ID)
	assert.Equal(t, 1, next.loads)
}

func TestCachedShopStore_RedisDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingShopStore{shops: []models.Shop{{ID: "shop-3"}}}
	cache := NewCachedShopStore(next, db, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(ActiveShopsKey).SetErr(errors.New("connection refused"))

	shops, err := cache.ListActiveShops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shop-3", shops[0].ID)
	assert.Equal(t, 1, next.loads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedShopStore_StoreErrorNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &countingShopStore{err: errors.New("db down")}
	cache := NewCachedShopStore(next, db, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet(ActiveShopsKey).RedisNil()

	_, err := cache.ListActiveShops(context.Background())
	assert.EqualError(t, err, "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}
