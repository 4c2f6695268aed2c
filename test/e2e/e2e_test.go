// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-market/internal/catalog"
	"nearby-market/internal/changefeed"
	"nearby-market/internal/common/config"
	"nearby-market/internal/common/database"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/geo"
	"nearby-market/internal/reviews"
	"nearby-market/internal/search"
	"nearby-market/internal/store"

	deleteproduct "nearby-market/internal/workers/catalog/delete-product"
	saveproduct "nearby-market/internal/workers/catalog/save-product"
	saveshop "nearby-market/internal/workers/catalog/save-shop"
	updateshopdiscount "nearby-market/internal/workers/catalog/update-shop-discount"
	deletereview "nearby-market/internal/workers/reviews/delete-review"
	listreviews "nearby-market/internal/workers/reviews/list-reviews"
	submitreview "nearby-market/internal/workers/reviews/submit-review"
	nearbyshops "nearby-market/internal/workers/search/nearby-shops"
	searchproducts "nearby-market/internal/workers/search/search-products"
	shopdetail "nearby-market/internal/workers/search/shop-detail"
)

// env holds the wired handlers, backed by the Postgres and Redis from config.
type env struct {
	saveShop     *saveshop.Handler
	discount     *updateshopdiscount.Handler
	saveProduct  *saveproduct.Handler
	deleteProd   *deleteproduct.Handler
	submitReview *submitreview.Handler
	deleteReview *deletereview.Handler
	listReviews  *listreviews.Handler
	search       *searchproducts.Handler
	nearby       *nearbyshops.Handler
	detail       *shopdetail.Handler
}

func setup(t *testing.T) *env {
	t.Helper()
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 to run against real services")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	require.NoError(t, pg.EnsureSchema(ctx))
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	st := store.WithShopCache(store.NewPostgresStore(pg.GetDB()), rdb.GetClient(), time.Minute, log)
	pub := changefeed.NewRedisFeed(rdb.GetClient(), log)

	searchSvc := search.NewService(st, nil, search.Options{
		Bounds:        geo.DefaultRadiusBounds,
		DefaultOrigin: geo.Point{Lat: cfg.Search.DefaultLatitude, Lng: cfg.Search.DefaultLongitude},
		MaxResults:    cfg.Search.MaxProductResults,
	}, nil, log)
	catalogSvc := catalog.NewService(catalog.Deps{Store: st, Publisher: pub, Logger: log})
	reviewSvc := reviews.NewService(st, pub, log)

	e := &env{}
	e.saveShop, err = saveshop.NewHandler(saveshop.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
	require.NoError(t, err)
	e.discount, err = updateshopdiscount.NewHandler(updateshopdiscount.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
	require.NoError(t, err)
	e.saveProduct, err = saveproduct.NewHandler(saveproduct.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
	require.NoError(t, err)
	e.deleteProd, err = deleteproduct.NewHandler(deleteproduct.HandlerOptions{AppConfig: cfg, Catalog: catalogSvc, Logger: log})
	require.NoError(t, err)
	e.submitReview, err = submitreview.NewHandler(submitreview.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
	require.NoError(t, err)
	e.deleteReview, err = deletereview.NewHandler(deletereview.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
	require.NoError(t, err)
	e.listReviews, err = listreviews.NewHandler(listreviews.HandlerOptions{AppConfig: cfg, Reviews: reviewSvc, Logger: log})
	require.NoError(t, err)
	e.search, err = searchproducts.NewHandler(searchproducts.HandlerOptions{AppConfig: cfg, Search: searchSvc, Logger: log})
	require.NoError(t, err)
	e.nearby, err = nearbyshops.NewHandler(nearbyshops.HandlerOptions{AppConfig: cfg, Search: searchSvc, Logger: log})
	require.NoError(t, err)
	e.detail, err = shopdetail.NewHandler(shopdetail.HandlerOptions{AppConfig: cfg, Search: searchSvc, Logger: log})
	require.NoError(t, err)
	return e
}

func TestMarketplaceFlow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	lat, lng := 28.6304, 77.2177
	productName := "e2e-kettle-" + uuid.NewString()[:8]

	shopOut, err := e.saveShop.Execute(ctx, &saveshop.Input{
		UserID:    owner,
		Name:      "E2E Appliances",
		OwnerName: "Test Owner",
		Phone:     "+91 98100 00000",
		Address:   "Connaught Place, New Delhi",
		Latitude:  lat,
		Longitude: lng,
		Category:  "home_appliances",
	})
	require.NoError(t, err)
	require.True(t, shopOut.Created)
	shopID := shopOut.ShopID

	_, err = e.discount.Execute(ctx, &updateshopdiscount.Input{
		UserID:                     owner,
		GeneralDiscountDescription: "10% off everything",
		HasGeneralDiscount:         true,
		ApplyDiscountToAll:         true,
	})
	require.NoError(t, err)

	qty := 3
	prodOut, err := e.saveProduct.Execute(ctx, &saveproduct.Input{
		UserID:        owner,
		Name:          productName,
		Price:         decimal.RequireFromString("1499.00"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("1999.00")),
		StockStatus:   "limited",
		StockQuantity: &qty,
	})
	require.NoError(t, err)
	require.True(t, prodOut.Created)
	productID := prodOut.ProductID
	t.Cleanup(func() {
		e.deleteProd.Execute(context.Background(), &deleteproduct.Input{UserID: owner, ProductID: productID})
	})

	t.Run("search finds the product", func(t *testing.T) {
		out, err := e.search.Execute(ctx, &searchproducts.Input{Query: productName, Latitude: &lat, Longitude: &lng, RadiusKm: 2})
		require.NoError(t, err)
		require.Len(t, out.Products, 1)
		got := out.Products[0]
		assert.Equal(t, productID, got.Product.ID)
		assert.True(t, got.Badges.ShopDiscount)
		require.NotNil(t, got.DistanceKm)
		assert.InDelta(t, 0, *got.DistanceKm, 0.01)
	})

	t.Run("nearby shops include the shop", func(t *testing.T) {
		out, err := e.nearby.Execute(ctx, &nearbyshops.Input{Latitude: &lat, Longitude: &lng, RadiusKm: 1})
		require.NoError(t, err)
		var found bool
		for _, s := range out.Shops {
			found = found || s.Shop.ID == shopID
		}
		assert.True(t, found)
	})

	t.Run("reviews update the summary", func(t *testing.T) {
		_, err := e.submitReview.Execute(ctx, &submitreview.Input{ProductID: productID, UserID: "shopper-1", UserName: "Asha", Rating: 5})
		require.NoError(t, err)
		out, err := e.submitReview.Execute(ctx, &submitreview.Input{ProductID: productID, UserID: "shopper-2", Rating: 2, Comment: "  ok  "})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Summary.ReviewCount)
		assert.InDelta(t, 3.5, out.Summary.AverageRating, 0.001)

		list, err := e.listReviews.Execute(ctx, &listreviews.Input{ProductID: productID})
		require.NoError(t, err)
		require.Len(t, list.Reviews, 2)

		del, err := e.deleteReview.Execute(ctx, &deletereview.Input{ProductID: productID, UserID: "shopper-2"})
		require.NoError(t, err)
		assert.Equal(t, 1, del.Summary.ReviewCount)
	})

	t.Run("shop page lists the product", func(t *testing.T) {
		out, err := e.detail.Execute(ctx, &shopdetail.Input{ShopID: shopID, Latitude: &lat, Longitude: &lng})
		require.NoError(t, err)
		assert.Equal(t, 1, out.ProductCount)
		assert.Equal(t, 5.0, out.Products[0].AvgRating)
	})

	t.Run("delete removes the product", func(t *testing.T) {
		out, err := e.deleteProd.Execute(ctx, &deleteproduct.Input{UserID: owner, ProductID: productID})
		require.NoError(t, err)
		assert.True(t, out.Deleted)

		res, err := e.search.Execute(ctx, &searchproducts.Input{Query: productName, Latitude: &lat, Longitude: &lng})
		require.NoError(t, err)
		assert.Empty(t, res.Products)
	})
}
