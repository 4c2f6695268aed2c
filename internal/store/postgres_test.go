package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
)

var fixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

const (
	shopA       = "0b6f3c1e-5a2d-4e8b-9c71-2f4d6a8b0c11"
	shopMissing = "0b6f3c1e-5a2d-4e8b-9c71-2f4d6a8b0c99"
	prodA       = "7d2e9f40-1c3b-4a5e-8f60-9b1a2c3d4e01"
	prodB       = "7d2e9f40-1c3b-4a5e-8f60-9b1a2c3d4e02"
	prodMissing = "7d2e9f40-1c3b-4a5e-8f60-9b1a2c3d4e09"
)

var shopCols = []string{
	"id", "owner_id", "name", "owner_name", "phone", "address", "latitude", "longitude", "category",
	"is_active", "general_discount_description", "has_general_discount", "apply_discount_to_all",
	"created_at", "updated_at",
}

var productCols = []string{
	"id", "shop_id", "name", "description", "category", "image_url", "price", "original_price",
	"is_on_sale", "sale_percentage", "show_sale_alert", "stock_status", "stock_quantity", "restock_date",
	"special_offer_description", "has_special_offer", "use_shop_discount", "created_at", "updated_at",
}

func shopRow(id, name string) []driver.Value {
	return []driver.Value{
		id, "owner-" + id, name, "Ravi", "+91 98100 00000", "Connaught Place", 28.6315, 77.2167, "grocery",
		true, "10% off above 500", true, false, fixedTime, fixedTime,
	}
}

func productRow(id, price string, status string, qty interface{}) []driver.Value {
	return []driver.Value{
		id, shopA, "Basmati Rice", "5kg bag", "staples", "", price, nil,
		false, 0, false, status, qty, nil,
		"", false, true, fixedTime, fixedTime,
	}
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStore(db), mock, func() { db.Close() }
}

func TestGetShop(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(mock sqlmock.Sqlmock)
		expectErr   error
		expectShop  bool
		expectedCat models.ShopCategory
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM shops WHERE id = \$1`).
					WithArgs(shopA).
					WillReturnRows(sqlmock.NewRows(shopCols).AddRow(shopRow(shopA, "Sharma Kirana")...))
			},
			expectShop:  true,
			expectedCat: models.ShopCategoryGrocery,
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM shops WHERE id = \$1`).
					WithArgs(shopMissing).
					WillReturnError(sql.ErrNoRows)
			},
			expectErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, done := newMockStore(t)
			defer done()
			tt.setup(mock)

			id := shopA
			if tt.expectErr != nil {
				id = shopMissing
			}
			shop, err := s.GetShop(context.Background(), id)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, shop)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Sharma Kirana", shop.Name)
				assert.Equal(t, tt.expectedCat, shop.Category)
				assert.True(t, shop.HasGeneralDiscount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSearchActiveShops_EscapesWildcards(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`SELECT .* FROM shops WHERE is_active = TRUE AND name ILIKE \$1`).
		WithArgs(`%50\%_off%`).
		WillReturnRows(sqlmock.NewRows(shopCols))

	shops, err := s.SearchActiveShops(context.Background(), "50%_off")
	require.NoError(t, err)
	assert.NotNil(t, shops)
	assert.Empty(t, shops)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%rice%", likePattern("rice"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\d%`, likePattern(`c:\d`))
}

func TestSearchProducts(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	cols := append(append([]string{}, productCols...), shopCols...)
	row := append(productRow(prodA, "120.50", "limited", int64(3)), shopRow(shopA, "Sharma Kirana")...)

	box := geo.BoundingBox{MinLat: 28.5, MaxLat: 28.7, MinLng: 77.1, MaxLng: 77.3}
	mock.ExpectQuery(`SELECT p\.id, .* FROM products p JOIN shops s ON s\.id = p\.shop_id WHERE s\.is_active = TRUE AND p\.name ILIKE \$1 AND s\.latitude BETWEEN \$2 AND \$3 AND s\.longitude BETWEEN \$4 AND \$5 ORDER BY p\.name$`).
		WithArgs("%rice%", 28.5, 28.7, 77.1, 77.3).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	results, err := s.SearchProducts(context.Background(), "rice", box)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, prodA, got.ID)
	assert.True(t, decimal.RequireFromString("120.5").Equal(got.Price))
	assert.False(t, got.OriginalPrice.Valid)
	assert.Equal(t, models.StockStatusLimited, got.StockStatus)
	require.NotNil(t, got.StockQuantity)
	assert.Equal(t, 3, *got.StockQuantity)
	assert.Nil(t, got.RestockDate)
	assert.Equal(t, "Sharma Kirana", got.Shop.Name)
	assert.InDelta(t, 28.6315, got.Location().Lat, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductsByIDs_Empty(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	results, err := s.GetProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	qty := 4
	p := &models.Product{
		ID:            prodB,
		ShopID:        shopA,
		Name:          "Atta 10kg",
		Price:         decimal.RequireFromString("450"),
		StockStatus:   models.StockStatusLimited,
		StockQuantity: &qty,
	}

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs(prodB, shopA, "Atta 10kg", "", "", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			false, 0, false, "limited", int64(4), nil,
			"", false, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedTime, fixedTime))

	require.NoError(t, s.CreateProduct(context.Background(), p))
	assert.Equal(t, fixedTime, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()
		mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).WithArgs(prodA).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, s.DeleteProduct(context.Background(), prodA))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()
		mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).WithArgs(prodMissing).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, s.DeleteProduct(context.Background(), prodMissing), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateShopDiscount(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(`UPDATE shops SET`).
		WithArgs(shopA, "Flat 5% off", true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateShopDiscount(context.Background(), shopA, models.ShopDiscount{
		Description:        "Flat 5% off",
		HasGeneralDiscount: true,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviews(t *testing.T) {
	reviewCols := []string{"id", "product_id", "user_id", "user_name", "rating", "comment", "created_at", "updated_at"}

	t.Run("list newest first with null comment", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()

		mock.ExpectQuery(`SELECT .* FROM reviews WHERE product_id = \$1 ORDER BY created_at DESC`).
			WithArgs(prodA).
			WillReturnRows(sqlmock.NewRows(reviewCols).
				AddRow("r-2", prodA, "u-2", "Meera", 5, "Fresh stock", fixedTime.Add(time.Hour), fixedTime).
				AddRow("r-1", prodA, "u-1", "", 3, nil, fixedTime, fixedTime))

		reviews, err := s.ListReviews(context.Background(), prodA)
		require.NoError(t, err)
		require.Len(t, reviews, 2)
		assert.Equal(t, "r-2", reviews[0].ID)
		assert.Equal(t, "", reviews[1].Comment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find missing", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()

		mock.ExpectQuery(`SELECT .* FROM reviews WHERE product_id = \$1 AND user_id = \$2`).
			WithArgs(prodA, "u-3").
			WillReturnError(sql.ErrNoRows)

		_, err := s.FindReview(context.Background(), prodA, "u-3")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert stores blank comment as null", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()

		mock.ExpectQuery(`INSERT INTO reviews`).
			WithArgs("r-3", prodA, "u-3", "Kabir", 4, nil).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(fixedTime, fixedTime))

		err := s.InsertReview(context.Background(), &models.Review{
			ID: "r-3", ProductID: prodA, UserID: "u-3", UserName: "Kabir", Rating: 4,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rating summaries in one query", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()

		mock.ExpectQuery(`SELECT product_id, AVG\(rating\)::float8, COUNT\(\*\) FROM reviews WHERE product_id = ANY\(\$1\) GROUP BY product_id`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "avg", "count"}).
				AddRow(prodA, 4.5, 2))

		summaries, err := s.RatingSummaries(context.Background(), []string{prodA, prodB})
		require.NoError(t, err)
		assert.Len(t, summaries, 1)
		assert.InDelta(t, 4.5, summaries[prodA].AverageRating, 1e-9)
		assert.Equal(t, 2, summaries[prodA].ReviewCount)
		_, ok := summaries[prodB]
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()
	ctx := context.Background()

	shop, err := s.GetShop(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, shop)

	_, err = s.GetProduct(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, "42"), ErrNotFound)
	assert.ErrorIs(t, s.UpdateShopDiscount(ctx, "shop-1", models.ShopDiscount{}), ErrNotFound)

	_, err = s.FindReview(ctx, "rice'; --", "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteReview(ctx, "rice", "u-1"), ErrNotFound)

	reviews, err := s.ListReviews(ctx, "rice")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)

	products, err := s.ListProductsByShop(ctx, "shop-1")
	require.NoError(t, err)
	assert.Empty(t, products)

	items, err := s.GetProductsByIDs(ctx, []string{"p-1", ""})
	require.NoError(t, err)
	assert.Empty(t, items)

	summaries, err := s.RatingSummaries(ctx, []string{"p-1"})
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// none of the above reach the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingSummaries_SkipsMalformedIDs(t *testing.T) {
	s, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`FROM reviews WHERE product_id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "avg", "count"}).AddRow(prodA, 4.0, 1))

	summaries, err := s.RatingSummaries(context.Background(), []string{"bogus", prodA})
	require.NoError(t, err)
	assert.Equal(t, 1, summaries[prodA].ReviewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidTextRepresentationIsNotFound(t *testing.T) {
	castErr := &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}

	t.Run("get shop", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()
		mock.ExpectQuery(`SELECT .* FROM shops WHERE id = \$1`).WithArgs(shopA).WillReturnError(castErr)

		_, err := s.GetShop(context.Background(), shopA)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update product", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()
		mock.ExpectQuery(`UPDATE products SET`).WillReturnError(castErr)

		err := s.UpdateProduct(context.Background(), &models.Product{ID: prodA, Price: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other postgres errors pass through", func(t *testing.T) {
		s, mock, done := newMockStore(t)
		defer done()
		mock.ExpectQuery(`SELECT .* FROM shops WHERE id = \$1`).WithArgs(shopA).
			WillReturnError(&pq.Error{Code: "57014", Message: "canceling statement"})

		_, err := s.GetShop(context.Background(), shopA)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
