package ranking

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
)

type item struct {
	id     string
	price  decimal.Decimal
	status models.StockStatus
}

func (i item) RankStockStatus() models.StockStatus { return i.status }
func (i item) RankPrice() decimal.Decimal          { return i.price }

func newItem(id string, price int64, status models.StockStatus) item {
	return item{id: id, price: decimal.NewFromInt(price), status: status}
}

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestRankProducts_Scenario(t *testing.T) {
	items := []item{
		newItem("100", 100, models.StockStatusInStock),
		newItem("50", 50, models.StockStatusOutOfStock),
		newItem("80", 80, models.StockStatusLimited),
	}

	RankProducts(items)

	assert.Equal(t, []string{"80", "100", "50"}, ids(items))
}

func TestRankProducts_StableForEqualPrices(t *testing.T) {
	items := []item{
		newItem("a", 10, models.StockStatusInStock),
		newItem("b", 10, models.StockStatusLimited),
		newItem("c", 5, models.StockStatusOutOfStock),
		newItem("d", 10, models.StockStatusInStock),
		newItem("e", 5, models.StockStatusOutOfStock),
	}

	RankProducts(items)

	assert.Equal(t, []string{"a", "b", "d", "c", "e"}, ids(items))
}

func TestRankProducts_DecimalPrices(t *testing.T) {
	items := []item{
		{id: "x", price: decimal.RequireFromString("19.99"), status: models.StockStatusInStock},
		{id: "y", price: decimal.RequireFromString("19.989"), status: models.StockStatusInStock},
	}

	RankProducts(items)

	assert.Equal(t, []string{"y", "x"}, ids(items))
}

func TestRankProducts_Properties(t *testing.T) {
	statuses := []models.StockStatus{
		models.StockStatusInStock,
		models.StockStatusLimited,
		models.StockStatusOutOfStock,
	}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		items := make([]item, rng.Intn(30))
		for i := range items {
			items[i] = newItem("p", int64(rng.Intn(20)), statuses[rng.Intn(len(statuses))])
		}

		RankProducts(items)

		seenOut := false
		for i, it := range items {
			out := it.status == models.StockStatusOutOfStock
			if seenOut {
				assert.True(t, out, "available product after out-of-stock one")
			}
			seenOut = seenOut || out
			if i > 0 && (items[i-1].status == models.StockStatusOutOfStock) == out {
				assert.True(t, items[i-1].price.LessThanOrEqual(it.price), "prices must not decrease within a group")
			}
		}
	}
}

func TestSortByDistance(t *testing.T) {
	located := []geo.Located[string]{
		{Item: "far", DistanceKm: 7.2},
		{Item: "near", DistanceKm: 0.4},
		{Item: "mid-a", DistanceKm: 3},
		{Item: "mid-b", DistanceKm: 3},
	}

	SortByDistance(located)

	got := make([]string, len(located))
	for i, l := range located {
		got[i] = l.Item
	}
	assert.Equal(t, []string{"near", "mid-a", "mid-b", "far"}, got)
}
