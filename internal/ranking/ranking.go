// Package ranking orders search results for display.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
)

// Rankable exposes the two keys products are ordered by.
type Rankable interface {
	RankStockStatus() models.StockStatus
	RankPrice() decimal.Decimal
}

// RankProducts sorts in place: available products first, out-of-stock last,
// ascending price inside each group. Ties keep their input order.
func RankProducts[T Rankable](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		iOut := items[i].RankStockStatus() == models.StockStatusOutOfStock
		jOut := items[j].RankStockStatus() == models.StockStatusOutOfStock
		if iOut != jOut {
			return !iOut
		}
		return items[i].RankPrice().LessThan(items[j].RankPrice())
	})
}

// SortByDistance sorts located items nearest first. Ties keep their input order.
func SortByDistance[T any](items []geo.Located[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistanceKm < items[j].DistanceKm
	})
}
