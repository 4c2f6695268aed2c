package search

import (
	"github.com/shopspring/decimal"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
	"nearby-market/internal/offers"
)

// ProductResult is one product row of a search or shop page.
type ProductResult struct {
	Product     models.Product `json:"product"`
	Shop        models.Shop    `json:"shop"`
	DistanceKm  *float64       `json:"distanceKm,omitempty"`
	AvgRating   float64        `json:"avgRating"`
	ReviewCount int            `json:"reviewCount"`
	Offers      offers.Offers  `json:"offers"`
	Badges      offers.Badges  `json:"badges"`
	StockLabel  string         `json:"stockLabel"`
}

func (r ProductResult) RankStockStatus() models.StockStatus { return r.Product.StockStatus }
func (r ProductResult) RankPrice() decimal.Decimal          { return r.Product.Price }

func newProductResult(p models.Product, s models.Shop, summary models.RatingSummary) ProductResult {
	o := offers.Resolve(p, s)
	return ProductResult{
		Product:     p,
		Shop:        s,
		AvgRating:   summary.AverageRating,
		ReviewCount: summary.ReviewCount,
		Offers:      o,
		Badges:      o.Visible(),
		StockLabel:  offers.StockLabel(p.StockStatus, p.StockQuantity),
	}
}

// ShopResult is a shop with its distance from the searcher.
type ShopResult struct {
	Shop          models.Shop `json:"shop"`
	DistanceKm    float64     `json:"distanceKm"`
	DirectionsURL string      `json:"directionsUrl"`
}

func shopResults(located []geo.Located[models.Shop]) []ShopResult {
	out := make([]ShopResult, 0, len(located))
	for _, l := range located {
		out = append(out, ShopResult{
			Shop:          l.Item,
			DistanceKm:    l.DistanceKm,
			DirectionsURL: l.Item.DirectionsURL(),
		})
	}
	return out
}

// Query is a product search request.
type Query struct {
	Term     string     `json:"query"`
	Origin   *geo.Point `json:"origin,omitempty"`
	RadiusKm float64    `json:"radiusKm,omitempty"`
}

// Results is the answer to a product search.
type Results struct {
	Query    string          `json:"query"`
	Origin   geo.Point       `json:"origin"`
	RadiusKm float64         `json:"radiusKm"`
	Products []ProductResult `json:"products"`

	// TotalProducts counts the products in the area before the result cap.
	TotalProducts int          `json:"totalProducts"`
	Shops         []ShopResult `json:"shops"`
}

// ShopPage is a shop with its full, ranked product list.
type ShopPage struct {
	Shop          models.Shop     `json:"shop"`
	DistanceKm    *float64        `json:"distanceKm,omitempty"`
	DirectionsURL string          `json:"directionsUrl"`
	Products      []ProductResult `json:"products"`
}
