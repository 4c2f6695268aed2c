// Package offers derives the promotion badges shown next to a product.
package offers

import (
	"fmt"
	"strings"

	"nearby-market/internal/models"
)

// Offers holds the resolved promotion state of one product.
type Offers struct {
	HasShopDiscount         bool   `json:"hasShopDiscount"`
	ShopDiscountDescription string `json:"shopDiscountDescription,omitempty"`
	HasSpecialOffer         bool   `json:"hasSpecialOffer"`
	SpecialOfferDescription string `json:"specialOfferDescription,omitempty"`
	ShowSaleBadge           bool   `json:"showSaleBadge"`
	SalePercentage          int    `json:"salePercentage,omitempty"`
	OutOfStock              bool   `json:"outOfStock"`
}

// Badges is what a presentation surface may actually render.
type Badges struct {
	ShopDiscount    bool `json:"shopDiscount"`
	SpecialOffer    bool `json:"specialOffer"`
	SaleBadge       bool `json:"saleBadge"`
	ShopDiscountTag bool `json:"shopDiscountTag"`
}

// HasShopDiscount reports whether the shop-wide discount covers the product.
func HasShopDiscount(p models.Product, s models.Shop) bool {
	return s.HasGeneralDiscount && (s.ApplyDiscountToAll || p.UseShopDiscount)
}

// Resolve computes the offer state of p sold by s.
func Resolve(p models.Product, s models.Shop) Offers {
	o := Offers{
		HasShopDiscount: HasShopDiscount(p, s),
		HasSpecialOffer: p.HasSpecialOffer && strings.TrimSpace(p.SpecialOfferDescription) != "",
		ShowSaleBadge:   p.ShowSaleAlert && p.IsOnSale,
		OutOfStock:      p.StockStatus == models.StockStatusOutOfStock,
	}
	if o.HasShopDiscount {
		o.ShopDiscountDescription = s.GeneralDiscountDescription
	}
	if o.HasSpecialOffer {
		o.SpecialOfferDescription = p.SpecialOfferDescription
	}
	if o.ShowSaleBadge {
		o.SalePercentage = p.SalePercentage
	}
	return o
}

// Visible returns the badges to render. Nothing is shown for out-of-stock products.
func (o Offers) Visible() Badges {
	if o.OutOfStock {
		return Badges{}
	}
	return Badges{
		ShopDiscount:    o.HasShopDiscount && o.ShopDiscountDescription != "",
		SpecialOffer:    o.HasSpecialOffer,
		SaleBadge:       o.ShowSaleBadge,
		ShopDiscountTag: o.HasShopDiscount,
	}
}

// StockLabel is the badge text for a stock status.
func StockLabel(status models.StockStatus, quantity *int) string {
	switch status {
	case models.StockStatusInStock:
		return "In Stock"
	case models.StockStatusLimited:
		if quantity != nil && *quantity > 0 {
			return fmt.Sprintf("Only %d left", *quantity)
		}
		return "Limited Stock"
	case models.StockStatusOutOfStock:
		return "Out of Stock"
	}
	return ""
}
