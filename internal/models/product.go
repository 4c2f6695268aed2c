// internal/models/product.go
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"nearby-market/internal/geo"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLimited    StockStatus = "limited"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockStatusInStock, StockStatusLimited, StockStatusOutOfStock:
		return true
	}
	return false
}

// Available reports whether the product can currently be bought.
func (s StockStatus) Available() bool {
	return s != StockStatusOutOfStock
}

type Product struct {
	ID          string `json:"id"`
	ShopID      string `json:"shopId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`

	Price          decimal.Decimal     `json:"price"`
	OriginalPrice  decimal.NullDecimal `json:"originalPrice"`
	IsOnSale       bool                `json:"isOnSale"`
	SalePercentage int                 `json:"salePercentage"`
	ShowSaleAlert  bool                `json:"showSaleAlert"`

	StockStatus   StockStatus `json:"stockStatus"`
	StockQuantity *int        `json:"stockQuantity,omitempty"`
	RestockDate   *time.Time  `json:"restockDate,omitempty"`

	SpecialOfferDescription string `json:"specialOfferDescription,omitempty"`
	HasSpecialOffer         bool   `json:"hasSpecialOffer"`
	UseShopDiscount         bool   `json:"useShopDiscount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductWithShop is a product joined with its owning shop.
type ProductWithShop struct {
	Product
	Shop Shop `json:"shop"`
}

func (p ProductWithShop) Location() geo.Point {
	return p.Shop.Location()
}
