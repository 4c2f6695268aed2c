// internal/models/shop.go
package models

import (
	"fmt"
	"time"

	"nearby-market/internal/geo"
)

type ShopCategory string

const (
	ShopCategoryGrocery        ShopCategory = "grocery"
	ShopCategoryElectronics    ShopCategory = "electronics"
	ShopCategoryClothing       ShopCategory = "clothing"
	ShopCategoryPharmacy       ShopCategory = "pharmacy"
	ShopCategoryHardware       ShopCategory = "hardware"
	ShopCategorySports         ShopCategory = "sports"
	ShopCategoryBooks          ShopCategory = "books"
	ShopCategoryHomeAppliances ShopCategory = "home_appliances"
	ShopCategoryOther          ShopCategory = "other"
)

// ShopCategories lists every category in display order.
var ShopCategories = []ShopCategory{
	ShopCategoryGrocery,
	ShopCategoryElectronics,
	ShopCategoryClothing,
	ShopCategoryPharmacy,
	ShopCategoryHardware,
	ShopCategorySports,
	ShopCategoryBooks,
	ShopCategoryHomeAppliances,
	ShopCategoryOther,
}

func (c ShopCategory) Valid() bool {
	for _, known := range ShopCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Shop is a storefront owned by a single shopkeeper.
type Shop struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Name      string       `json:"name"`
	OwnerName string       `json:"ownerName"`
	Phone     string       `json:"phone"`
	Address   string       `json:"address"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Category  ShopCategory `json:"category"`
	IsActive  bool         `json:"isActive"`

	GeneralDiscountDescription string `json:"generalDiscountDescription,omitempty"`
	HasGeneralDiscount         bool   `json:"hasGeneralDiscount"`
	ApplyDiscountToAll         bool   `json:"applyDiscountToAll"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Shop) Location() geo.Point {
	return geo.Point{Lat: s.Latitude, Lng: s.Longitude}
}

// DirectionsURL returns a Google Maps directions link to the shop.
func (s Shop) DirectionsURL() string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%v,%v", s.Latitude, s.Longitude)
}

// ShopDiscount is the shop-wide promotion block edited from the dashboard.
type ShopDiscount struct {
	Description        string `json:"generalDiscountDescription"`
	HasGeneralDiscount bool   `json:"hasGeneralDiscount"`
	ApplyDiscountToAll bool   `json:"applyDiscountToAll"`
}
