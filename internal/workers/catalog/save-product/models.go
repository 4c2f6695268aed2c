package saveproduct

import (
	"github.com/shopspring/decimal"

	"nearby-market/internal/models"
)

type Input struct {
	UserID string `json:"userId"`
	// ProductID is empty when adding a product.
	ProductID   string `json:"productId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`

	Price          decimal.Decimal     `json:"price"`
	OriginalPrice  decimal.NullDecimal `json:"originalPrice"`
	IsOnSale       bool                `json:"isOnSale"`
	SalePercentage int                 `json:"salePercentage"`
	ShowSaleAlert  bool                `json:"showSaleAlert"`

	StockStatus   string `json:"stockStatus"`
	StockQuantity *int   `json:"stockQuantity,omitempty"`
	// RestockDate is a calendar date (2006-01-02) or an RFC 3339 timestamp.
	RestockDate string `json:"restockDate,omitempty"`

	SpecialOfferDescription string `json:"specialOfferDescription,omitempty"`
	HasSpecialOffer         bool   `json:"hasSpecialOffer"`
	UseShopDiscount         bool   `json:"useShopDiscount"`
}

type Output struct {
	Product         models.Product `json:"product"`
	ProductID       string         `json:"productId"`
	Created         bool           `json:"created"`
	StockLabel      string         `json:"stockLabel"`
	RestockNotified bool           `json:"restockNotified"`
}

const inputSchema = `{
	"type": "object",
	"required": ["userId", "name", "price", "stockStatus"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"productId": {"type": "string"},
		"name": {"type": "string"},
		"description": {"type": "string"},
		"category": {"type": "string"},
		"imageUrl": {"type": "string"},
		"price": {"type": ["number", "string"]},
		"originalPrice": {"type": ["number", "string", "null"]},
		"isOnSale": {"type": "boolean"},
		"salePercentage": {"type": "integer"},
		"showSaleAlert": {"type": "boolean"},
		"stockStatus": {"type": "string"},
		"stockQuantity": {"type": ["integer", "null"]},
		"restockDate": {"type": "string"},
		"specialOfferDescription": {"type": "string"},
		"hasSpecialOffer": {"type": "boolean"},
		"useShopDiscount": {"type": "boolean"}
	}
}`
