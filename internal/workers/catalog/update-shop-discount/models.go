package updateshopdiscount

import "nearby-market/internal/models"

type Input struct {
	UserID                     string `json:"userId"`
	ShopID                     string `json:"shopId,omitempty"`
	GeneralDiscountDescription string `json:"generalDiscountDescription"`
	HasGeneralDiscount         bool   `json:"hasGeneralDiscount"`
	ApplyDiscountToAll         bool   `json:"applyDiscountToAll"`
}

type Output struct {
	ShopID   string              `json:"shopId"`
	Discount models.ShopDiscount `json:"discount"`
}

const inputSchema = `{
	"type": "object",
	"required": ["userId", "hasGeneralDiscount"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"shopId": {"type": "string"},
		"generalDiscountDescription": {"type": "string", "maxLength": 500},
		"hasGeneralDiscount": {"type": "boolean"},
		"applyDiscountToAll": {"type": "boolean"}
	}
}`
