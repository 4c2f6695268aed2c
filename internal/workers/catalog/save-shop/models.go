package saveshop

import "nearby-market/internal/models"

type Input struct {
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	OwnerName string  `json:"ownerName"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

type Output struct {
	Shop    models.Shop `json:"shop"`
	ShopID  string      `json:"shopId"`
	Created bool        `json:"created"`
}

const inputSchema = `{
	"type": "object",
	"required": ["userId", "name", "ownerName", "phone", "address", "latitude", "longitude", "category"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"name": {"type": "string"},
		"ownerName": {"type": "string"},
		"phone": {"type": "string"},
		"address": {"type": "string"},
		"latitude": {"type": "number"},
		"longitude": {"type": "number"},
		"category": {"type": "string"},
		"isActive": {"type": "boolean"}
	}
}`
