package shopdetail

import "nearby-market/internal/search"

type Input struct {
	ShopID    string   `json:"shopId"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Output struct {
	*search.ShopPage
	ProductCount int `json:"productCount"`
}

const inputSchema = `{
	"type": "object",
	"required": ["shopId"],
	"properties": {
		"shopId": {"type": "string", "minLength": 1},
		"latitude": {"type": "number"},
		"longitude": {"type": "number"}
	}
}`
