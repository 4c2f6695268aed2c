package nearbyshops

import (
	"nearby-market/internal/geo"
	"nearby-market/internal/search"
)

type Input struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  float64  `json:"radiusKm,omitempty"`
}

type Output struct {
	Origin   geo.Point           `json:"origin"`
	RadiusKm float64             `json:"radiusKm"`
	Shops    []search.ShopResult `json:"shops"`
	Count    int                 `json:"count"`
}

const inputSchema = `{
	"type": "object",
	"properties": {
		"latitude": {"type": "number", "minimum": -90, "maximum": 90},
		"longitude": {"type": "number", "minimum": -180, "maximum": 180},
		"radiusKm": {"type": "number", "minimum": 0}
	},
	"dependencies": {
		"latitude": ["longitude"],
		"longitude": ["latitude"]
	}
}`
