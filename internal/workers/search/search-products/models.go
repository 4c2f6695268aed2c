package searchproducts

import (
	"nearby-market/internal/search"
)

type Input struct {
	Query     string   `json:"query"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RadiusKm  float64  `json:"radiusKm,omitempty"`

	// Live keeps the search running and publishes refreshed results to the
	// process instance waiting on CorrelationKey.
	Live           bool   `json:"live,omitempty"`
	CorrelationKey string `json:"correlationKey,omitempty"`
}

type Output struct {
	*search.Results
	Live bool `json:"live"`
}

const inputSchema = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string"},
		"latitude": {"type": "number", "minimum": -90, "maximum": 90},
		"longitude": {"type": "number", "minimum": -180, "maximum": 180},
		"radiusKm": {"type": "number", "minimum": 0},
		"live": {"type": "boolean"},
		"correlationKey": {"type": "string"}
	}
}`
