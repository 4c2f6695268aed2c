package submitreview

import "nearby-market/internal/models"

type Input struct {
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

type Output struct {
	Review  models.Review        `json:"review"`
	Created bool                 `json:"created"`
	Summary models.RatingSummary `json:"summary"`
}

// Rating bounds are checked by the review service so an out-of-range value
// surfaces as INVALID_RATING.
const inputSchema = `{
	"type": "object",
	"required": ["productId", "userId", "rating"],
	"properties": {
		"productId": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1},
		"userName": {"type": "string"},
		"rating": {"type": "integer"},
		"comment": {"type": "string", "maxLength": 2000}
	}
}`
