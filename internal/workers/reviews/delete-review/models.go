package deletereview

import "nearby-market/internal/models"

type Input struct {
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
}

type Output struct {
	ProductID string               `json:"productId"`
	Deleted   bool                 `json:"deleted"`
	Summary   models.RatingSummary `json:"summary"`
}

const inputSchema = `{
	"type": "object",
	"required": ["productId", "userId"],
	"properties": {
		"productId": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1}
	}
}`
