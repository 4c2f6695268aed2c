package listreviews

import "nearby-market/internal/models"

type Input struct {
	ProductID string `json:"productId"`
}

// Output lists reviews newest first.
type Output struct {
	ProductID string               `json:"productId"`
	Reviews   []models.Review      `json:"reviews"`
	Summary   models.RatingSummary `json:"summary"`
}

const inputSchema = `{
	"type": "object",
	"required": ["productId"],
	"properties": {
		"productId": {"type": "string", "minLength": 1}
	}
}`
