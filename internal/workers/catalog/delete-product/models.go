package deleteproduct

type Input struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

type Output struct {
	ProductID string `json:"productId"`
	Deleted   bool   `json:"deleted"`
}

const inputSchema = `{
	"type": "object",
	"required": ["userId", "productId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"productId": {"type": "string", "minLength": 1}
	}
}`
