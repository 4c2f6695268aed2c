// internal/models/review.go
package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingSummary aggregates the reviews of one product.
type RatingSummary struct {
	ProductID     string  `json:"productId"`
	AverageRating float64 `json:"avgRating"`
	ReviewCount   int     `json:"reviewCount"`
}
