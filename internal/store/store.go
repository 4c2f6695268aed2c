// Package store persists shops, products and reviews.
package store

import (
	"context"
	"errors"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

type ShopStore interface {
	GetShop(ctx context.Context, id string) (*models.Shop, error)
	GetShopByOwner(ctx context.Context, ownerID string) (*models.Shop, error)
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	SearchActiveShops(ctx context.Context, term string) ([]models.Shop, error)
	CreateShop(ctx context.Context, shop *models.Shop) error
	UpdateShop(ctx context.Context, shop *models.Shop) error
	UpdateShopDiscount(ctx context.Context, shopID string, discount models.ShopDiscount) error
}

type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProductsByShop(ctx context.Context, shopID string) ([]models.Product, error)
	// SearchProducts matches term case-insensitively against product names and joins
	// each hit with its active shop. Only shops inside box are considered.
	SearchProducts(ctx context.Context, term string, box geo.BoundingBox) ([]models.ProductWithShop, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.ProductWithShop, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type ReviewStore interface {
	// ListReviews returns the reviews of a product, newest first.
	ListReviews(ctx context.Context, productID string) ([]models.Review, error)
	FindReview(ctx context.Context, productID, userID string) (*models.Review, error)
	InsertReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, productID, userID string) error
	// RatingSummaries returns one summary per product id that has reviews.
	RatingSummaries(ctx context.Context, productIDs []string) (map[string]models.RatingSummary, error)
}

// Store bundles the three stores.
type Store interface {
	ShopStore
	ProductStore
	ReviewStore
}
