package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"nearby-market/internal/changefeed"
	"nearby-market/internal/common/aws"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/metrics"
	"nearby-market/internal/models"
	"nearby-market/internal/store"
)

// ProductDraft is a product as submitted by its shop owner. An empty ID creates
// a new product.
type ProductDraft struct {
	ID          string
	Name        string
	Description string
	Category    string
	ImageURL    string

	Price          decimal.Decimal
	OriginalPrice  decimal.NullDecimal
	IsOnSale       bool
	SalePercentage int
	ShowSaleAlert  bool

	StockStatus   models.StockStatus
	StockQuantity *int
	RestockDate   *time.Time

	SpecialOfferDescription string
	HasSpecialOffer         bool
	UseShopDiscount         bool
}

func (d ProductDraft) validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return apperrors.NewProductValidationError("name is required")
	case !d.Price.IsPositive():
		return apperrors.NewProductValidationError(fmt.Sprintf("price must be positive, got %s", d.Price))
	case d.OriginalPrice.Valid && !d.OriginalPrice.Decimal.IsPositive():
		return apperrors.NewProductValidationError(fmt.Sprintf("original price must be positive, got %s", d.OriginalPrice.Decimal))
	case !d.StockStatus.Valid():
		return apperrors.NewProductValidationError(fmt.Sprintf("unknown stock status %q", d.StockStatus))
	case d.SalePercentage < 0 || d.SalePercentage > 100:
		return apperrors.NewProductValidationError(fmt.Sprintf("sale percentage must be within 0..100, got %d", d.SalePercentage))
	case d.StockStatus == models.StockStatusLimited && (d.StockQuantity == nil || *d.StockQuantity <= 0):
		return apperrors.NewProductValidationError("limited stock needs a positive quantity")
	}
	return nil
}

// toProduct builds the stored form. Quantity is kept only for limited stock and
// the restock date only while out of stock.
func (d ProductDraft) toProduct(shopID string) *models.Product {
	p := &models.Product{
		ID:                      d.ID,
		ShopID:                  shopID,
		Name:                    strings.TrimSpace(d.Name),
		Description:             strings.TrimSpace(d.Description),
		Category:                strings.TrimSpace(d.Category),
		ImageURL:                strings.TrimSpace(d.ImageURL),
		Price:                   d.Price,
		OriginalPrice:           d.OriginalPrice,
		IsOnSale:                d.IsOnSale,
		SalePercentage:          d.SalePercentage,
		ShowSaleAlert:           d.ShowSaleAlert,
		StockStatus:             d.StockStatus,
		SpecialOfferDescription: strings.TrimSpace(d.SpecialOfferDescription),
		HasSpecialOffer:         d.HasSpecialOffer,
		UseShopDiscount:         d.UseShopDiscount,
	}
	if d.StockStatus == models.StockStatusLimited {
		q := *d.StockQuantity
		p.StockQuantity = &q
	}
	if d.StockStatus == models.StockStatusOutOfStock && d.RestockDate != nil {
		t := *d.RestockDate
		p.RestockDate = &t
	}
	return p
}

type SaveProductResult struct {
	Product         models.Product
	Created         bool
	RestockNotified bool
}

// SaveProduct creates or updates a product of the owner's shop, refreshes the
// search index and announces the change. Moving a product from out of stock
// back to in stock or limited publishes a restock notification.
func (s *Service) SaveProduct(ctx context.Context, ownerID string, d ProductDraft) (*SaveProductResult, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var previous *models.Product
	if d.ID != "" {
		previous, err = s.ownedProduct(ctx, ownerID, shop.ID, d.ID)
		if err != nil {
			return nil, err
		}
	}

	p := d.toProduct(shop.ID)
	res := &SaveProductResult{}
	if previous == nil {
		p.ID = s.newID()
		if err := s.store.CreateProduct(ctx, p); err != nil {
			return nil, writeError("create product", err)
		}
		res.Created = true
	} else {
		if err := s.store.UpdateProduct(ctx, p); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperrors.NewProductNotFoundError(p.ID)
			}
			return nil, writeError("update product", err)
		}
	}
	res.Product = *p

	s.logger.Info("product saved", map[string]interface{}{
		"productId":   p.ID,
		"shopId":      shop.ID,
		"created":     res.Created,
		"stockStatus": p.StockStatus,
	})

	s.reindex(ctx, *p)
	op := changefeed.OpUpdate
	if res.Created {
		op = changefeed.OpInsert
	}
	s.announce(ctx, "products", op, p.ID)

	if previous != nil && !previous.StockStatus.Available() && p.StockStatus.Available() {
		res.RestockNotified = s.notifyRestock(ctx, *p, *shop)
	}
	return res, nil
}

// DeleteProduct removes a product of the owner's shop together with its reviews.
func (s *Service) DeleteProduct(ctx context.Context, ownerID, productID string) error {
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, ownerID, shop.ID, productID); err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewProductNotFoundError(productID)
		}
		return writeError("delete product", err)
	}
	s.logger.Info("product deleted", map[string]interface{}{"productId": productID, "shopId": shop.ID})

	if s.index != nil {
		if err := s.index.Delete(ctx, productID); err != nil {
			s.logger.Warn("removing product from index failed", map[string]interface{}{"productId": productID, "error": err})
		}
	}
	s.announce(ctx, "products", changefeed.OpDelete, productID)
	return nil
}

func (s *Service) ownedProduct(ctx context.Context, ownerID, shopID, productID string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewProductNotFoundError(productID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get product", err)
	}
	if p.ShopID != shopID {
		return nil, apperrors.NewNotShopOwnerError(ownerID, p.ShopID)
	}
	return p, nil
}

func (s *Service) reindex(ctx context.Context, p models.Product) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(ctx, p); err != nil {
		s.logger.Warn("indexing product failed", map[string]interface{}{"productId": p.ID, "error": err})
	}
}

func (s *Service) notifyRestock(ctx context.Context, p models.Product, shop models.Shop) bool {
	if s.notifier == nil {
		return false
	}
	msgID, err := s.notifier.NotifyRestock(ctx, aws.RestockEvent{
		ProductID:   p.ID,
		ProductName: p.Name,
		ShopID:      shop.ID,
		ShopName:    shop.Name,
		StockStatus: string(p.StockStatus),
		Price:       p.Price.StringFixed(2),
		At:          time.Now().UTC(),
	})
	if err != nil {
		metrics.RestockNotifications.WithLabelValues("failed").Inc()
		s.logger.Warn("restock notification failed", map[string]interface{}{
			"productId": p.ID,
			"error":     apperrors.NewNotificationSendFailedError("restock", err),
		})
		return false
	}
	metrics.RestockNotifications.WithLabelValues("sent").Inc()
	s.logger.Info("restock notification sent", map[string]interface{}{"productId": p.ID, "messageId": msgID})
	return true
}
