package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"nearby-market/internal/changefeed"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/models"
	"nearby-market/internal/store"
)

// ShopDraft is the editable part of a shop profile.
type ShopDraft struct {
	Name      string
	OwnerName string
	Phone     string
	Address   string
	Latitude  float64
	Longitude float64
	Category  models.ShopCategory
	// IsActive defaults to true for a new shop and to the stored value on update.
	IsActive *bool
}

func (d *ShopDraft) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.OwnerName = strings.TrimSpace(d.OwnerName)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
}

func (d ShopDraft) validate() error {
	var missing []string
	for field, v := range map[string]string{
		"name":      d.Name,
		"ownerName": d.OwnerName,
		"phone":     d.Phone,
		"address":   d.Address,
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperrors.NewShopValidationError("required: " + strings.Join(missing, ", "))
	}
	if !d.Category.Valid() {
		return apperrors.NewShopValidationError(fmt.Sprintf("unknown category %q", d.Category))
	}
	if err := (models.Shop{Latitude: d.Latitude, Longitude: d.Longitude}).Location().Validate(); err != nil {
		return apperrors.NewInvalidCoordinateError(err)
	}
	return nil
}

// SaveShop creates the owner's shop, or updates it when one exists. An owner
// has at most one shop. The bool reports whether a shop was created.
func (s *Service) SaveShop(ctx context.Context, ownerID string, d ShopDraft) (*models.Shop, bool, error) {
	d.normalize()
	if err := d.validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.store.GetShopByOwner(ctx, ownerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, apperrors.NewQueryExecutionFailedError("get shop by owner", err)
	}

	shop := &models.Shop{
		OwnerID:   ownerID,
		Name:      d.Name,
		OwnerName: d.OwnerName,
		Phone:     d.Phone,
		Address:   d.Address,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Category:  d.Category,
		IsActive:  true,
	}

	if existing == nil {
		shop.ID = s.newID()
		if d.IsActive != nil {
			shop.IsActive = *d.IsActive
		}
		if err := s.store.CreateShop(ctx, shop); err != nil {
			return nil, false, writeError("create shop", err)
		}
		s.logger.Info("shop created", map[string]interface{}{"shopId": shop.ID, "ownerId": ownerID})
		s.announce(ctx, "shops", changefeed.OpInsert, shop.ID)
		return shop, true, nil
	}

	shop.ID = existing.ID
	shop.IsActive = existing.IsActive
	if d.IsActive != nil {
		shop.IsActive = *d.IsActive
	}
	shop.GeneralDiscountDescription = existing.GeneralDiscountDescription
	shop.HasGeneralDiscount = existing.HasGeneralDiscount
	shop.ApplyDiscountToAll = existing.ApplyDiscountToAll
	shop.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateShop(ctx, shop); err != nil {
		return nil, false, writeError("update shop", err)
	}
	s.logger.Info("shop updated", map[string]interface{}{"shopId": shop.ID, "active": shop.IsActive})
	s.announce(ctx, "shops", changefeed.OpUpdate, shop.ID)
	return shop, false, nil
}

// UpdateShopDiscount replaces the general discount settings of the owner's
// shop. When shopID is set it must name that shop.
func (s *Service) UpdateShopDiscount(ctx context.Context, ownerID, shopID string, d models.ShopDiscount) (*models.Shop, error) {
	shop, err := s.ownedShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if shopID != "" && shopID != shop.ID {
		return nil, apperrors.NewNotShopOwnerError(ownerID, shopID)
	}

	d.Description = strings.TrimSpace(d.Description)
	if err := s.store.UpdateShopDiscount(ctx, shop.ID, d); err != nil {
		return nil, writeError("update shop discount", err)
	}
	shop.GeneralDiscountDescription = d.Description
	shop.HasGeneralDiscount = d.HasGeneralDiscount
	shop.ApplyDiscountToAll = d.ApplyDiscountToAll

	s.logger.Info("shop discount saved", map[string]interface{}{
		"shopId":      shop.ID,
		"hasDiscount": d.HasGeneralDiscount,
		"applyToAll":  d.ApplyDiscountToAll,
	})
	s.announce(ctx, "shops", changefeed.OpUpdate, shop.ID)
	return shop, nil
}
