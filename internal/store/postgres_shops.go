package store

import (
	"context"
	"fmt"

	"nearby-market/internal/models"
)

const shopColumns = `id, owner_id, name, owner_name, phone, address, latitude, longitude, category,
	is_active, general_discount_description, has_general_discount, apply_discount_to_all,
	created_at, updated_at`

func scanShop(row rowScanner) (models.Shop, error) {
	var s models.Shop
	var category string
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.OwnerName, &s.Phone, &s.Address,
		&s.Latitude, &s.Longitude, &category,
		&s.IsActive, &s.GeneralDiscountDescription, &s.HasGeneralDiscount, &s.ApplyDiscountToAll,
		&s.CreatedAt, &s.UpdatedAt,
	)
	s.Category = models.ShopCategory(category)
	return s, err
}

func (p *PostgresStore) GetShop(ctx context.Context, id string) (*models.Shop, error) {
	if !validID(id) {
		return nil, missing("shop", id)
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
	s, err := scanShop(row)
	if err != nil {
		return nil, notFoundOr(err, "shop", id)
	}
	return &s, nil
}

func (p *PostgresStore) GetShopByOwner(ctx context.Context, ownerID string) (*models.Shop, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE owner_id = $1`, ownerID)
	s, err := scanShop(row)
	if err != nil {
		return nil, notFoundOr(err, "shop of owner", ownerID)
	}
	return &s, nil
}

func (p *PostgresStore) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	return p.queryShops(ctx, `SELECT `+shopColumns+` FROM shops WHERE is_active = TRUE ORDER BY created_at`)
}

func (p *PostgresStore) SearchActiveShops(ctx context.Context, term string) ([]models.Shop, error) {
	return p.queryShops(ctx,
		`SELECT `+shopColumns+` FROM shops WHERE is_active = TRUE AND name ILIKE $1 ORDER BY created_at`,
		likePattern(term))
}

func (p *PostgresStore) queryShops(ctx context.Context, query string, args ...interface{}) ([]models.Shop, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shops: %w", err)
	}
	defer rows.Close()

	shops := []models.Shop{}
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}
	return shops, nil
}

func (p *PostgresStore) CreateShop(ctx context.Context, s *models.Shop) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO shops (
			id, owner_id, name, owner_name, phone, address, latitude, longitude, category,
			is_active, general_discount_description, has_general_discount, apply_discount_to_all
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		s.ID, s.OwnerID, s.Name, s.OwnerName, s.Phone, s.Address, s.Latitude, s.Longitude, string(s.Category),
		s.IsActive, s.GeneralDiscountDescription, s.HasGeneralDiscount, s.ApplyDiscountToAll,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shop %s: %w", s.ID, err)
	}
	return nil
}

func (p *PostgresStore) UpdateShop(ctx context.Context, s *models.Shop) error {
	err := p.db.QueryRowContext(ctx, `
		UPDATE shops SET
			name = $2, owner_name = $3, phone = $4, address = $5, latitude = $6, longitude = $7,
			category = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.OwnerName, s.Phone, s.Address, s.Latitude, s.Longitude,
		string(s.Category), s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return notFoundOr(err, "update shop", s.ID)
	}
	return nil
}

func (p *PostgresStore) UpdateShopDiscount(ctx context.Context, shopID string, d models.ShopDiscount) error {
	if !validID(shopID) {
		return missing("update shop discount", shopID)
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE shops SET
			general_discount_description = $2, has_general_discount = $3, apply_discount_to_all = $4,
			updated_at = NOW()
		WHERE id = $1`,
		shopID, d.Description, d.HasGeneralDiscount, d.ApplyDiscountToAll,
	)
	if err != nil {
		return fmt.Errorf("update shop discount %s: %w", shopID, err)
	}
	return expectOneRow(res, "update shop discount", shopID)
}
