package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
)

const productColumns = `id, shop_id, name, description, category, image_url, price, original_price,
	is_on_sale, sale_percentage, show_sale_alert, stock_status, stock_quantity, restock_date,
	special_offer_description, has_special_offer, use_shop_discount, created_at, updated_at`

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

var (
	productWithShopColumns = prefixed("p", productColumns) + ", " + prefixed("s", shopColumns)
	productJoinShop        = ` FROM products p JOIN shops s ON s.id = p.shop_id`
)

func productDest(p *models.Product, status *string, qty *sql.NullInt64, restock *sql.NullTime) []interface{} {
	return []interface{}{
		&p.ID, &p.ShopID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
		&p.Price, &p.OriginalPrice,
		&p.IsOnSale, &p.SalePercentage, &p.ShowSaleAlert, status, qty, restock,
		&p.SpecialOfferDescription, &p.HasSpecialOffer, &p.UseShopDiscount,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

func finishProduct(p *models.Product, status string, qty sql.NullInt64, restock sql.NullTime) {
	p.StockStatus = models.StockStatus(status)
	if qty.Valid {
		q := int(qty.Int64)
		p.StockQuantity = &q
	}
	if restock.Valid {
		t := restock.Time
		p.RestockDate = &t
	}
}

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		p       models.Product
		status  string
		qty     sql.NullInt64
		restock sql.NullTime
	)
	if err := row.Scan(productDest(&p, &status, &qty, &restock)...); err != nil {
		return p, err
	}
	finishProduct(&p, status, qty, restock)
	return p, nil
}

func scanProductWithShop(row rowScanner) (models.ProductWithShop, error) {
	var (
		out      models.ProductWithShop
		status   string
		qty      sql.NullInt64
		restock  sql.NullTime
		category string
	)
	s := &out.Shop
	dest := productDest(&out.Product, &status, &qty, &restock)
	dest = append(dest,
		&s.ID, &s.OwnerID, &s.Name, &s.OwnerName, &s.Phone, &s.Address,
		&s.Latitude, &s.Longitude, &category,
		&s.IsActive, &s.GeneralDiscountDescription, &s.HasGeneralDiscount, &s.ApplyDiscountToAll,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return out, err
	}
	finishProduct(&out.Product, status, qty, restock)
	s.Category = models.ShopCategory(category)
	return out, nil
}

func nullableQuantity(q *int) sql.NullInt64 {
	if q == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*q), Valid: true}
}

func nullableTime(p *models.Product) sql.NullTime {
	if p.RestockDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.RestockDate, Valid: true}
}

func (p *PostgresStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, missing("product", id)
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	prod, err := scanProduct(row)
	if err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	return &prod, nil
}

func (p *PostgresStore) ListProductsByShop(ctx context.Context, shopID string) ([]models.Product, error) {
	if !validID(shopID) {
		return []models.Product{}, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE shop_id = $1 ORDER BY created_at DESC`, shopID)
	if err != nil {
		return nil, fmt.Errorf("query products of shop %s: %w", shopID, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (p *PostgresStore) SearchProducts(ctx context.Context, term string, box geo.BoundingBox) ([]models.ProductWithShop, error) {
	query := `SELECT ` + productWithShopColumns + productJoinShop +
		` WHERE s.is_active = TRUE AND p.name ILIKE $1` +
		` AND s.latitude BETWEEN $2 AND $3 AND s.longitude BETWEEN $4 AND $5 ORDER BY p.name`
	return p.queryProductsWithShop(ctx, query, likePattern(term), box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
}

func (p *PostgresStore) GetProductsByIDs(ctx context.Context, ids []string) ([]models.ProductWithShop, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []models.ProductWithShop{}, nil
	}
	return p.queryProductsWithShop(ctx,
		`SELECT `+productWithShopColumns+productJoinShop+` WHERE s.is_active = TRUE AND p.id = ANY($1)`,
		pq.Array(ids))
}

func (p *PostgresStore) queryProductsWithShop(ctx context.Context, query string, args ...interface{}) ([]models.ProductWithShop, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []models.ProductWithShop{}
	for rows.Next() {
		item, err := scanProductWithShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) CreateProduct(ctx context.Context, prod *models.Product) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO products (
			id, shop_id, name, description, category, image_url, price, original_price,
			is_on_sale, sale_percentage, show_sale_alert, stock_status, stock_quantity, restock_date,
			special_offer_description, has_special_offer, use_shop_discount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`,
		prod.ID, prod.ShopID, prod.Name, prod.Description, prod.Category, prod.ImageURL,
		prod.Price, prod.OriginalPrice,
		prod.IsOnSale, prod.SalePercentage, prod.ShowSaleAlert, string(prod.StockStatus),
		nullableQuantity(prod.StockQuantity), nullableTime(prod),
		prod.SpecialOfferDescription, prod.HasSpecialOffer, prod.UseShopDiscount,
	).Scan(&prod.CreatedAt, &prod.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", prod.ID, err)
	}
	return nil
}

func (p *PostgresStore) UpdateProduct(ctx context.Context, prod *models.Product) error {
	err := p.db.QueryRowContext(ctx, `
		UPDATE products SET
			name = $2, description = $3, category = $4, image_url = $5, price = $6, original_price = $7,
			is_on_sale = $8, sale_percentage = $9, show_sale_alert = $10, stock_status = $11,
			stock_quantity = $12, restock_date = $13, special_offer_description = $14,
			has_special_offer = $15, use_shop_discount = $16, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		prod.ID, prod.Name, prod.Description, prod.Category, prod.ImageURL, prod.Price, prod.OriginalPrice,
		prod.IsOnSale, prod.SalePercentage, prod.ShowSaleAlert, string(prod.StockStatus),
		nullableQuantity(prod.StockQuantity), nullableTime(prod), prod.SpecialOfferDescription,
		prod.HasSpecialOffer, prod.UseShopDiscount,
	).Scan(&prod.CreatedAt, &prod.UpdatedAt)
	if err != nil {
		return notFoundOr(err, "update product", prod.ID)
	}
	return nil
}

func (p *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return missing("delete product", id)
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return expectOneRow(res, "delete product", id)
}
