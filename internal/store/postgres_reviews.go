package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"nearby-market/internal/models"
)

const reviewColumns = `id, product_id, user_id, user_name, rating, comment, created_at, updated_at`

func scanReview(row rowScanner) (models.Review, error) {
	var r models.Review
	var comment sql.NullString
	err := row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.UserName, &r.Rating, &comment, &r.CreatedAt, &r.UpdatedAt)
	r.Comment = comment.String
	return r, err
}

// nullableComment stores an empty comment as NULL.
func nullableComment(c string) sql.NullString {
	return sql.NullString{String: c, Valid: c != ""}
}

func (p *PostgresStore) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	if !validID(productID) {
		return []models.Review{}, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("query reviews of product %s: %w", productID, err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

func (p *PostgresStore) FindReview(ctx context.Context, productID, userID string) (*models.Review, error) {
	if !validID(productID) {
		return nil, missing("review by "+userID+" of product", productID)
	}
	row := p.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 AND user_id = $2`, productID, userID)
	r, err := scanReview(row)
	if err != nil {
		return nil, notFoundOr(err, "review by "+userID+" of product", productID)
	}
	return &r, nil
}

func (p *PostgresStore) InsertReview(ctx context.Context, r *models.Review) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, user_name, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		r.ID, r.ProductID, r.UserID, r.UserName, r.Rating, nullableComment(r.Comment),
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert review %s: %w", r.ID, err)
	}
	return nil
}

func (p *PostgresStore) UpdateReview(ctx context.Context, r *models.Review) error {
	err := p.db.QueryRowContext(ctx, `
		UPDATE reviews SET rating = $2, comment = $3, user_name = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		r.ID, r.Rating, nullableComment(r.Comment), r.UserName,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return notFoundOr(err, "update review", r.ID)
	}
	return nil
}

func (p *PostgresStore) DeleteReview(ctx context.Context, productID, userID string) error {
	if !validID(productID) {
		return missing("delete review of product", productID)
	}
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE product_id = $1 AND user_id = $2`, productID, userID)
	if err != nil {
		return fmt.Errorf("delete review of product %s: %w", productID, err)
	}
	return expectOneRow(res, "delete review of product", productID)
}

func (p *PostgresStore) RatingSummaries(ctx context.Context, productIDs []string) (map[string]models.RatingSummary, error) {
	out := make(map[string]models.RatingSummary, len(productIDs))
	productIDs = validIDs(productIDs)
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT product_id, AVG(rating)::float8, COUNT(*)
		FROM reviews
		WHERE product_id = ANY($1)
		GROUP BY product_id`,
		pq.Array(productIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("query rating summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.RatingSummary
		if err := rows.Scan(&s.ProductID, &s.AverageRating, &s.ReviewCount); err != nil {
			return nil, fmt.Errorf("scan rating summary: %w", err)
		}
		out[s.ProductID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating summaries: %w", err)
	}
	return out, nil
}
