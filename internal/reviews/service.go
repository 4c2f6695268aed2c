// Package reviews manages product reviews. A shopper holds at most one review
// per product; submitting again edits it.
package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"nearby-market/internal/changefeed"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/models"
	"nearby-market/internal/store"
)

// AnonymousAuthor is shown for reviews whose author left no name.
const AnonymousAuthor = "Anonymous"

type Service struct {
	store     store.Store
	publisher changefeed.Publisher
	logger    logger.Logger
	newID     func() string
}

func NewService(st store.Store, pub changefeed.Publisher, log logger.Logger) *Service {
	if pub == nil {
		pub = changefeed.NopPublisher{}
	}
	return &Service{
		store:     st,
		publisher: pub,
		logger:    log.WithFields(map[string]interface{}{"component": "reviews"}),
		newID:     uuid.NewString,
	}
}

type Draft struct {
	ProductID string
	UserID    string
	UserName  string
	Rating    int
	Comment   string
}

type SubmitResult struct {
	Review  models.Review
	Created bool
	Summary models.RatingSummary
}

// Submit creates the caller's review of a product or edits the existing one.
// A blank comment is stored as no comment.
func (s *Service) Submit(ctx context.Context, d Draft) (*SubmitResult, error) {
	if d.Rating < models.MinRating || d.Rating > models.MaxRating {
		return nil, apperrors.NewInvalidRatingError(d.Rating)
	}
	if strings.TrimSpace(d.UserID) == "" {
		return nil, apperrors.NewInputValidationError("userId is required")
	}
	if _, err := s.store.GetProduct(ctx, d.ProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewProductNotFoundError(d.ProductID)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get product", err)
	}

	comment := strings.TrimSpace(d.Comment)
	res := &SubmitResult{}

	existing, err := s.store.FindReview(ctx, d.ProductID, d.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r := &models.Review{
			ID:        s.newID(),
			ProductID: d.ProductID,
			UserID:    d.UserID,
			UserName:  strings.TrimSpace(d.UserName),
			Rating:    d.Rating,
			Comment:   comment,
		}
		if err := s.store.InsertReview(ctx, r); err != nil {
			return nil, apperrors.NewDatabaseWriteFailedError("insert review", err)
		}
		res.Review, res.Created = *r, true
	case err != nil:
		return nil, apperrors.NewQueryExecutionFailedError("find review", err)
	default:
		existing.Rating = d.Rating
		existing.Comment = comment
		if name := strings.TrimSpace(d.UserName); name != "" {
			existing.UserName = name
		}
		if err := s.store.UpdateReview(ctx, existing); err != nil {
			return nil, apperrors.NewDatabaseWriteFailedError("update review", err)
		}
		res.Review = *existing
	}

	op := changefeed.OpUpdate
	if res.Created {
		op = changefeed.OpInsert
	}
	s.announce(ctx, op, d.ProductID)

	res.Summary, err = s.summary(ctx, d.ProductID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review saved", map[string]interface{}{
		"productId": d.ProductID,
		"reviewId":  res.Review.ID,
		"created":   res.Created,
		"rating":    d.Rating,
	})
	return res, nil
}

// Delete removes the caller's review of a product and returns the new summary.
func (s *Service) Delete(ctx context.Context, productID, userID string) (models.RatingSummary, error) {
	if err := s.store.DeleteReview(ctx, productID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.RatingSummary{}, apperrors.NewReviewNotFoundError(productID + "/" + userID)
		}
		return models.RatingSummary{}, apperrors.NewDatabaseWriteFailedError("delete review", err)
	}
	s.announce(ctx, changefeed.OpDelete, productID)
	return s.summary(ctx, productID)
}

type Listing struct {
	Reviews []models.Review
	Summary models.RatingSummary
}

// List returns a product's reviews newest first. Authors without a name are
// shown as AnonymousAuthor.
func (s *Service) List(ctx context.Context, productID string) (*Listing, error) {
	reviews, err := s.store.ListReviews(ctx, productID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list reviews", err)
	}
	for i := range reviews {
		if strings.TrimSpace(reviews[i].UserName) == "" {
			reviews[i].UserName = AnonymousAuthor
		}
	}
	summary, err := s.summary(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &Listing{Reviews: reviews, Summary: summary}, nil
}

func (s *Service) summary(ctx context.Context, productID string) (models.RatingSummary, error) {
	sums, err := s.store.RatingSummaries(ctx, []string{productID})
	if err != nil {
		return models.RatingSummary{}, apperrors.NewQueryExecutionFailedError("rating summary", err)
	}
	sum, ok := sums[productID]
	if !ok {
		sum = models.RatingSummary{ProductID: productID}
	}
	return sum, nil
}

// announce publishes a reviews change keyed by product id, matching what the
// Postgres trigger sends.
func (s *Service) announce(ctx context.Context, op changefeed.Operation, productID string) {
	if err := s.publisher.Publish(ctx, changefeed.NewEvent("reviews", op, productID)); err != nil {
		s.logger.Warn("publishing change event failed", map[string]interface{}{"productId": productID, "error": err})
	}
}
