// Package catalog holds the shop owner write paths: the shop profile, its
// discount settings and its products.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"nearby-market/internal/changefeed"
	"nearby-market/internal/common/aws"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/models"
	"nearby-market/internal/store"
)

// ProductIndex keeps the full-text index in step with product writes.
// searchindex.ProductIndex implements it.
type ProductIndex interface {
	Index(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id string) error
}

// RestockNotifier is implemented by aws.RestockNotifier.
type RestockNotifier interface {
	NotifyRestock(ctx context.Context, ev aws.RestockEvent) (string, error)
}

// Deps wires a Service. Index, Publisher and Notifier are optional.
type Deps struct {
	Store     store.Store
	Index     ProductIndex
	Publisher changefeed.Publisher
	Notifier  RestockNotifier
	Logger    logger.Logger
}

type Service struct {
	store     store.Store
	index     ProductIndex
	publisher changefeed.Publisher
	notifier  RestockNotifier
	logger    logger.Logger
	newID     func() string
}

func NewService(d Deps) *Service {
	pub := d.Publisher
	if pub == nil {
		pub = changefeed.NopPublisher{}
	}
	log := d.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		store:     d.Store,
		index:     d.Index,
		publisher: pub,
		notifier:  d.Notifier,
		logger:    log.WithFields(map[string]interface{}{"component": "catalog"}),
		newID:     uuid.NewString,
	}
}

// ownedShop returns the shop belonging to ownerID.
func (s *Service) ownedShop(ctx context.Context, ownerID string) (*models.Shop, error) {
	shop, err := s.store.GetShopByOwner(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewShopNotFoundError("owner:" + ownerID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get shop by owner", err)
	}
	return shop, nil
}

// announce publishes a change event. Failures are logged, never returned.
func (s *Service) announce(ctx context.Context, table string, op changefeed.Operation, id string) {
	if err := s.publisher.Publish(ctx, changefeed.NewEvent(table, op, id)); err != nil {
		s.logger.Warn("publishing change event failed", map[string]interface{}{
			"table":    table,
			"recordId": id,
			"error":    err,
		})
	}
}

func writeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(op)
	}
	return apperrors.NewDatabaseWriteFailedError(op, err)
}
