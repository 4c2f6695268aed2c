// Package search answers the shopper-facing queries: product search, nearby
// shops and the shop page.
package search

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/metrics"
	"nearby-market/internal/common/observability"
	"nearby-market/internal/geo"
	"nearby-market/internal/models"
	"nearby-market/internal/ranking"
	"nearby-market/internal/store"
)

// ProductIndex is the full-text product lookup. searchindex.ProductIndex implements it.
// It returns every matching id.
type ProductIndex interface {
	SearchProductIDs(ctx context.Context, term string) ([]string, error)
}

type Options struct {
	Bounds        geo.RadiusBounds
	DefaultOrigin geo.Point
	// MaxResults caps the ranked product list of a search. Zero means no cap.
	MaxResults int
}

type Service struct {
	store  store.Store
	index  ProductIndex
	opts   Options
	obs    *observability.Observability
	logger logger.Logger
}

// NewService builds the search service. index may be nil, in which case product
// names are matched in Postgres.
func NewService(st store.Store, index ProductIndex, opts Options, obs *observability.Observability, log logger.Logger) *Service {
	if obs == nil {
		obs = &observability.Observability{}
	}
	return &Service{
		store:  st,
		index:  index,
		opts:   opts,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// Area is a validated search origin and radius.
type Area struct {
	Origin   geo.Point `json:"origin"`
	RadiusKm float64   `json:"radiusKm"`
}

// ResolveArea validates the requested origin and radius. A nil origin falls back
// to the configured default, a zero radius to the default radius. Radii outside
// the configured bounds are rejected; the rest are snapped onto the grid.
func (s *Service) ResolveArea(origin *geo.Point, radiusKm float64) (Area, error) {
	a := Area{Origin: s.opts.DefaultOrigin}
	if origin != nil {
		a.Origin = *origin
	}
	if err := a.Origin.Validate(); err != nil {
		return Area{}, apperrors.NewInvalidCoordinateError(err)
	}
	r, err := s.opts.Bounds.Resolve(radiusKm)
	if err != nil {
		return Area{}, apperrors.NewInvalidRadiusError(err)
	}
	a.RadiusKm = r
	return a, nil
}

// SearchProducts finds products and shops whose names contain the query term
// inside the search area. Products are ranked available-first then by price,
// shops nearest first. A blank term yields an empty result. Every product in
// the area is considered before the ranked list is cut to MaxResults.
func (s *Service) SearchProducts(ctx context.Context, q Query) (*Results, error) {
	area, err := s.ResolveArea(q.Origin, q.RadiusKm)
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(q.Term)
	res := &Results{
		Query:    term,
		Origin:   area.Origin,
		RadiusKm: area.RadiusKm,
		Products: []ProductResult{},
		Shops:    []ShopResult{},
	}
	if term == "" {
		return res, nil
	}

	ctx, span := s.obs.StartSpan(ctx, "search.products",
		attribute.String("search.term", term),
		attribute.Float64("search.radius_km", area.RadiusKm),
	)
	defer span.End()

	candidates, err := s.matchProducts(ctx, term, area)
	if err != nil {
		return nil, fail(span, err)
	}

	located := geo.WithinRadius(candidates, area.Origin, area.RadiusKm)
	ids := make([]string, 0, len(located))
	for _, l := range located {
		ids = append(ids, l.Item.ID)
	}
	summaries, err := s.store.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, fail(span, queryError("rating summaries", err))
	}

	for _, l := range located {
		r := newProductResult(l.Item.Product, l.Item.Shop, summaries[l.Item.ID])
		d := l.DistanceKm
		r.DistanceKm = &d
		res.Products = append(res.Products, r)
		s.obs.RecordResultDistance(ctx, "product", d)
	}
	ranking.RankProducts(res.Products)
	res.TotalProducts = len(res.Products)
	if s.opts.MaxResults > 0 && len(res.Products) > s.opts.MaxResults {
		res.Products = res.Products[:s.opts.MaxResults]
	}

	shops, err := s.SearchShops(ctx, term, area)
	if err != nil {
		return nil, fail(span, err)
	}
	res.Shops = shops

	metrics.SearchResults.WithLabelValues("product").Observe(float64(len(res.Products)))
	span.SetAttributes(
		attribute.Int("search.products", len(res.Products)),
		attribute.Int("search.shops", len(res.Shops)),
	)
	s.logger.Debug("product search done", map[string]interface{}{
		"term":     term,
		"radiusKm": area.RadiusKm,
		"products": len(res.Products),
		"matched":  res.TotalProducts,
		"shops":    len(res.Shops),
	})
	return res, nil
}

// matchProducts returns every name match whose shop may lie inside area. The
// exact radius check happens afterwards.
func (s *Service) matchProducts(ctx context.Context, term string, area Area) ([]models.ProductWithShop, error) {
	if s.index == nil {
		items, err := s.store.SearchProducts(ctx, term, geo.BoxAround(area.Origin, area.RadiusKm))
		if err != nil {
			return nil, queryError("search products", err)
		}
		return items, nil
	}

	ids, err := s.index.SearchProductIDs(ctx, term)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, queryError("load indexed products", err)
	}
	return items, nil
}

// SearchShops returns active shops whose names contain term inside area, nearest first.
func (s *Service) SearchShops(ctx context.Context, term string, area Area) ([]ShopResult, error) {
	shops, err := s.store.SearchActiveShops(ctx, term)
	if err != nil {
		return nil, queryError("search shops", err)
	}
	located := geo.WithinRadius(shops, area.Origin, area.RadiusKm)
	ranking.SortByDistance(located)
	metrics.SearchResults.WithLabelValues("shop").Observe(float64(len(located)))
	return shopResults(located), nil
}

// NearbyShops lists active shops inside the area, nearest first.
func (s *Service) NearbyShops(ctx context.Context, origin *geo.Point, radiusKm float64) (Area, []ShopResult, error) {
	area, err := s.ResolveArea(origin, radiusKm)
	if err != nil {
		return Area{}, nil, err
	}

	ctx, span := s.obs.StartSpan(ctx, "search.nearby_shops", attribute.Float64("search.radius_km", area.RadiusKm))
	defer span.End()

	shops, err := s.store.ListActiveShops(ctx)
	if err != nil {
		return Area{}, nil, fail(span, queryError("list active shops", err))
	}
	located := geo.WithinRadius(shops, area.Origin, area.RadiusKm)
	ranking.SortByDistance(located)
	for _, l := range located {
		s.obs.RecordResultDistance(ctx, "shop", l.DistanceKm)
	}
	metrics.SearchResults.WithLabelValues("nearby").Observe(float64(len(located)))
	span.SetAttributes(attribute.Int("search.shops", len(located)))
	return area, shopResults(located), nil
}

// ShopDetail loads an active shop with its ranked products. The distance is
// filled in only when origin is given.
func (s *Service) ShopDetail(ctx context.Context, shopID string, origin *geo.Point) (*ShopPage, error) {
	if origin != nil {
		if err := origin.Validate(); err != nil {
			return nil, apperrors.NewInvalidCoordinateError(err)
		}
	}

	ctx, span := s.obs.StartSpan(ctx, "search.shop_detail", attribute.String("shop.id", shopID))
	defer span.End()

	shop, err := s.store.GetShop(ctx, shopID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(span, apperrors.NewShopNotFoundError(shopID))
	}
	if err != nil {
		return nil, fail(span, queryError("get shop", err))
	}
	if !shop.IsActive {
		return nil, fail(span, apperrors.NewShopNotFoundError(shopID))
	}

	products, err := s.store.ListProductsByShop(ctx, shopID)
	if err != nil {
		return nil, fail(span, queryError("list shop products", err))
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	summaries, err := s.store.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, fail(span, queryError("rating summaries", err))
	}

	page := &ShopPage{
		Shop:          *shop,
		DirectionsURL: shop.DirectionsURL(),
		Products:      make([]ProductResult, 0, len(products)),
	}
	if origin != nil {
		d := geo.Distance(*origin, shop.Location())
		page.DistanceKm = &d
	}
	for _, p := range products {
		r := newProductResult(p, *shop, summaries[p.ID])
		r.DistanceKm = page.DistanceKm
		page.Products = append(page.Products, r)
	}
	ranking.RankProducts(page.Products)
	return page, nil
}

// queryError maps a store failure onto a job error code.
func queryError(op string, err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewQueryTimeoutError(op)
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
