// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"nearby-market/internal/geo"
	"nearby-market/internal/models"
	"nearby-market/internal/store"
)

// Memory is a goroutine-safe in-memory store.Store. Calls counts every method
// invocation by name; Fail makes the named method return the given error.
type Memory struct {
	mu       sync.Mutex
	shops    map[string]models.Shop
	products map[string]models.Product
	reviews  map[string]models.Review
	clock    time.Time

	Calls map[string]int
	Fail  map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		shops:    make(map[string]models.Shop),
		products: make(map[string]models.Product),
		reviews:  make(map[string]models.Review),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Calls:    make(map[string]int),
		Fail:     make(map[string]error),
	}
}

var _ store.Store = (*Memory)(nil)

// AddShop seeds a shop as-is.
func (m *Memory) AddShop(s models.Shop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shops[s.ID] = s
}

// AddProduct seeds a product as-is.
func (m *Memory) AddProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// AddReview seeds a review as-is.
func (m *Memory) AddReview(r models.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[r.ID] = r
}

// Reviews returns every stored review.
func (m *Memory) Reviews() []models.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		out = append(out, r)
	}
	return out
}

func (m *Memory) enter(method string) error {
	m.Calls[method]++
	return m.Fail[method]
}

// tick advances the fake clock so creation order is deterministic.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
}

func contains(name, term string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(term))
}

func (m *Memory) GetShop(ctx context.Context, id string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetShop"); err != nil {
		return nil, err
	}
	s, ok := m.shops[id]
	if !ok {
		return nil, notFound("shop", id)
	}
	return &s, nil
}

func (m *Memory) GetShopByOwner(ctx context.Context, ownerID string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetShopByOwner"); err != nil {
		return nil, err
	}
	for _, s := range m.shops {
		if s.OwnerID == ownerID {
			return &s, nil
		}
	}
	return nil, notFound("shop of owner", ownerID)
}

func (m *Memory) activeShops(term string) []models.Shop {
	out := []models.Shop{}
	for _, s := range m.shops {
		if s.IsActive && contains(s.Name, term) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListActiveShops"); err != nil {
		return nil, err
	}
	return m.activeShops(""), nil
}

func (m *Memory) SearchActiveShops(ctx context.Context, term string) ([]models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SearchActiveShops"); err != nil {
		return nil, err
	}
	return m.activeShops(term), nil
}

func (m *Memory) CreateShop(ctx context.Context, s *models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateShop"); err != nil {
		return err
	}
	for _, existing := range m.shops {
		if existing.OwnerID == s.OwnerID {
			return fmt.Errorf("owner %s already has a shop", s.OwnerID)
		}
	}
	now := m.tick()
	s.CreatedAt, s.UpdatedAt = now, now
	m.shops[s.ID] = *s
	return nil
}

func (m *Memory) UpdateShop(ctx context.Context, s *models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateShop"); err != nil {
		return err
	}
	existing, ok := m.shops[s.ID]
	if !ok {
		return notFound("shop", s.ID)
	}
	s.OwnerID = existing.OwnerID
	s.GeneralDiscountDescription = existing.GeneralDiscountDescription
	s.HasGeneralDiscount = existing.HasGeneralDiscount
	s.ApplyDiscountToAll = existing.ApplyDiscountToAll
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = m.tick()
	m.shops[s.ID] = *s
	return nil
}

func (m *Memory) UpdateShopDiscount(ctx context.Context, shopID string, d models.ShopDiscount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateShopDiscount"); err != nil {
		return err
	}
	s, ok := m.shops[shopID]
	if !ok {
		return notFound("shop", shopID)
	}
	s.GeneralDiscountDescription = d.Description
	s.HasGeneralDiscount = d.HasGeneralDiscount
	s.ApplyDiscountToAll = d.ApplyDiscountToAll
	s.UpdatedAt = m.tick()
	m.shops[shopID] = s
	return nil
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProduct"); err != nil {
		return nil, err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (m *Memory) ListProductsByShop(ctx context.Context, shopID string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProductsByShop"); err != nil {
		return nil, err
	}
	out := []models.Product{}
	for _, p := range m.products {
		if p.ShopID == shopID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) joined(match func(models.Product) bool) []models.ProductWithShop {
	out := []models.ProductWithShop{}
	for _, p := range m.products {
		s, ok := m.shops[p.ShopID]
		if !ok || !s.IsActive || !match(p) {
			continue
		}
		out = append(out, models.ProductWithShop{Product: p, Shop: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Memory) SearchProducts(ctx context.Context, term string, box geo.BoundingBox) ([]models.ProductWithShop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SearchProducts"); err != nil {
		return nil, err
	}
	out := m.joined(func(p models.Product) bool {
		return contains(p.Name, term) && box.Contains(m.shops[p.ShopID].Location())
	})
	return out, nil
}

func (m *Memory) GetProductsByIDs(ctx context.Context, ids []string) ([]models.ProductWithShop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProductsByIDs"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.joined(func(p models.Product) bool { return want[p.ID] }), nil
}

func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateProduct"); err != nil {
		return err
	}
	now := m.tick()
	p.CreatedAt, p.UpdatedAt = now, now
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) UpdateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateProduct"); err != nil {
		return err
	}
	existing, ok := m.products[p.ID]
	if !ok {
		return notFound("product", p.ID)
	}
	p.ShopID = existing.ShopID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.tick()
	m.products[p.ID] = *p
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := m.products[id]; !ok {
		return notFound("product", id)
	}
	delete(m.products, id)
	for rid, r := range m.reviews {
		if r.ProductID == id {
			delete(m.reviews, rid)
		}
	}
	return nil
}

func (m *Memory) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListReviews"); err != nil {
		return nil, err
	}
	out := []models.Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) FindReview(ctx context.Context, productID, userID string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindReview"); err != nil {
		return nil, err
	}
	for _, r := range m.reviews {
		if r.ProductID == productID && r.UserID == userID {
			return &r, nil
		}
	}
	return nil, notFound("review of product", productID)
}

func (m *Memory) InsertReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertReview"); err != nil {
		return err
	}
	for _, existing := range m.reviews {
		if existing.ProductID == r.ProductID && existing.UserID == r.UserID {
			return fmt.Errorf("duplicate review for product %s by %s", r.ProductID, r.UserID)
		}
	}
	now := m.tick()
	r.CreatedAt, r.UpdatedAt = now, now
	m.reviews[r.ID] = *r
	return nil
}

func (m *Memory) UpdateReview(ctx context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateReview"); err != nil {
		return err
	}
	existing, ok := m.reviews[r.ID]
	if !ok {
		return notFound("review", r.ID)
	}
	existing.Rating = r.Rating
	existing.Comment = r.Comment
	existing.UserName = r.UserName
	existing.UpdatedAt = m.tick()
	m.reviews[r.ID] = existing
	*r = existing
	return nil
}

func (m *Memory) DeleteReview(ctx context.Context, productID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteReview"); err != nil {
		return err
	}
	for id, r := range m.reviews {
		if r.ProductID == productID && r.UserID == userID {
			delete(m.reviews, id)
			return nil
		}
	}
	return notFound("review of product", productID)
}

func (m *Memory) RatingSummaries(ctx context.Context, productIDs []string) (map[string]models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RatingSummaries"); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	sums := make(map[string]int)
	out := make(map[string]models.RatingSummary)
	for _, r := range m.reviews {
		if !want[r.ProductID] {
			continue
		}
		s := out[r.ProductID]
		s.ProductID = r.ProductID
		s.ReviewCount++
		sums[r.ProductID] += r.Rating
		out[r.ProductID] = s
	}
	for id, s := range out {
		s.AverageRating = float64(sums[id]) / float64(s.ReviewCount)
		out[id] = s
	}
	return out, nil
}
