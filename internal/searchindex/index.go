// Package searchindex keeps an Elasticsearch index of product names so that
// product search can use full-text matching instead of ILIKE scans.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/models"
)

// Mapping is the index definition passed to EnsureIndex at startup.
const Mapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "shopId":      {"type": "keyword"},
      "name":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category":    {"type": "keyword"},
      "stockStatus": {"type": "keyword"},
      "updatedAt":   {"type": "date"}
    }
  }
}`

// defaultPageSize is the number of hits fetched per search request.
const defaultPageSize = 500

type document struct {
	ID          string             `json:"id"`
	ShopID      string             `json:"shopId"`
	Name        string             `json:"name"`
	Category    string             `json:"category,omitempty"`
	StockStatus models.StockStatus `json:"stockStatus"`
	UpdatedAt   string             `json:"updatedAt"`
}

type ProductIndex struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

func NewProductIndex(client *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{client: client, index: index, pageSize: defaultPageSize}
}

func (i *ProductIndex) Name() string { return i.index }

// Index upserts the searchable fields of p.
func (i *ProductIndex) Index(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(document{
		ID:          p.ID,
		ShopID:      p.ShopID,
		Name:        p.Name,
		Category:    p.Category,
		StockStatus: p.StockStatus,
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("index product %s: %s", p.ID, res.Status()))
	}
	return nil
}

// Delete removes a product document. A missing document is not an error.
func (i *ProductIndex) Delete(ctx context.Context, productID string) error {
	req := esapi.DeleteRequest{Index: i.index, DocumentID: productID}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("delete product %s: %s", productID, res.Status()))
	}
	return nil
}

// SearchProductIDs returns the ids of every product whose name matches term.
// Both analysed word matches and raw substring matches count. Hits are paged
// through in id order with search_after, so no match is cut off.
func (i *ProductIndex) SearchProductIDs(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []string{}, nil
	}

	ids := []string{}
	var after []interface{}
	for {
		page, err := i.searchPage(ctx, buildQuery(term, i.pageSize, after))
		if err != nil {
			return nil, err
		}
		for _, h := range page {
			ids = append(ids, h.ID)
		}
		if len(page) < i.pageSize {
			return ids, nil
		}
		after = page[len(page)-1].Sort
		if len(after) == 0 {
			return nil, apperrors.NewSearchQueryFailedError(i.index, fmt.Errorf("hit %s has no sort values", page[len(page)-1].ID))
		}
	}
}

func (i *ProductIndex) searchPage(ctx context.Context, query map[string]interface{}) ([]searchHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(i.index, err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(i.index, fmt.Errorf("search: %s", res.String()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(i.index, fmt.Errorf("decode response: %w", err))
	}
	return r.Hits.Hits, nil
}

type searchHit struct {
	ID   string        `json:"_id"`
	Sort []interface{} `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func buildQuery(term string, size int, after []interface{}) map[string]interface{} {
	q := map[string]interface{}{
		"size":    size,
		"_source": false,
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"name": map[string]interface{}{
								"query":    term,
								"operator": "and",
								"boost":    2,
							},
						},
					},
					map[string]interface{}{
						"wildcard": map[string]interface{}{
							"name.raw": map[string]interface{}{
								"value":            "*" + escapeWildcard(term) + "*",
								"case_insensitive": true,
							},
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	return q
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
