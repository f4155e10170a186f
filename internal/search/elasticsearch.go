package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

const maxQuerySize = 500

// CatalogIndex serves catalog items from Elasticsearch. Add-ons are not indexed
// and are resolved through the fallback provider.
type CatalogIndex struct {
	client   *elasticsearch.Client
	index    string
	fallback catalog.Provider
}

// NewCatalogIndex connects to Elasticsearch and creates the index when it is missing.
func NewCatalogIndex(ctx context.Context, cfg config.ElasticsearchConfig, fallback catalog.Provider) (*CatalogIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		Transport: &http.Transport{
			ResponseHeaderTimeout: cfg.Timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	idx := &CatalogIndex{client: es, index: cfg.Index, fallback: fallback}
	if err := idx.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return idx, nil
}

func (c *CatalogIndex) ensureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{c.index}}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		slog.Info("Elasticsearch index already exists", "index", c.index)
		return nil
	}

	keyword := map[string]any{"type": "keyword"}
	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":   keyword,
				"kind": keyword,
				"title": map[string]any{
					"type":     "text",
					"analyzer": "english",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
					},
				},
				"location":    map[string]any{"type": "text"},
				"description": map[string]any{"type": "text", "analyzer": "english"},
				"price":       map[string]any{"type": "long"},
				"priceUnit":   keyword,
				"rating":      map[string]any{"type": "float"},
				"image":       map[string]any{"type": "keyword", "index": false},
				"amenities":   keyword,
				"featured":    map[string]any{"type": "boolean"},
				"category":    keyword,
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createRes, err := esapi.IndicesCreateRequest{Index: c.index, Body: bytes.NewReader(body)}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.index)
	return nil
}

// IndexItems bulk-loads items, replacing documents with the same id.
func (c *CatalogIndex) IndexItems(ctx context.Context, items []models.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("refusing to index invalid item: %w", err)
		}
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": item.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode bulk meta: %w", err)
		}
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.ID, err)
		}
	}

	res, err := esapi.BulkRequest{Body: &buf, Refresh: "wait_for"}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index error: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("bulk index reported item errors")
	}

	slog.Info("Indexed catalog items", "index", c.index, "count", len(items))
	return nil
}

func (c *CatalogIndex) FindItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	res, err := esapi.GetRequest{Index: c.index, DocumentID: id}.Do(ctx, c.client)
	if err != nil {
		return nil, apperrors.Upstream("elasticsearch", false, fmt.Errorf("failed to get document: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("catalog item", id)
	}
	if res.IsError() {
		return nil, apperrors.Upstream("elasticsearch", false, fmt.Errorf("get error: %s", res.String()))
	}

	var response struct {
		Source models.CatalogItem `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response.Source, nil
}

func (c *CatalogIndex) FindAddOn(ctx context.Context, id string) (*models.AddOn, error) {
	return c.fallback.FindAddOn(ctx, id)
}

func (c *CatalogIndex) ListAddOns(ctx context.Context) ([]models.AddOn, error) {
	return c.fallback.ListAddOns(ctx)
}

func (c *CatalogIndex) Query(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error) {
	body, err := json.Marshal(map[string]any{
		"query": buildFilterQuery(filter),
		"sort":  []map[string]any{{"id": map[string]any{"order": "asc"}}},
		"size":  maxQuerySize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := esapi.SearchRequest{Index: []string{c.index}, Body: bytes.NewReader(body)}.Do(ctx, c.client)
	if err != nil {
		return nil, apperrors.Upstream("elasticsearch", false, fmt.Errorf("failed to execute search: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.Upstream("elasticsearch", false, fmt.Errorf("search error: %s", res.String()))
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source models.CatalogItem `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	items := make([]models.CatalogItem, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		items[i] = hit.Source
	}
	return items, nil
}

func buildFilterQuery(filter models.CatalogFilter) map[string]any {
	var terms []map[string]any
	if filter.ID != "" {
		terms = append(terms, map[string]any{"term": map[string]any{"id": filter.ID}})
	}
	if filter.FeaturedOnly {
		terms = append(terms, map[string]any{"term": map[string]any{"featured": true}})
	}
	if filter.Category != "" {
		terms = append(terms, map[string]any{"term": map[string]any{"category": filter.Category}})
	}
	if filter.Kind != "" {
		terms = append(terms, map[string]any{"term": map[string]any{"kind": string(filter.Kind)}})
	}

	if len(terms) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": terms}}
}

func (c *CatalogIndex) HealthCheck(ctx context.Context) error {
	res, err := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", strings.TrimSpace(res.String()))
	}
	return nil
}
