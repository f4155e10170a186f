package service

import (
	"context"
	"encoding/json"
	"fmt"

	"luxtravel/internal/catalog"
	"luxtravel/internal/models"
)

// QueryCache stores serialized catalog query results.
type QueryCache interface {
	Get(ctx context.Context, query string) ([]byte, bool)
	Set(ctx context.Context, query string, data []byte)
}

type CatalogService struct {
	provider catalog.Provider
	cache    QueryCache
}

// NewCatalogService wraps provider; cache may be nil.
func NewCatalogService(provider catalog.Provider, cache QueryCache) *CatalogService {
	return &CatalogService{provider: provider, cache: cache}
}

func (s *CatalogService) Query(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error) {
	key := filterKey(filter)
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			var items []models.CatalogItem
			if err := json.Unmarshal(data, &items); err == nil {
				return items, nil
			}
		}
	}

	items, err := s.provider.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			s.cache.Set(ctx, key, data)
		}
	}
	return items, nil
}

func (s *CatalogService) FindItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	return s.provider.FindItem(ctx, id)
}

func (s *CatalogService) FindAddOn(ctx context.Context, id string) (*models.AddOn, error) {
	return s.provider.FindAddOn(ctx, id)
}

func (s *CatalogService) ListAddOns(ctx context.Context) ([]models.AddOn, error) {
	return s.provider.ListAddOns(ctx)
}

// filterKey is a stable cache key for filter.
func filterKey(f models.CatalogFilter) string {
	return fmt.Sprintf("id=%s|featured=%t|category=%s|kind=%s", f.ID, f.FeaturedOnly, f.Category, f.Kind)
}
