package catalog

import (
	"context"
	"fmt"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// Provider resolves catalog items and add-ons. Implementations are read-only and safe for concurrent use.
type Provider interface {
	FindItem(ctx context.Context, id string) (*models.CatalogItem, error)
	FindAddOn(ctx context.Context, id string) (*models.AddOn, error)
	ListAddOns(ctx context.Context) ([]models.AddOn, error)
	Query(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error)
}

// Static serves a fixed in-process catalog.
type Static struct {
	items     []models.CatalogItem
	itemIndex map[string]int
	addOns    []models.AddOn
	addOnIdx  map[string]int
}

// NewStatic validates every record and builds lookup indexes. Duplicate ids are rejected.
func NewStatic(items []models.CatalogItem, addOns []models.AddOn) (*Static, error) {
	s := &Static{
		items:     make([]models.CatalogItem, 0, len(items)),
		itemIndex: make(map[string]int, len(items)),
		addOns:    make([]models.AddOn, 0, len(addOns)),
		addOnIdx:  make(map[string]int, len(addOns)),
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog seed: %w", err)
		}
		if _, dup := s.itemIndex[item.ID]; dup {
			return nil, fmt.Errorf("invalid catalog seed: duplicate item id %s", item.ID)
		}
		item.Amenities = append([]string(nil), item.Amenities...)
		s.itemIndex[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}

	for _, a := range addOns {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("invalid add-on seed: %w", err)
		}
		if _, dup := s.addOnIdx[a.ID]; dup {
			return nil, fmt.Errorf("invalid add-on seed: duplicate add-on id %s", a.ID)
		}
		s.addOnIdx[a.ID] = len(s.addOns)
		s.addOns = append(s.addOns, a)
	}

	return s, nil
}

// NewDefault returns the built-in catalog.
func NewDefault() (*Static, error) {
	return NewStatic(DefaultItems(), DefaultAddOns())
}

func (s *Static) FindItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	i, ok := s.itemIndex[id]
	if !ok {
		return nil, apperrors.NotFound("catalog item", id)
	}
	item := copyItem(s.items[i])
	return &item, nil
}

func (s *Static) FindAddOn(ctx context.Context, id string) (*models.AddOn, error) {
	i, ok := s.addOnIdx[id]
	if !ok {
		return nil, apperrors.NotFound("add-on", id)
	}
	a := s.addOns[i]
	return &a, nil
}

func (s *Static) ListAddOns(ctx context.Context) ([]models.AddOn, error) {
	return append([]models.AddOn(nil), s.addOns...), nil
}

func (s *Static) Query(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogItem, error) {
	result := make([]models.CatalogItem, 0)
	for _, item := range s.items {
		if filter.Matches(item) {
			result = append(result, copyItem(item))
		}
	}
	return result, nil
}

// Items returns every catalog item in seed order.
func (s *Static) Items() []models.CatalogItem {
	result := make([]models.CatalogItem, len(s.items))
	for i, item := range s.items {
		result[i] = copyItem(item)
	}
	return result
}

func copyItem(item models.CatalogItem) models.CatalogItem {
	item.Amenities = append([]string(nil), item.Amenities...)
	return item
}

// ResolveAddOns looks up every id in order, collapsing duplicates. The first unknown id fails the call.
func ResolveAddOns(ctx context.Context, p Provider, ids []string) ([]models.AddOn, error) {
	seen := make(map[string]bool, len(ids))
	result := make([]models.AddOn, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		a, err := p.FindAddOn(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, nil
}
