package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

type fakeES struct {
	mu         sync.Mutex
	lastSearch map[string]any
	bulkLines  int
	docs       map[string]models.CatalogItem
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/catalog":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/_bulk":
		body, _ := io.ReadAll(r.Body)
		f.bulkLines = strings.Count(string(body), "\n")
		w.Write([]byte(`{"errors":false,"items":[]}`))
	case strings.HasPrefix(r.URL.Path, "/catalog/_doc/"):
		id := strings.TrimPrefix(r.URL.Path, "/catalog/_doc/")
		doc, ok := f.docs[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"found":false}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"found": true, "_source": doc})
	case r.URL.Path == "/catalog/_search":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.lastSearch = body

		hits := make([]map[string]any, 0, len(f.docs))
		for _, doc := range f.docs {
			hits = append(hits, map[string]any{"_source": doc})
		}
		json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}
}

func newIndex(t *testing.T) (*CatalogIndex, *fakeES) {
	t.Helper()

	static, err := catalog.NewDefault()
	require.NoError(t, err)

	fake := &fakeES{docs: map[string]models.CatalogItem{}}
	for _, item := range static.Items()[:2] {
		fake.docs[item.ID] = item
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	idx, err := NewCatalogIndex(context.Background(), config.ElasticsearchConfig{
		URL:     srv.URL,
		Index:   "catalog",
		Timeout: 5 * time.Second,
	}, static)
	require.NoError(t, err)
	return idx, fake
}

func TestCatalogIndexFindItem(t *testing.T) {
	idx, _ := newIndex(t)

	item, err := idx.FindItem(context.Background(), "safari-lodge")
	require.NoError(t, err)
	assert.Equal(t, int64(8500), item.Price)
	assert.Equal(t, models.PerWeek, item.PriceUnit)

	_, err = idx.FindItem(context.Background(), "atlantis")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCatalogIndexQueryBuildsFilters(t *testing.T) {
	idx, fake := newIndex(t)

	items, err := idx.Query(context.Background(), models.CatalogFilter{Category: "adventure", FeaturedOnly: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	query := fake.lastSearch["query"].(map[string]any)
	filters := query["bool"].(map[string]any)["filter"].([]any)
	assert.Len(t, filters, 2)
}

func TestBuildFilterQueryMatchAll(t *testing.T) {
	q := buildFilterQuery(models.CatalogFilter{})
	assert.Contains(t, q, "match_all")

	q = buildFilterQuery(models.CatalogFilter{ID: "x", Kind: models.KindExperience})
	filters := q["bool"].(map[string]any)["filter"].([]map[string]any)
	assert.Len(t, filters, 2)
}

func TestCatalogIndexIndexItems(t *testing.T) {
	idx, fake := newIndex(t)

	static, _ := catalog.NewDefault()
	items := static.Items()
	require.NoError(t, idx.IndexItems(context.Background(), items))
	assert.Equal(t, 2*len(items), fake.bulkLines)

	err := idx.IndexItems(context.Background(), []models.CatalogItem{{ID: "bad"}})
	assert.Error(t, err)
}

func TestCatalogIndexDelegatesAddOns(t *testing.T) {
	idx, _ := newIndex(t)

	a, err := idx.FindAddOn(context.Background(), "concierge-service")
	require.NoError(t, err)
	assert.Equal(t, int64(200), a.Price)

	all, err := idx.ListAddOns(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 8)
}
