package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	"luxtravel/internal/logger"
	"luxtravel/internal/models"
	"luxtravel/internal/search"
)

// indexer is the part of the search index the sync needs
type indexer interface {
	IndexItems(ctx context.Context, items []models.CatalogItem) error
}

func main() {
	var kind string
	flag.StringVar(&kind, "kind", "", "Sync only destination or experience items (empty = all)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting catalog synchronization", "index", cfg.Elasticsearch.Index, "kind", kind)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	static, err := catalog.NewDefault()
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}

	index, err := search.NewCatalogIndex(ctx, cfg.Elasticsearch, static)
	if err != nil {
		slog.Error("Failed to connect to elasticsearch", "error", err)
		os.Exit(1)
	}

	if err := syncCatalog(ctx, index, static.Items(), models.ItemKind(kind)); err != nil {
		slog.Error("Catalog synchronization failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Catalog synchronization completed successfully")
}

func syncCatalog(ctx context.Context, index indexer, items []models.CatalogItem, kind models.ItemKind) error {
	start := time.Now()

	switch kind {
	case "", models.KindDestination, models.KindExperience:
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	selected := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if kind == "" || item.Kind == kind {
			selected = append(selected, item)
		}
	}
	if len(selected) == 0 {
		slog.Info("Nothing to index")
		return nil
	}

	slog.Info("Indexing catalog items", "count", len(selected))
	if err := index.IndexItems(ctx, selected); err != nil {
		return fmt.Errorf("failed to index catalog items: %w", err)
	}

	slog.Info("Catalog synchronization finished",
		"items_indexed", len(selected),
		"duration", time.Since(start).String())
	return nil
}
