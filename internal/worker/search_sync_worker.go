package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// AvailableProducts lists the products that belong in the search index.
type AvailableProducts interface {
	ListAvailable(ctx context.Context) ([]models.Product, error)
}

// Indexer writes products to the search index.
type Indexer interface {
	Enabled() bool
	BulkIndex(ctx context.Context, products []models.Product) error
}

// SearchSyncWorker periodically re-indexes every available product in Elasticsearch.
type SearchSyncWorker struct {
	products AvailableProducts
	index    Indexer
	interval time.Duration
}

// NewSearchSyncWorker constructs a SearchSyncWorker.
func NewSearchSyncWorker(products AvailableProducts, index Indexer, interval time.Duration) *SearchSyncWorker {
	return &SearchSyncWorker{
		products: products,
		index:    index,
		interval: interval,
	}
}

// Start runs a sync immediately and then on every tick. It returns at once when search is disabled.
func (w *SearchSyncWorker) Start(ctx context.Context) {
	if !w.index.Enabled() {
		log.Info().Msg("Search sync worker disabled: Elasticsearch not configured")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting search sync worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Search sync worker stopped")
			return
		}
	}
}

func (w *SearchSyncWorker) run(ctx context.Context) {
	start := time.Now()
	products, err := w.products.ListAvailable(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load products for indexing")
		return
	}
	if len(products) == 0 {
		return
	}
	if err := w.index.BulkIndex(ctx, products); err != nil {
		log.Error().Err(err).Int("count", len(products)).Msg("Failed to re-index products")
		return
	}
	log.Info().Int("count", len(products)).Dur("duration", time.Since(start)).Msg("Search index synced")
}
