package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// TreeRefresher rebuilds the cached category tree.
type TreeRefresher interface {
	RefreshTree(ctx context.Context) ([]*models.CategoryNode, error)
}

// CategoryCacheWorker keeps the category tree warm in Redis. The interval
// should be shorter than the cache TTL so storefront reads never miss.
type CategoryCacheWorker struct {
	tree     TreeRefresher
	interval time.Duration
}

// NewCategoryCacheWorker constructs a CategoryCacheWorker.
func NewCategoryCacheWorker(tree TreeRefresher, interval time.Duration) *CategoryCacheWorker {
	return &CategoryCacheWorker{tree: tree, interval: interval}
}

// Start warms the cache immediately and then on every tick until context is canceled.
func (w *CategoryCacheWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting category cache worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Category cache worker stopped")
			return
		}
	}
}

func (w *CategoryCacheWorker) run(ctx context.Context) {
	start := time.Now()
	roots, err := w.tree.RefreshTree(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh category tree")
		return
	}
	log.Debug().Int("roots", len(roots)).Dur("duration", time.Since(start)).Msg("Category tree refreshed")
}
