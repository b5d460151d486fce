package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// CategoryTreeKey is the Redis key holding the serialized category tree.
const CategoryTreeKey = "catalog:category_tree"

// CategoryCache memoizes the category tree in Redis.
type CategoryCache struct {
	store Store
	ttl   time.Duration
}

// NewCategoryCache creates a new CategoryCache.
func NewCategoryCache(store Store, ttl time.Duration) *CategoryCache {
	return &CategoryCache{store: store, ttl: ttl}
}

// GetTree returns the cached tree. A miss is reported with found=false and a nil error.
func (c *CategoryCache) GetTree(ctx context.Context) ([]*models.CategoryNode, bool, error) {
	raw, err := c.store.Get(ctx, CategoryTreeKey)
	if err != nil {
		if IsMiss(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var tree []*models.CategoryNode
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal category tree: %w", err)
	}
	return tree, true, nil
}

// SetTree stores the tree with the configured TTL.
func (c *CategoryCache) SetTree(ctx context.Context, tree []*models.CategoryNode) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal category tree: %w", err)
	}
	if err := c.store.Set(ctx, CategoryTreeKey, string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set category tree: %w", err)
	}
	return nil
}

// Invalidate drops the cached tree.
func (c *CategoryCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, CategoryTreeKey)
}
