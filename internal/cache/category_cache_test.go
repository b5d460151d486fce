package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/models"
)

type memStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestCategoryCache_RoundTripAndInvalidate(t *testing.T) {
	store := newMemStore()
	c := NewCategoryCache(store, 300*time.Second)
	ctx := context.Background()

	_, found, err := c.GetTree(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	tree := []*models.CategoryNode{{ID: 1, Name: "Elektronika", Slug: "elektronika", TotalProductCount: 3,
		Children: []*models.CategoryNode{{ID: 2, Name: "Telefonlar", Slug: "telefonlar"}}}}
	require.NoError(t, c.SetTree(ctx, tree))
	assert.Equal(t, 300*time.Second, store.ttls[CategoryTreeKey])

	got, found, err := c.GetTree(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "Telefonlar", got[0].Children[0].Name)

	require.NoError(t, c.Invalidate(ctx))
	_, found, _ = c.GetTree(ctx)
	assert.False(t, found)
}

func TestCategoryCache_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := NewCategoryCache(store, time.Minute)

	_, found, err := c.GetTree(context.Background())
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCategoryCache_CorruptPayload(t *testing.T) {
	store := newMemStore()
	store.data[CategoryTreeKey] = "{not json"
	c := NewCategoryCache(store, time.Minute)

	_, _, err := c.GetTree(context.Background())
	assert.ErrorContains(t, err, "unmarshal")
}
