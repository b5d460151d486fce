package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

type catalogFixture struct {
	categories *fakeCategories
	products   *fakeProducts
	cache      *fakeTreeCache
	search     *fakeSearch
	svc        *CatalogService
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		categories: sampleCategories(),
		products:   &fakeProducts{},
		cache:      &fakeTreeCache{},
		search:     &fakeSearch{},
	}
	f.svc = NewCatalogService(f.categories, f.products, f.cache, f.search)
	return f
}

func (f *catalogFixture) product(name, slug string, categoryID int64, stock int, available bool) int64 {
	return f.products.add(models.Product{
		CategoryID: categoryID, Name: name, Slug: slug, Stock: stock, Available: available,
		Price: decimal.RequireFromString("19.99"), CategoryName: "cat",
	})
}

func TestCatalogService_CategoryTreeUsesCache(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	tree, err := f.svc.CategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, 1, f.cache.sets)

	f.categories.err = errBoom
	again, err := f.svc.CategoryTree(ctx)
	require.NoError(t, err, "a cache hit never touches the database")
	assert.Len(t, again, 2)
	assert.Equal(t, 1, f.cache.sets)
}

func TestCatalogService_CategoryTreeFallsBackOnCacheError(t *testing.T) {
	f := newCatalogFixture()
	f.cache.getErr = errBoom

	tree, err := f.svc.CategoryTree(context.Background())
	require.NoError(t, err)
	assert.Len(t, tree, 2)
}

func TestCatalogService_HeaderCategories(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)
	f.product("MacBook", "macbook", 3, 10, true)
	f.product("Köynək", "koynek", 5, 0, false)

	header := f.svc.HeaderCategories(context.Background())

	require.Len(t, header.Categories, 1, "Geyim has no available products")
	root := header.Categories[0]
	assert.Equal(t, "elektronika", root.Slug)
	assert.True(t, root.HasChildren)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "noutbuklar", root.Children[0].Slug)
	assert.Equal(t, "telefonlar", root.Children[1].Slug, "counts include grandchildren")
	assert.Equal(t, 2, header.TotalCategoriesCount)
}

func TestCatalogService_HeaderCategoriesKeepPriorityOrder(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)
	f.product("Köynək", "koynek", 5, 2, true)

	header := f.svc.HeaderCategories(context.Background())

	require.Len(t, header.Categories, 2)
	assert.Equal(t, "geyim", header.Categories[0].Slug, "priority 0 comes before the alphabetically earlier elektronika")
	assert.Equal(t, "elektronika", header.Categories[1].Slug, "qualifies through a grandchild")
}

func TestCatalogService_HeaderCategoriesErrorYieldsEmpty(t *testing.T) {
	f := newCatalogFixture()
	f.categories.err = errBoom

	header := f.svc.HeaderCategories(context.Background())
	assert.NotNil(t, header.Categories)
	assert.Empty(t, header.Categories)
	assert.Zero(t, header.TotalCategoriesCount)
}

func TestCatalogService_ListProductsByCategoryIncludesDescendants(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)
	f.product("Nokia", "nokia", 2, 3, true)
	f.product("MacBook", "macbook", 3, 3, true)
	f.product("Hidden", "hidden", 2, 3, false)

	page, err := f.svc.ListProducts(context.Background(), ProductQuery{CategorySlug: "telefonlar", PerPage: 500, Sort: "bogus"})
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Products, 2)
	assert.Equal(t, MaxPerPage, page.PerPage)
	assert.Equal(t, "newest", page.Query.Sort)
	assert.ElementsMatch(t, []int64{2, 4}, f.products.lastFilter.CategoryIDs)
	require.NotNil(t, f.products.lastFilter.Available)
	assert.True(t, *f.products.lastFilter.Available)
}

func TestCatalogService_ListProductsUnknownCategoryIsEmpty(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)

	page, err := f.svc.ListProducts(context.Background(), ProductQuery{CategorySlug: "yoxdur"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Zero(t, page.Total)
}

func TestCatalogService_ListProductsPastLastPage(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)

	page, err := f.svc.ListProducts(context.Background(), ProductQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 9, page.Page)
}

func TestCatalogService_ProductDetail(t *testing.T) {
	f := newCatalogFixture()
	id := f.product("iPhone", "iphone", 4, 3, true)
	f.product("Galaxy", "galaxy", 4, 8, true)
	f.product("Pixel", "pixel", 4, 8, false)
	f.product("Gone", "gone", 4, 0, false)

	detail, err := f.svc.ProductDetail(context.Background(), "iphone")
	require.NoError(t, err)
	assert.Equal(t, id, detail.Product.ID)
	assert.Equal(t, models.StockLow, detail.Product.StockStatus.Key)
	require.Len(t, detail.Breadcrumb, 3)
	assert.Equal(t, "smartfonlar", detail.Breadcrumb[2].Slug)
	require.Len(t, detail.Related, 1)
	assert.Equal(t, "galaxy", detail.Related[0].Slug)

	_, err = f.svc.ProductDetail(context.Background(), "gone")
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
	_, err = f.svc.ProductDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
}

func TestCatalogService_CategoryDetail(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)

	detail, err := f.svc.CategoryDetail(context.Background(), "elektronika", ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, "elektronika", detail.Category.Slug)
	assert.Len(t, detail.Category.Children, 2)
	assert.Len(t, detail.Breadcrumb, 1)
	assert.Equal(t, 1, detail.Products.Total)

	_, err = f.svc.CategoryDetail(context.Background(), "yoxdur", ProductQuery{})
	assert.ErrorIs(t, err, utils.ErrCategoryNotFound)
}

func TestCatalogService_HomeAndStatsDegrade(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone", "iphone", 4, 3, true)

	home := f.svc.Home(context.Background())
	assert.Len(t, home.Products, 1)
	assert.Equal(t, 1, home.Stats.TotalProducts)

	f.products.err = errBoom
	assert.Equal(t, models.ProductStats{}, f.svc.Stats(context.Background()))
	_, err := f.svc.NewProducts(context.Background())
	assert.Error(t, err)
}

func TestCatalogService_Suggestions(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone 15", "iphone-15", 4, 3, true)
	f.product("iPhone 12", "iphone-12", 4, 3, false)
	ctx := context.Background()

	short := f.svc.Suggestions(ctx, " i ")
	assert.Empty(t, short.Products)
	assert.Empty(t, short.Categories)

	res := f.svc.Suggestions(ctx, "iphone")
	require.Len(t, res.Products, 1)
	assert.Equal(t, "iphone-15", res.Products[0].Slug)

	res = f.svc.Suggestions(ctx, "tele")
	require.Len(t, res.Categories, 1)
	assert.Equal(t, "telefonlar", res.Categories[0].Slug)
}

func TestCatalogService_SuggestionsPreferSearchBackend(t *testing.T) {
	f := newCatalogFixture()
	f.product("iPhone 15", "iphone-15", 4, 3, true)
	f.search.enabled = true
	f.search.hits = []models.ProductSuggestion{{Name: "From index", Slug: "from-index"}}

	res := f.svc.Suggestions(context.Background(), "iphone")
	require.Len(t, res.Products, 1)
	assert.Equal(t, "from-index", res.Products[0].Slug)

	f.search.err = errBoom
	res = f.svc.Suggestions(context.Background(), "iphone")
	require.Len(t, res.Products, 1)
	assert.Equal(t, "iphone-15", res.Products[0].Slug, "falls back to the database")
}

func TestCatalogService_SuggestionsErrorsYieldEmpty(t *testing.T) {
	f := newCatalogFixture()
	f.products.err = errBoom
	f.categories.err = errBoom

	res := f.svc.Suggestions(context.Background(), "iphone")
	assert.NotNil(t, res.Products)
	assert.Empty(t, res.Products)
	assert.NotNil(t, res.Categories)
	assert.Empty(t, res.Categories)
}
