package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

func catalogRouter(catalog *fakeCatalog) *gin.Engine {
	h := NewCatalogHandler(catalog)
	r := gin.New()
	r.GET("/", h.Home)
	r.GET("/products", h.ListProducts)
	r.GET("/products/category/:category_slug", h.ListProducts)
	r.GET("/products/price/:range", h.ListProducts)
	r.GET("/yenilikler", h.NewProducts)
	r.GET("/product/:slug", h.ProductDetail)
	r.GET("/categories", h.Categories)
	r.GET("/category/:slug", h.CategoryDetail)
	r.GET("/api/v1/categories", h.CategoryDetail)
	r.GET("/api/header-categories", h.HeaderCategories)
	r.GET("/api/category-breadcrumb/:slug", h.Breadcrumb)
	r.POST("/api/clear-category-cache", h.ClearCategoryCache)
	return r
}

func TestCatalogHandler_ListProductsParsesFilters(t *testing.T) {
	catalog := &fakeCatalog{}
	r := catalogRouter(catalog)

	w := doJSON(r, http.MethodGet, "/products?q=iphone&category=telefonlar&min_price=100&max_price=abc&in_stock=true&sort=price_asc&page=2&per_page=24", nil)
	require.Equal(t, 200, w.Code)

	q := catalog.lastQuery
	assert.Equal(t, "iphone", q.Search)
	assert.Equal(t, "telefonlar", q.CategorySlug)
	require.NotNil(t, q.MinPrice)
	assert.Equal(t, "100", q.MinPrice.String())
	assert.Nil(t, q.MaxPrice, "malformed numbers are ignored")
	assert.True(t, q.InStock)
	assert.Equal(t, "price_asc", q.Sort)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 24, q.PerPage)

	env := decode(t, w)
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, 30, env.Meta.Pagination.TotalItems)
	assert.Equal(t, 2, env.Meta.Pagination.TotalPages)
	assert.False(t, env.Meta.Pagination.HasNext)
}

func TestCatalogHandler_ListProductsAliases(t *testing.T) {
	catalog := &fakeCatalog{}
	r := catalogRouter(catalog)

	require.Equal(t, 200, doJSON(r, http.MethodGet, "/products/category/noutbuklar?search=mac", nil).Code)
	assert.Equal(t, "noutbuklar", catalog.lastQuery.CategorySlug)
	assert.Equal(t, "mac", catalog.lastQuery.Search)

	require.Equal(t, 200, doJSON(r, http.MethodGet, "/products/price/50-250.5", nil).Code)
	require.NotNil(t, catalog.lastQuery.MinPrice)
	require.NotNil(t, catalog.lastQuery.MaxPrice)
	assert.Equal(t, "50", catalog.lastQuery.MinPrice.String())
	assert.Equal(t, "250.5", catalog.lastQuery.MaxPrice.String())
}

func TestCatalogHandler_ListProductsDegradesToEmpty(t *testing.T) {
	r := catalogRouter(&fakeCatalog{err: errors.New("db down")})

	w := doJSON(r, http.MethodGet, "/products?page=3", nil)
	require.Equal(t, 200, w.Code)
	var page service.ProductPage
	decodeData(t, decode(t, w), &page)
	assert.Empty(t, page.Products)
	assert.NotNil(t, page.Products)
	assert.Equal(t, 3, page.Page)
}

func TestCatalogHandler_ProductDetail(t *testing.T) {
	catalog := &fakeCatalog{}
	r := catalogRouter(catalog)

	require.Equal(t, 200, doJSON(r, http.MethodGet, "/product/iphone-15", nil).Code)
	assert.Equal(t, "iphone-15", catalog.lastSlug)

	catalog.err = utils.ErrProductNotFound
	w := doJSON(r, http.MethodGet, "/product/hidden", nil)
	require.Equal(t, 404, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, w).Error.Code)
}

func TestCatalogHandler_Categories(t *testing.T) {
	catalog := &fakeCatalog{tree: []*models.CategoryNode{{ID: 1, Slug: "elektronika"}}}
	r := catalogRouter(catalog)

	w := doJSON(r, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "elektronika")

	w = doJSON(r, http.MethodGet, "/api/v1/categories?slug=telefonlar&sort=name_az", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "telefonlar", catalog.lastSlug)
	assert.Equal(t, "name_az", catalog.lastQuery.Sort)
	assert.Equal(t, 5, decode(t, w).Meta.Pagination.TotalItems)

	catalog.err = utils.ErrCategoryNotFound
	assert.Equal(t, 404, doJSON(r, http.MethodGet, "/category/unknown", nil).Code)
	assert.Equal(t, 404, doJSON(r, http.MethodGet, "/api/category-breadcrumb/unknown", nil).Code)

	w = doJSON(r, http.MethodGet, "/categories", nil)
	require.Equal(t, 200, w.Code, "tree failures degrade to an empty list")
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestCatalogHandler_NavigationAndCache(t *testing.T) {
	catalog := &fakeCatalog{}
	r := catalogRouter(catalog)

	w := doJSON(r, http.MethodGet, "/api/header-categories", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"header_categories":[],"total_categories_count":0}`, string(decode(t, w).Data))

	w = doJSON(r, http.MethodGet, "/api/category-breadcrumb/telefonlar", nil)
	require.Equal(t, 200, w.Code)

	require.Equal(t, 200, doJSON(r, http.MethodPost, "/api/clear-category-cache", nil).Code)
	assert.Equal(t, 1, catalog.invalidate)

	require.Equal(t, 200, doJSON(r, http.MethodGet, "/", nil).Code)
}

type fakeWidgets struct {
	lastTerm string
}

func (f *fakeWidgets) Suggestions(_ context.Context, term string) service.Suggestions {
	f.lastTerm = term
	return service.Suggestions{Products: []models.ProductSuggestion{}, Categories: []models.CategoryRef{}}
}

func (f *fakeWidgets) Stats(context.Context) models.ProductStats {
	return models.ProductStats{TotalProducts: 10, InStock: 7}
}

type fakeNewsletter struct {
	subscribeErr   error
	unsubscribeErr error
}

func (f *fakeNewsletter) Subscribe(_ context.Context, email string) (*models.NewsletterSubscriber, error) {
	return &models.NewsletterSubscriber{Email: email, IsActive: true}, f.subscribeErr
}

func (f *fakeNewsletter) Unsubscribe(context.Context, string, string) error {
	return f.unsubscribeErr
}

func ajaxRouter(widgets *fakeWidgets, news *fakeNewsletter) *gin.Engine {
	h := NewAjaxHandler(widgets, news)
	r := gin.New()
	r.GET("/api/search-suggestions", h.SearchSuggestions)
	r.GET("/api/product-stats", h.ProductStats)
	r.POST("/api/newsletter-subscribe", h.Subscribe)
	r.GET("/api/newsletter-unsubscribe", h.Unsubscribe)
	return r
}

func TestAjaxHandler_SuggestionsAndStats(t *testing.T) {
	widgets := &fakeWidgets{}
	r := ajaxRouter(widgets, &fakeNewsletter{})

	w := doJSON(r, http.MethodGet, "/api/search-suggestions?q=iph", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "iph", widgets.lastTerm)
	assert.JSONEq(t, `{"products":[],"categories":[]}`, string(decode(t, w).Data))

	w = doJSON(r, http.MethodGet, "/api/product-stats", nil)
	require.Equal(t, 200, w.Code)
	var stats models.ProductStats
	decodeData(t, decode(t, w), &stats)
	assert.Equal(t, 10, stats.TotalProducts)
	assert.Equal(t, 7, stats.InStock)
}

func TestAjaxHandler_Newsletter(t *testing.T) {
	news := &fakeNewsletter{}
	r := ajaxRouter(&fakeWidgets{}, news)

	w := doJSON(r, http.MethodPost, "/api/newsletter-subscribe", gin.H{"email": "leyla@mail.az"})
	assert.Equal(t, 201, w.Code)

	w = doJSON(r, http.MethodPost, "/api/newsletter-subscribe", gin.H{"email": "not-an-email"})
	require.Equal(t, 400, w.Code)
	assert.Equal(t, "Düzgün e-poçt ünvanı daxil edin", decode(t, w).Error.Fields["email"])

	news.subscribeErr = utils.ErrAlreadySubscribed
	w = doJSON(r, http.MethodPost, "/api/newsletter-subscribe", gin.H{"email": "leyla@mail.az"})
	require.Equal(t, 200, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"already_subscribed":true`)

	assert.Equal(t, 200, doJSON(r, http.MethodGet, "/api/newsletter-unsubscribe?email=a@b.az&token=x", nil).Code)

	news.unsubscribeErr = utils.ErrInvalidToken
	w = doJSON(r, http.MethodGet, "/api/newsletter-unsubscribe?email=a@b.az&token=bad", nil)
	require.Equal(t, 400, w.Code)
	assert.Equal(t, "INVALID_TOKEN", decode(t, w).Error.Code)

	news.unsubscribeErr = utils.ErrSubscriberNotFound
	assert.Equal(t, 404, doJSON(r, http.MethodGet, "/api/newsletter-unsubscribe?email=a@b.az&token=x", nil).Code)
}
