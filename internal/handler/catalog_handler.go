package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// Catalog is the storefront read API.
type Catalog interface {
	Home(ctx context.Context) *service.Home
	ListProducts(ctx context.Context, q service.ProductQuery) (*service.ProductPage, error)
	NewProducts(ctx context.Context) ([]models.ProductView, error)
	ProductDetail(ctx context.Context, slug string) (*service.ProductDetail, error)
	CategoryTree(ctx context.Context) ([]*models.CategoryNode, error)
	CategoryDetail(ctx context.Context, slug string, q service.ProductQuery) (*service.CategoryDetail, error)
	HeaderCategories(ctx context.Context) models.HeaderCategories
	Breadcrumb(ctx context.Context, slug string) ([]models.CategoryRef, error)
	InvalidateTree(ctx context.Context) error
}

// CatalogHandler serves the storefront pages as JSON.
type CatalogHandler struct {
	catalog Catalog
}

func NewCatalogHandler(catalog Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// productQuery reads the listing filters. Malformed numbers are ignored.
func productQuery(c *gin.Context) service.ProductQuery {
	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}
	inStock := queryBool(c, "in_stock")
	return service.ProductQuery{
		Search:       search,
		CategorySlug: c.Query("category"),
		MinPrice:     queryDecimal(c, "min_price"),
		MaxPrice:     queryDecimal(c, "max_price"),
		InStock:      inStock != nil && *inStock,
		Sort:         c.Query("sort"),
		Page:         queryInt(c, "page", 1),
		PerPage:      queryInt(c, "per_page", service.DefaultPerPage),
	}
}

// parsePriceRange reads "100-500" from the /products/price/:range route.
func parsePriceRange(raw string) (lower, upper *decimal.Decimal) {
	lo, hi, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, nil
	}
	if d, err := decimal.NewFromString(lo); err == nil && !d.IsNegative() {
		lower = &d
	}
	if d, err := decimal.NewFromString(hi); err == nil && !d.IsNegative() {
		upper = &d
	}
	return lower, upper
}

// Home handles GET / and /ana-sehife
func (h *CatalogHandler) Home(c *gin.Context) {
	utils.Success(c, 200, "Home retrieved", h.catalog.Home(c.Request.Context()))
}

// ListProducts handles the product listing and all of its aliases.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	q := productQuery(c)
	if slug := c.Param("category_slug"); slug != "" {
		q.CategorySlug = slug
	}
	if raw := c.Param("range"); raw != "" {
		q.MinPrice, q.MaxPrice = parsePriceRange(raw)
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Product listing failed")
		q.Normalize()
		page = &service.ProductPage{Products: []models.ProductView{}, Page: q.Page, PerPage: q.PerPage, Query: q}
	}
	utils.SuccessWithPagination(c, 200, "Products retrieved", page, page.Page, page.PerPage, page.Total)
}

// NewProducts handles GET /yenilikler
func (h *CatalogHandler) NewProducts(c *gin.Context) {
	products, err := h.catalog.NewProducts(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("New products unavailable")
		products = []models.ProductView{}
	}
	utils.Success(c, 200, "New products retrieved", products)
}

// ProductDetail handles GET /product/:slug and /mehsul/:slug
func (h *CatalogHandler) ProductDetail(c *gin.Context) {
	detail, err := h.catalog.ProductDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", detail)
}

// Categories handles GET /categories, /kateqoriyalar and /api/category-tree
func (h *CatalogHandler) Categories(c *gin.Context) {
	tree, err := h.catalog.CategoryTree(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Category tree unavailable")
		tree = []*models.CategoryNode{}
	}
	utils.Success(c, 200, "Categories retrieved", tree)
}

// CategoryDetail handles GET /category/:slug, /kateqoriya/:slug and /api/v1/categories?slug=
// Without a slug the API route falls back to the whole tree.
func (h *CatalogHandler) CategoryDetail(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		slug = c.Query("slug")
	}
	if slug == "" {
		h.Categories(c)
		return
	}

	detail, err := h.catalog.CategoryDetail(c.Request.Context(), slug, productQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	p := detail.Products
	utils.SuccessWithPagination(c, 200, "Category retrieved", detail, p.Page, p.PerPage, p.Total)
}

// HeaderCategories handles GET /api/header-categories
func (h *CatalogHandler) HeaderCategories(c *gin.Context) {
	utils.Success(c, 200, "Header categories retrieved", h.catalog.HeaderCategories(c.Request.Context()))
}

// Breadcrumb handles GET /api/category-breadcrumb/:slug
func (h *CatalogHandler) Breadcrumb(c *gin.Context) {
	crumbs, err := h.catalog.Breadcrumb(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Breadcrumb retrieved", crumbs)
}

// ClearCategoryCache handles POST /api/clear-category-cache (admin only).
func (h *CatalogHandler) ClearCategoryCache(c *gin.Context) {
	if err := h.catalog.InvalidateTree(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Kateqoriya keşi təmizləndi", nil)
}
