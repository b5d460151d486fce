package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// Storefront listing sizes.
const (
	DefaultPerPage       = 12
	MaxPerPage           = 48
	HomeProductsLimit    = 12
	NewProductsLimit     = 20
	RelatedProductsLimit = 4
	HeaderRootLimit      = 6
	HeaderChildLimit     = 5
	SuggestProductLimit  = 5
	SuggestCategoryLimit = 3
	MinSuggestLength     = 2
)

// CategoryStore is the category persistence used by the catalog.
type CategoryStore interface {
	GetAll(ctx context.Context) ([]models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Suggest(ctx context.Context, term string, limit int) ([]models.Category, error)
}

// ProductStore is the product persistence used by the catalog.
type ProductStore interface {
	List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error)
	Newest(ctx context.Context, limit int) ([]models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	Related(ctx context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error)
	Suggest(ctx context.Context, term string, limit int) ([]models.Product, error)
	AvailableCountsByCategory(ctx context.Context) (map[int64]int, error)
	Stats(ctx context.Context) (*models.ProductStats, error)
}

// TreeCache memoizes the built category tree.
type TreeCache interface {
	GetTree(ctx context.Context) ([]*models.CategoryNode, bool, error)
	SetTree(ctx context.Context, tree []*models.CategoryNode) error
	Invalidate(ctx context.Context) error
}

// Suggester serves full-text product suggestions.
type Suggester interface {
	Enabled() bool
	Suggest(ctx context.Context, term string, limit int) ([]models.ProductSuggestion, error)
}

// CatalogService serves the storefront: listings, details, navigation and suggestions.
type CatalogService struct {
	categories CategoryStore
	products   ProductStore
	cache      TreeCache
	search     Suggester
}

// NewCatalogService constructs a CatalogService. search may be nil.
func NewCatalogService(categories CategoryStore, products ProductStore, cache TreeCache, search Suggester) *CatalogService {
	return &CatalogService{categories: categories, products: products, cache: cache, search: search}
}

// ProductQuery are the storefront list parameters.
type ProductQuery struct {
	Search       string           `json:"search"`
	CategorySlug string           `json:"category"`
	MinPrice     *decimal.Decimal `json:"min_price"`
	MaxPrice     *decimal.Decimal `json:"max_price"`
	InStock      bool             `json:"in_stock"`
	Sort         string           `json:"sort"`
	Page         int              `json:"page"`
	PerPage      int              `json:"per_page"`
}

// Normalize applies defaults and bounds.
func (q *ProductQuery) Normalize() {
	q.Search = strings.TrimSpace(q.Search)
	if !repository.IsProductSort(q.Sort) {
		q.Sort = "newest"
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []models.ProductView `json:"products"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PerPage  int                  `json:"per_page"`
	Query    ProductQuery         `json:"filters"`
}

// CategoryTree returns the cached tree, rebuilding it on a miss.
func (s *CatalogService) CategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	tree, found, err := s.cache.GetTree(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Category cache read failed, rebuilding from database")
	}
	if found {
		return tree, nil
	}
	return s.RefreshTree(ctx)
}

// RefreshTree rebuilds the tree from the database and stores it in the cache.
func (s *CatalogService) RefreshTree(ctx context.Context) ([]*models.CategoryNode, error) {
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.products.AvailableCountsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	tree := BuildTree(categories, counts)
	if err := s.cache.SetTree(ctx, tree); err != nil {
		log.Warn().Err(err).Msg("Failed to cache category tree")
	}
	return tree, nil
}

// InvalidateTree drops the cached tree.
func (s *CatalogService) InvalidateTree(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// Breadcrumb returns the root-to-leaf path for a category slug.
func (s *CatalogService) Breadcrumb(ctx context.Context, slug string) ([]models.CategoryRef, error) {
	tree, err := s.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	node := FindNode(tree, slug)
	if node == nil {
		return nil, utils.ErrCategoryNotFound
	}
	return NodeBreadcrumb(tree, node.ID), nil
}

// HeaderCategories returns the header navigation. Errors yield empty defaults.
func (s *CatalogService) HeaderCategories(ctx context.Context) models.HeaderCategories {
	out := models.HeaderCategories{Categories: []models.HeaderCategory{}}
	tree, err := s.CategoryTree(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error building header categories")
		return out
	}

	var countWithProducts func([]*models.CategoryNode)
	countWithProducts = func(nodes []*models.CategoryNode) {
		for _, n := range nodes {
			if n.ProductCount > 0 {
				out.TotalCategoriesCount++
			}
			countWithProducts(n.Children)
		}
	}
	countWithProducts(tree)

	// Roots qualify on their whole subtree count, not their direct count, and keep tree priority order rather than name order.
	for _, root := range tree {
		if len(out.Categories) == HeaderRootLimit {
			break
		}
		if root.TotalProductCount == 0 {
			continue
		}
		hc := models.HeaderCategory{
			ID:        root.ID,
			Name:      root.Name,
			Slug:      root.Slug,
			Priority:  root.Priority,
			IconClass: root.IconClass,
			IconColor: root.IconColor,
			IconImage: root.IconImage,
			Children:  []models.CategoryRef{},
		}
		for _, child := range root.Children {
			if len(hc.Children) == HeaderChildLimit {
				break
			}
			if child.TotalProductCount > 0 {
				hc.Children = append(hc.Children, models.CategoryRef{ID: child.ID, Name: child.Name, Slug: child.Slug})
			}
		}
		hc.HasChildren = len(hc.Children) > 0
		out.Categories = append(out.Categories, hc)
	}
	return out
}

// ListProducts returns available products filtered by q. An unknown category yields an empty page.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	q.Normalize()
	page := &ProductPage{Products: []models.ProductView{}, Page: q.Page, PerPage: q.PerPage, Query: q}

	available := true
	filter := repository.ProductFilter{
		Search:    q.Search,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		InStock:   q.InStock,
		Available: &available,
		Sort:      q.Sort,
		Page:      q.Page,
		PerPage:   q.PerPage,
	}

	if q.CategorySlug != "" {
		tree, err := s.CategoryTree(ctx)
		if err != nil {
			return nil, err
		}
		node := FindNode(tree, q.CategorySlug)
		if node == nil {
			return page, nil
		}
		filter.CategoryIDs = SubtreeIDs(node)
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page.Products = models.Views(products)
	page.Total = total
	return page, nil
}

// NewProducts returns the newest available products.
func (s *CatalogService) NewProducts(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.products.Newest(ctx, NewProductsLimit)
	if err != nil {
		return nil, err
	}
	return models.Views(products), nil
}

// ProductDetail is a product page.
type ProductDetail struct {
	Product    models.ProductView   `json:"product"`
	Breadcrumb []models.CategoryRef `json:"breadcrumb"`
	Related    []models.ProductView `json:"related_products"`
}

// ProductDetail returns an available product with breadcrumb and related items.
func (s *CatalogService) ProductDetail(ctx context.Context, slug string) (*ProductDetail, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	if !p.Available {
		return nil, utils.ErrProductNotFound
	}

	detail := &ProductDetail{Product: p.View(), Breadcrumb: []models.CategoryRef{}, Related: []models.ProductView{}}

	if tree, err := s.CategoryTree(ctx); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("Breadcrumb unavailable")
	} else {
		detail.Breadcrumb = NodeBreadcrumb(tree, p.CategoryID)
	}

	related, err := s.products.Related(ctx, p.CategoryID, p.ID, RelatedProductsLimit)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("Related products unavailable")
	} else {
		detail.Related = models.Views(related)
	}
	return detail, nil
}

// CategoryDetail is a category page.
type CategoryDetail struct {
	Category   *models.CategoryNode `json:"category"`
	Breadcrumb []models.CategoryRef `json:"breadcrumb"`
	Products   *ProductPage         `json:"products"`
}

// CategoryDetail returns a category with its subtree products.
func (s *CatalogService) CategoryDetail(ctx context.Context, slug string, q ProductQuery) (*CategoryDetail, error) {
	tree, err := s.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	node := FindNode(tree, slug)
	if node == nil {
		return nil, utils.ErrCategoryNotFound
	}

	q.CategorySlug = slug
	page, err := s.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: node, Breadcrumb: NodeBreadcrumb(tree, node.ID), Products: page}, nil
}

// Home is the landing page payload.
type Home struct {
	Products   []models.ProductView    `json:"products"`
	Categories models.HeaderCategories `json:"categories"`
	Stats      models.ProductStats     `json:"stats"`
}

// Home returns the landing page. Each part degrades to an empty value on error.
func (s *CatalogService) Home(ctx context.Context) *Home {
	home := &Home{Products: []models.ProductView{}}
	if products, err := s.products.Newest(ctx, HomeProductsLimit); err != nil {
		log.Error().Err(err).Msg("Home products unavailable")
	} else {
		home.Products = models.Views(products)
	}
	home.Categories = s.HeaderCategories(ctx)
	home.Stats = s.Stats(ctx)
	return home
}

// Stats returns catalog counters, zeros on error.
func (s *CatalogService) Stats(ctx context.Context) models.ProductStats {
	stats, err := s.products.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Product stats unavailable")
		return models.ProductStats{}
	}
	return *stats
}

// Suggestions is the search-as-you-type payload.
type Suggestions struct {
	Products   []models.ProductSuggestion `json:"products"`
	Categories []models.CategoryRef       `json:"categories"`
}

// Suggestions returns product and category matches for term. Terms shorter
// than two characters and backend failures yield empty lists.
func (s *CatalogService) Suggestions(ctx context.Context, term string) Suggestions {
	out := Suggestions{Products: []models.ProductSuggestion{}, Categories: []models.CategoryRef{}}
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSuggestLength {
		return out
	}

	out.Products = s.suggestProducts(ctx, term)

	categories, err := s.categories.Suggest(ctx, term, SuggestCategoryLimit)
	if err != nil {
		log.Error().Err(err).Str("q", term).Msg("Category suggestions failed")
		return out
	}
	for i := range categories {
		out.Categories = append(out.Categories, categories[i].Ref())
	}
	return out
}

func (s *CatalogService) suggestProducts(ctx context.Context, term string) []models.ProductSuggestion {
	if s.search != nil && s.search.Enabled() {
		hits, err := s.search.Suggest(ctx, term, SuggestProductLimit)
		if err == nil {
			return hits
		}
		log.Warn().Err(err).Str("q", term).Msg("Search backend failed, falling back to database")
	}

	products, err := s.products.Suggest(ctx, term, SuggestProductLimit)
	if err != nil {
		log.Error().Err(err).Str("q", term).Msg("Product suggestions failed")
		return []models.ProductSuggestion{}
	}
	out := make([]models.ProductSuggestion, 0, len(products))
	for _, p := range products {
		out = append(out, models.ProductSuggestion{
			Name:     p.Name,
			Slug:     p.Slug,
			Price:    p.Price,
			Image:    p.Image,
			Category: p.CategoryName,
		})
	}
	return out
}
