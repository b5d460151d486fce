package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/database"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/sse"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// Bulk availability actions.
const (
	ActionMakeAvailable   = "make_available"
	ActionMakeUnavailable = "make_unavailable"
)

// AdminProductsPerPage is the back office page size.
const AdminProductsPerPage = 20

// maxPrice is the first value that no longer fits NUMERIC(10,2).
var maxPrice = decimal.NewFromInt(100_000_000)

// AdminProductStore is the product persistence used by the back office.
type AdminProductStore interface {
	List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Patch(ctx context.Context, id int64, patch repository.ProductPatch) error
	SetAvailable(ctx context.Context, ids []int64, available bool) (int64, error)
	UpdateImage(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}

// CategoryLookup resolves the category of a product.
type CategoryLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Category, error)
}

// ProductIndexer keeps the search index in sync with product writes.
type ProductIndexer interface {
	Enabled() bool
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// ProductImageUploader stores product images.
type ProductImageUploader interface {
	UploadProductImage(ctx context.Context, productID int64, up Upload) (string, error)
}

// AdminProductService manages products in the back office.
type AdminProductService struct {
	products   AdminProductStore
	categories CategoryLookup
	cache      TreeInvalidator
	search     ProductIndexer
	storage    ProductImageUploader
	notifier   sse.CatalogNotifier
}

// NewAdminProductService constructs an AdminProductService. search may be nil.
func NewAdminProductService(
	products AdminProductStore,
	categories CategoryLookup,
	cache TreeInvalidator,
	search ProductIndexer,
	storage ProductImageUploader,
	notifier sse.CatalogNotifier,
) *AdminProductService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &AdminProductService{
		products:   products,
		categories: categories,
		cache:      cache,
		search:     search,
		storage:    storage,
		notifier:   notifier,
	}
}

// ProductInput is the create/update payload. Available defaults to true.
type ProductInput struct {
	CategoryID  int64            `json:"category_id" binding:"required"`
	Name        string           `json:"name" binding:"required"`
	Slug        string           `json:"slug"`
	Image       string           `json:"image"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Available   *bool            `json:"available"`
}

// ProductPatchInput is the inline edit payload of the list view.
type ProductPatchInput struct {
	Price     *decimal.Decimal `json:"price"`
	Stock     *int             `json:"stock"`
	Available *bool            `json:"available"`
}

// BulkResult reports a bulk availability change.
type BulkResult struct {
	Updated int64  `json:"updated"`
	Message string `json:"message"`
}

// List returns one page of products. Search also matches slugs.
func (s *AdminProductService) List(ctx context.Context, f repository.ProductFilter) ([]models.ProductView, int, error) {
	f.SearchSlug = true
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 || f.PerPage > 100 {
		f.PerPage = AdminProductsPerPage
	}
	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return models.Views(products), total, nil
}

// Get returns one product.
func (s *AdminProductService) Get(ctx context.Context, id int64) (*models.ProductView, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := p.View()
	return &view, nil
}

// Create validates in and stores a new product.
func (s *AdminProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{Available: true}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, utils.ErrSlugExists
		}
		return nil, err
	}
	log.Info().Int64("product_id", p.ID).Str("slug", p.Slug).Msg("Product created")
	s.changed(ctx, sse.EventProductCreated, p)
	return p, nil
}

// Update validates in and overwrites a product.
func (s *AdminProductService) Update(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, utils.ErrSlugExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	log.Info().Int64("product_id", p.ID).Msg("Product updated")
	s.changed(ctx, sse.EventProductUpdated, p)
	return p, nil
}

// Patch applies an inline price, stock or availability edit.
func (s *AdminProductService) Patch(ctx context.Context, id int64, in ProductPatchInput) (*models.Product, error) {
	verr := utils.NewValidationError()
	if in.Price == nil && in.Stock == nil && in.Available == nil {
		verr.Add("non_field_errors", "Dəyişiklik üçün ən azı bir sahə göndərin")
	}
	if in.Price != nil {
		validatePrice(verr, *in.Price)
	}
	if in.Stock != nil && *in.Stock < 0 {
		verr.Add("stock", "Stok mənfi ola bilməz")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	patch := repository.ProductPatch{Price: in.Price, Stock: in.Stock, Available: in.Available}
	if err := s.products.Patch(ctx, id, patch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, sse.EventProductUpdated, p)
	return p, nil
}

// Bulk switches availability of several products.
func (s *AdminProductService) Bulk(ctx context.Context, ids []int64, action string) (*BulkResult, error) {
	verr := utils.NewValidationError()
	if len(ids) == 0 {
		verr.Add("ids", msgIDsRequired)
	}
	var available bool
	switch action {
	case ActionMakeAvailable:
		available = true
	case ActionMakeUnavailable:
	default:
		verr.Add("action", "Naməlum əməliyyat")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	n, err := s.products.SetAvailable(ctx, ids, available)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Updated: n}
	if available {
		result.Message = fmt.Sprintf("%d məhsul satışa çıxarıldı.", n)
	} else {
		result.Message = fmt.Sprintf("%d məhsul satışdan yığışdırıldı.", n)
	}
	log.Info().Int64("updated", n).Str("action", action).Msg("Bulk product availability changed")

	if s.searchEnabled() {
		if updated, err := s.products.GetByIDs(ctx, ids); err != nil {
			log.Warn().Err(err).Msg("Failed to load products for re-index")
		} else {
			for i := range updated {
				s.reindex(ctx, &updated[i])
			}
		}
	}
	invalidateTree(ctx, s.cache)
	s.notifier.NotifyProductsBulk(ids, available)
	return result, nil
}

// Delete removes a product.
func (s *AdminProductService) Delete(ctx context.Context, id int64) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrProductNotFound
		}
		return err
	}
	if s.searchEnabled() {
		if err := s.search.DeleteProduct(ctx, id); err != nil {
			log.Warn().Err(err).Int64("product_id", id).Msg("Failed to remove product from search index")
		}
	}
	log.Info().Int64("product_id", id).Msg("Product deleted")
	invalidateTree(ctx, s.cache)
	s.notifier.NotifyProduct(sse.EventProductDeleted, p)
	return nil
}

// UploadImage stores a product image and records its URL.
func (s *AdminProductService) UploadImage(ctx context.Context, id int64, up Upload) (*models.Product, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.UploadProductImage(ctx, id, up)
	if err != nil {
		return nil, err
	}
	if err := s.products.UpdateImage(ctx, id, url); err != nil {
		return nil, err
	}
	p.Image = url
	s.reindex(ctx, p)
	s.notifier.NotifyProduct(sse.EventProductUpdated, p)
	return p, nil
}

// ExportCSV writes the selected products, or all of them when ids is empty.
func (s *AdminProductService) ExportCSV(ctx context.Context, w io.Writer, ids []int64) error {
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	return WriteProductsCSV(w, products)
}

func (s *AdminProductService) find(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *AdminProductService) apply(ctx context.Context, p *models.Product, in ProductInput) error {
	verr := utils.NewValidationError()

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", msgRequired)
	case utf8.RuneCountInString(name) > maxNameLength:
		verr.Add("name", msgNameTooLong)
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = name
	}
	slug = utils.Slugify(slug)
	switch {
	case slug == "":
		verr.Add("slug", msgSlugInvalid)
	case len(slug) > maxNameLength:
		verr.Add("slug", msgNameTooLong)
	default:
		taken, err := s.products.SlugExists(ctx, slug, p.ID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add("slug", msgSlugTaken)
		}
	}

	if in.Price == nil {
		verr.Add("price", msgRequired)
	} else {
		validatePrice(verr, *in.Price)
	}
	switch {
	case in.Stock == nil:
		verr.Add("stock", msgRequired)
	case *in.Stock < 0:
		verr.Add("stock", "Stok mənfi ola bilməz")
	}

	var category *models.Category
	if in.CategoryID <= 0 {
		verr.Add("category_id", msgRequired)
	} else {
		c, err := s.categories.GetByID(ctx, in.CategoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			verr.Add("category_id", "Kateqoriya tapılmadı")
		case err != nil:
			return err
		default:
			category = c
		}
	}

	if err := verr.OrNil(); err != nil {
		return err
	}

	p.CategoryID = category.ID
	p.CategoryName = category.Name
	p.CategorySlug = category.Slug
	p.Name = name
	p.Slug = slug
	p.Image = strings.TrimSpace(in.Image)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Stock = *in.Stock
	if in.Available != nil {
		p.Available = *in.Available
	}
	return nil
}

func validatePrice(verr *utils.ValidationError, price decimal.Decimal) {
	switch {
	case price.IsNegative():
		verr.Add("price", "Qiymət mənfi ola bilməz")
	case price.GreaterThanOrEqual(maxPrice):
		verr.Add("price", "Qiymət maksimum 10 rəqəmdən ibarət ola bilər")
	case !price.Equal(price.Truncate(2)):
		verr.Add("price", "Qiymətdə maksimum 2 onluq rəqəm ola bilər")
	}
}

func (s *AdminProductService) searchEnabled() bool {
	return s.search != nil && s.search.Enabled()
}

func (s *AdminProductService) reindex(ctx context.Context, p *models.Product) {
	if !s.searchEnabled() {
		return
	}
	if err := s.search.IndexProduct(ctx, p); err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("Failed to index product")
	}
}

func (s *AdminProductService) changed(ctx context.Context, event sse.EventType, p *models.Product) {
	s.reindex(ctx, p)
	invalidateTree(ctx, s.cache)
	s.notifier.NotifyProduct(event, p)
}
