package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/database"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/sse"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

const (
	msgRequired     = "Bu sahə tələb olunur"
	msgNameTooLong  = "Ad 200 simvoldan uzun ola bilməz"
	msgSlugInvalid  = "Slug yaradıla bilmədi, yalnız hərf və rəqəmlərdən istifadə edin"
	msgSlugTaken    = "Bu slug artıq istifadə olunur"
	msgPriorityNeg  = "Prioritet mənfi ola bilməz"
	msgIconInvalid  = "Düzgün FontAwesome class daxil edin (məs: fas fa-heart)"
	msgColorInvalid = "Rəng #rrggbb formatında olmalıdır"
	msgParentAbsent = "Üst kateqoriya tapılmadı"
	msgIDsRequired  = "Ən azı bir element seçin"
	maxNameLength   = 200
)

var (
	iconClassPattern = regexp.MustCompile(`^(fas|far|fab|fa) fa-[a-z0-9-]+$`)
	colorPattern     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// AdminCategoryStore is the category persistence used by the back office.
type AdminCategoryStore interface {
	AdminList(ctx context.Context, f repository.AdminCategoryFilter) ([]models.AdminCategoryRow, int, error)
	GetAll(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Category, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	UpdatePriority(ctx context.Context, id int64, priority int) error
	BulkUpdatePriority(ctx context.Context, ids []int64, priority int) (int64, error)
	UpdateIconImage(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
}

// TreeInvalidator drops the cached category tree.
type TreeInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CategoryIconUploader stores category icon images.
type CategoryIconUploader interface {
	UploadCategoryIcon(ctx context.Context, categoryID int64, up Upload) (string, error)
}

// AdminCategoryService manages categories in the back office.
type AdminCategoryService struct {
	categories AdminCategoryStore
	cache      TreeInvalidator
	storage    CategoryIconUploader
	notifier   sse.CatalogNotifier
}

// NewAdminCategoryService constructs an AdminCategoryService.
func NewAdminCategoryService(categories AdminCategoryStore, cache TreeInvalidator, storage CategoryIconUploader, notifier sse.CatalogNotifier) *AdminCategoryService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &AdminCategoryService{
		categories: categories,
		cache:      cache,
		storage:    storage,
		notifier:   notifier,
	}
}

// CategoryInput is the create/update payload.
type CategoryInput struct {
	Name      string `json:"name" binding:"required"`
	Slug      string `json:"slug"`
	ParentID  *int64 `json:"parent_id"`
	Priority  int    `json:"priority"`
	IconClass string `json:"icon_class"`
	IconColor string `json:"icon_color"`
}

// AdminCategoryView is a single category with its display helpers and path.
type AdminCategoryView struct {
	models.Category
	PriorityLevel models.PriorityLevel `json:"priority_level"`
	IconInfo      *models.IconInfo     `json:"icon_info"`
	Breadcrumb    []models.CategoryRef `json:"breadcrumb"`
}

// List returns one page of categories for the back office.
func (s *AdminCategoryService) List(ctx context.Context, f repository.AdminCategoryFilter) ([]models.AdminCategoryRow, int, error) {
	return s.categories.AdminList(ctx, f)
}

// Get returns one category.
func (s *AdminCategoryService) Get(ctx context.Context, id int64) (*AdminCategoryView, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &AdminCategoryView{
		Category:      *c,
		PriorityLevel: models.PriorityLevelOf(c.Priority),
		IconInfo:      models.IconInfoOf(c.IconClass),
		Breadcrumb:    []models.CategoryRef{c.Ref()},
	}
	if all, err := s.categories.GetAll(ctx); err != nil {
		log.Warn().Err(err).Int64("category_id", id).Msg("Category path unavailable")
	} else {
		view.Breadcrumb = Breadcrumb(all, id)
	}
	return view, nil
}

// Create validates in and stores a new category.
func (s *AdminCategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, utils.ErrSlugExists
		}
		return nil, err
	}
	log.Info().Int64("category_id", c.ID).Str("slug", c.Slug).Msg("Category created")
	s.changed(ctx, sse.EventCategoryCreated, c)
	return c, nil
}

// Update validates in and overwrites the editable fields of a category.
func (s *AdminCategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*models.Category, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, utils.ErrSlugExists
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrCategoryNotFound
		}
		return nil, err
	}
	log.Info().Int64("category_id", c.ID).Msg("Category updated")
	s.changed(ctx, sse.EventCategoryUpdated, c)
	return c, nil
}

// Delete removes a category together with its subtree and products.
func (s *AdminCategoryService) Delete(ctx context.Context, id int64) error {
	c, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrCategoryNotFound
		}
		return err
	}
	log.Info().Int64("category_id", id).Msg("Category deleted")
	s.changed(ctx, sse.EventCategoryDeleted, c)
	return nil
}

// SetPriority is the quick priority edit of the list view.
func (s *AdminCategoryService) SetPriority(ctx context.Context, id int64, priority int) (*models.Category, error) {
	if priority < 0 {
		verr := utils.NewValidationError()
		verr.Add("priority", msgPriorityNeg)
		return nil, verr
	}
	if err := s.categories.UpdatePriority(ctx, id, priority); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrCategoryNotFound
		}
		return nil, err
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, sse.EventCategoryUpdated, c)
	return c, nil
}

// BulkSetPriority applies one priority to several categories and returns the updated row count.
func (s *AdminCategoryService) BulkSetPriority(ctx context.Context, ids []int64, priority int) (int64, error) {
	verr := utils.NewValidationError()
	if len(ids) == 0 {
		verr.Add("ids", msgIDsRequired)
	}
	if priority < 0 {
		verr.Add("priority", msgPriorityNeg)
	}
	if err := verr.OrNil(); err != nil {
		return 0, err
	}

	n, err := s.categories.BulkUpdatePriority(ctx, ids, priority)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("updated", n).Int("priority", priority).Msg("Category priorities updated")

	s.invalidate(ctx)
	if updated, err := s.categories.GetByIDs(ctx, ids); err == nil {
		for i := range updated {
			s.notifier.NotifyCategory(sse.EventCategoryUpdated, &updated[i])
		}
	}
	return n, nil
}

// UploadIcon stores an icon image for a category and records its URL.
func (s *AdminCategoryService) UploadIcon(ctx context.Context, id int64, up Upload) (*models.Category, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.storage.UploadCategoryIcon(ctx, id, up)
	if err != nil {
		return nil, err
	}
	if err := s.categories.UpdateIconImage(ctx, id, url); err != nil {
		return nil, err
	}
	c.IconImage = url
	s.changed(ctx, sse.EventCategoryUpdated, c)
	return c, nil
}

// ExportCSV writes the selected categories, or all of them when ids is empty.
func (s *AdminCategoryService) ExportCSV(ctx context.Context, w io.Writer, ids []int64) error {
	categories, err := s.categories.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	return WriteCategoriesCSV(w, categories)
}

func (s *AdminCategoryService) find(ctx context.Context, id int64) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

// apply validates in against the current tree and copies it onto c.
// c.ID is zero for a new category.
func (s *AdminCategoryService) apply(ctx context.Context, c *models.Category, in CategoryInput) error {
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
		taken, err := s.categories.SlugExists(ctx, slug, c.ID)
		if err != nil {
			return err
		}
		if taken {
			verr.Add("slug", msgSlugTaken)
		}
	}

	if in.Priority < 0 {
		verr.Add("priority", msgPriorityNeg)
	}

	icon := strings.TrimSpace(in.IconClass)
	if icon != "" && !iconClassPattern.MatchString(icon) {
		verr.Add("icon_class", msgIconInvalid)
	}

	color := strings.TrimSpace(in.IconColor)
	if color == "" {
		color = models.DefaultIconColor
	}
	if !colorPattern.MatchString(color) {
		verr.Add("icon_color", msgColorInvalid)
	}

	var all []models.Category
	if in.ParentID != nil {
		var err error
		all, err = s.categories.GetAll(ctx)
		if err != nil {
			return err
		}
		if _, ok := indexCategories(all)[*in.ParentID]; !ok {
			verr.Add("parent_id", msgParentAbsent)
		}
	}

	if err := verr.OrNil(); err != nil {
		return err
	}

	if in.ParentID != nil {
		if err := checkPlacement(all, c.ID, *in.ParentID); err != nil {
			return err
		}
	}

	c.Name = name
	c.Slug = slug
	c.ParentID = in.ParentID
	c.Priority = in.Priority
	c.IconClass = icon
	c.IconColor = strings.ToLower(color)
	return nil
}

// checkPlacement rejects moving id under parentID when it would create a cycle
// or push any node of its subtree below MaxCategoryDepth. id is zero for a new category.
func checkPlacement(all []models.Category, id, parentID int64) error {
	height := 1
	if id != 0 {
		for _, d := range Descendants(all, id) {
			if d == parentID {
				return utils.ErrCategoryCycle
			}
		}
		height = SubtreeHeight(all, id)
	}
	if Depth(all, parentID)+height > models.MaxCategoryDepth {
		return utils.ErrCategoryDepth
	}
	return nil
}

func (s *AdminCategoryService) changed(ctx context.Context, event sse.EventType, c *models.Category) {
	s.invalidate(ctx)
	s.notifier.NotifyCategory(event, c)
}

func (s *AdminCategoryService) invalidate(ctx context.Context) {
	invalidateTree(ctx, s.cache)
}

func invalidateTree(ctx context.Context, cache TreeInvalidator) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate category tree cache")
	}
}
