package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminCategories is the back office category API.
type AdminCategories interface {
	List(ctx context.Context, f repository.AdminCategoryFilter) ([]models.AdminCategoryRow, int, error)
	Get(ctx context.Context, id int64) (*service.AdminCategoryView, error)
	Create(ctx context.Context, in service.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id int64, in service.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
	SetPriority(ctx context.Context, id int64, priority int) (*models.Category, error)
	BulkSetPriority(ctx context.Context, ids []int64, priority int) (int64, error)
	UploadIcon(ctx context.Context, id int64, up service.Upload) (*models.Category, error)
	ExportCSV(ctx context.Context, w io.Writer, ids []int64) error
}

// AdminCategoryHandler handles category CRUD HTTP endpoints.
type AdminCategoryHandler struct {
	categories AdminCategories
}

// NewAdminCategoryHandler constructs an AdminCategoryHandler.
func NewAdminCategoryHandler(categories AdminCategories) *AdminCategoryHandler {
	return &AdminCategoryHandler{categories: categories}
}

// List handles GET /admin/api/categories
func (h *AdminCategoryHandler) List(c *gin.Context) {
	filter := repository.AdminCategoryFilter{
		Search:  c.Query("search"),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 20),
	}
	switch parent := c.Query("parent_id"); parent {
	case "":
	case "root":
		filter.RootOnly = true
	default:
		if ids := parseIDList(parent); len(ids) == 1 {
			filter.ParentID = &ids[0]
		}
	}

	rows, total, err := h.categories.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.AdminCategoryRow{}
	}
	utils.SuccessWithPagination(c, 200, "Categories retrieved", rows, filter.Page, filter.PerPage, total)
}

// Get handles GET /admin/api/categories/:id
func (h *AdminCategoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Category retrieved", view)
}

// Create handles POST /admin/api/categories
func (h *AdminCategoryHandler) Create(c *gin.Context) {
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Kateqoriya yaradıldı", category)
}

// Update handles PUT /admin/api/categories/:id
func (h *AdminCategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	category, err := h.categories.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Kateqoriya yeniləndi", category)
}

// Delete handles DELETE /admin/api/categories/:id
func (h *AdminCategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Kateqoriya silindi", nil)
}

// SetPriority handles PATCH /admin/api/categories/:id/priority
func (h *AdminCategoryHandler) SetPriority(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Priority *int `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	category, err := h.categories.SetPriority(c.Request.Context(), id, *req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Prioritet yeniləndi", gin.H{
		"id":             category.ID,
		"priority":       category.Priority,
		"priority_level": models.PriorityLevelOf(category.Priority),
	})
}

// BulkPriority handles POST /admin/api/categories/bulk-priority
func (h *AdminCategoryHandler) BulkPriority(c *gin.Context) {
	var req struct {
		IDs      []int64 `json:"ids" binding:"required"`
		Priority *int    `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	updated, err := h.categories.BulkSetPriority(c.Request.Context(), req.IDs, *req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, fmt.Sprintf("%d kateqoriyanın prioriteti yeniləndi", updated), gin.H{"updated": updated})
}

// UploadIcon handles POST /admin/api/categories/:id/icon (multipart "file").
func (h *AdminCategoryHandler) UploadIcon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	up, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	category, err := h.categories.UploadIcon(c.Request.Context(), id, up)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "İkon yükləndi", category)
}

// Export handles GET /admin/api/categories/export[?ids=1,2]
func (h *AdminCategoryHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.categories.ExportCSV(c.Request.Context(), &buf, parseIDList(c.Query("ids"))); err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, "categories", buf.Bytes())
}

// Icons handles GET /admin/api/icons?q=&group=
func (h *AdminCategoryHandler) Icons(c *gin.Context) {
	utils.Success(c, 200, "Icons retrieved", service.SearchIcons(c.Query("q"), c.Query("group")))
}

// PriorityPresets handles GET /admin/api/priority-presets
func (h *AdminCategoryHandler) PriorityPresets(c *gin.Context) {
	presets := make([]gin.H, 0, len(models.PriorityPresets))
	for _, p := range models.PriorityPresets {
		presets = append(presets, gin.H{
			"name":  p.Name,
			"value": p.Value,
			"level": models.PriorityLevelOf(p.Value),
		})
	}
	utils.Success(c, 200, "Priority presets retrieved", presets)
}

// readUpload opens the multipart "file" field. The caller must call the returned close func.
func readUpload(c *gin.Context) (service.Upload, func(), bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		verr := utils.NewValidationError()
		verr.Add("file", "Fayl seçilməyib")
		utils.ValidationFailed(c, verr)
		return service.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return service.Upload{}, nil, false
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, true
}

func sendCSV(c *gin.Context, name string, body []byte) {
	filename := fmt.Sprintf("%s_%s.csv", name, time.Now().In(utils.Baku).Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "text/csv; charset=utf-8", body)
}
