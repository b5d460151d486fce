package handler

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminProducts is the back office product API.
type AdminProducts interface {
	List(ctx context.Context, f repository.ProductFilter) ([]models.ProductView, int, error)
	Get(ctx context.Context, id int64) (*models.ProductView, error)
	Create(ctx context.Context, in service.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, in service.ProductInput) (*models.Product, error)
	Patch(ctx context.Context, id int64, in service.ProductPatchInput) (*models.Product, error)
	Bulk(ctx context.Context, ids []int64, action string) (*service.BulkResult, error)
	Delete(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, id int64, up service.Upload) (*models.Product, error)
	ExportCSV(ctx context.Context, w io.Writer, ids []int64) error
}

// AdminProductHandler handles product CRUD HTTP endpoints.
type AdminProductHandler struct {
	products AdminProducts
}

// NewAdminProductHandler constructs an AdminProductHandler.
func NewAdminProductHandler(products AdminProducts) *AdminProductHandler {
	return &AdminProductHandler{products: products}
}

// List handles GET /admin/api/products
func (h *AdminProductHandler) List(c *gin.Context) {
	filter := repository.ProductFilter{
		Search:     c.Query("search"),
		Available:  queryBool(c, "available"),
		StockLevel: c.Query("stock_level"),
		Page:       queryInt(c, "page", 1),
		PerPage:    queryInt(c, "per_page", service.AdminProductsPerPage),
	}
	if ids := parseIDList(c.Query("category_id")); len(ids) == 1 {
		filter.CategoryIDs = ids
	}
	filter.CreatedFrom = queryDate(c, "created_from", false)
	filter.CreatedTo = queryDate(c, "created_to", true)

	rows, total, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.ProductView{}
	}
	if filter.PerPage <= 0 || filter.PerPage > 100 {
		filter.PerPage = service.AdminProductsPerPage
	}
	utils.SuccessWithPagination(c, 200, "Products retrieved", rows, filter.Page, filter.PerPage, total)
}

// Get handles GET /admin/api/products/:id
func (h *AdminProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", product)
}

// Create handles POST /admin/api/products
func (h *AdminProductHandler) Create(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Məhsul yaradıldı", product.View())
}

// Update handles PUT /admin/api/products/:id
func (h *AdminProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Məhsul yeniləndi", product.View())
}

// Patch handles PATCH /admin/api/products/:id (inline price, stock and availability edits).
func (h *AdminProductHandler) Patch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.ProductPatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	product, err := h.products.Patch(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Məhsul yeniləndi", product.View())
}

// Bulk handles POST /admin/api/products/bulk
func (h *AdminProductHandler) Bulk(c *gin.Context) {
	var req struct {
		IDs    []int64 `json:"ids" binding:"required"`
		Action string  `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.products.Bulk(c.Request.Context(), req.IDs, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, res.Message, res)
}

// Delete handles DELETE /admin/api/products/:id
func (h *AdminProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Məhsul silindi", nil)
}

// UploadImage handles POST /admin/api/products/:id/image (multipart "file").
func (h *AdminProductHandler) UploadImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	up, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	product, err := h.products.UploadImage(c.Request.Context(), id, up)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Şəkil yükləndi", product.View())
}

// Export handles GET /admin/api/products/export[?ids=1,2]
func (h *AdminProductHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.products.ExportCSV(c.Request.Context(), &buf, parseIDList(c.Query("ids"))); err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, "products", buf.Bytes())
}

// queryDate parses a YYYY-MM-DD filter in Baku time. endOfDay moves it to the last instant of that day.
func queryDate(c *gin.Context, key string, endOfDay bool) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(models.DateLayout, raw, utils.Baku)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}
