package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// SEO renders the crawler documents.
type SEO interface {
	Sitemap(ctx context.Context) ([]byte, error)
	Robots() string
}

// PagesHandler serves static page metadata, the sitemap and robots.txt.
type PagesHandler struct {
	seo SEO
}

func NewPagesHandler(seo SEO) *PagesHandler {
	return &PagesHandler{seo: seo}
}

// StaticPage returns the handler for one informational page.
func (h *PagesHandler) StaticPage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := service.FindStaticPage(page)
		if !ok {
			utils.Error(c, 404, "PAGE_NOT_FOUND", "Səhifə tapılmadı")
			return
		}
		utils.Success(c, 200, p.Title, p)
	}
}

// Pages handles GET /api/pages
func (h *PagesHandler) Pages(c *gin.Context) {
	utils.Success(c, 200, "Pages retrieved", service.StaticPages())
}

// Sitemap handles GET /sitemap.xml
func (h *PagesHandler) Sitemap(c *gin.Context) {
	body, err := h.seo.Sitemap(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(200, "application/xml; charset=utf-8", body)
}

// Robots handles GET /robots.txt
func (h *PagesHandler) Robots(c *gin.Context) {
	c.String(200, h.seo.Robots())
}
