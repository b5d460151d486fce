package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// StorefrontWidgets are the small catalog reads behind the AJAX endpoints.
type StorefrontWidgets interface {
	Suggestions(ctx context.Context, term string) service.Suggestions
	Stats(ctx context.Context) models.ProductStats
}

// Newsletter manages newsletter subscriptions.
type Newsletter interface {
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Unsubscribe(ctx context.Context, email, token string) error
}

// AjaxHandler serves the storefront's asynchronous endpoints.
type AjaxHandler struct {
	widgets    StorefrontWidgets
	newsletter Newsletter
}

func NewAjaxHandler(widgets StorefrontWidgets, newsletter Newsletter) *AjaxHandler {
	return &AjaxHandler{widgets: widgets, newsletter: newsletter}
}

// SearchSuggestions handles GET /api/search-suggestions?q= and /api/v1/search
func (h *AjaxHandler) SearchSuggestions(c *gin.Context) {
	utils.Success(c, 200, "Suggestions retrieved", h.widgets.Suggestions(c.Request.Context(), c.Query("q")))
}

// ProductStats handles GET /api/product-stats
func (h *AjaxHandler) ProductStats(c *gin.Context) {
	utils.Success(c, 200, "Stats retrieved", h.widgets.Stats(c.Request.Context()))
}

// Subscribe handles POST /api/newsletter-subscribe
func (h *AjaxHandler) Subscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sub, err := h.newsletter.Subscribe(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, utils.ErrAlreadySubscribed):
		utils.Success(c, 200, "Bu e-poçt artıq abunədir", gin.H{"email": sub.Email, "already_subscribed": true})
	case err != nil:
		respondError(c, err)
	default:
		utils.Success(c, 201, "Uğurla abunə oldunuz!", gin.H{"email": sub.Email, "already_subscribed": false})
	}
}

// Unsubscribe handles GET /api/newsletter-unsubscribe?email=&token=
func (h *AjaxHandler) Unsubscribe(c *gin.Context) {
	if err := h.newsletter.Unsubscribe(c.Request.Context(), c.Query("email"), c.Query("token")); err != nil {
		if errors.Is(err, utils.ErrInvalidToken) {
			utils.Error(c, 400, "INVALID_TOKEN", "Abunəlikdən çıxma linki etibarsızdır")
			return
		}
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Abunəlikdən çıxdınız", nil)
}
