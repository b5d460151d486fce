package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminLoginService issues back office tokens.
type AdminLoginService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AdminAuthHandler struct {
	authService AdminLoginService
	limiter     AttemptLimiter
}

func NewAdminAuthHandler(authService AdminLoginService, limiter AttemptLimiter) *AdminAuthHandler {
	return &AdminAuthHandler{authService: authService, limiter: limiter}
}

func (h *AdminAuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	if h.limiter.Blocked(ip) {
		tooManyAttempts(c)
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) || errors.Is(err, utils.ErrAccountInactive) {
			if !h.limiter.Allow(ip) {
				tooManyAttempts(c)
				return
			}
			utils.Error(c, 401, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		respondError(c, err)
		return
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
	})
}
