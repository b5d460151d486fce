package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/middleware"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AccountService is the storefront account API.
type AccountService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.OTPResult, error)
	SendOTP(ctx context.Context, phone string) (*service.OTPResult, error)
	VerifyOTP(ctx context.Context, phone, code string) (*service.LoginResult, error)
	Refresh(refresh string) (string, error)
	Profile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, req service.ProfileUpdate, partial bool) (*models.UserProfile, error)
}

// AttemptLimiter throttles repeated authentication failures per IP.
type AttemptLimiter interface {
	Allow(ip string) bool
	Blocked(ip string) bool
}

// AuthHandler serves /api/v1/auth.
type AuthHandler struct {
	accounts AccountService
	limiter  AttemptLimiter
}

func NewAuthHandler(accounts AccountService, limiter AttemptLimiter) *AuthHandler {
	return &AuthHandler{accounts: accounts, limiter: limiter}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, res.Message, res)
}

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.accounts.SendOTP(c.Request.Context(), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, res.Message, res)
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	ip := c.ClientIP()
	if h.limiter.Blocked(ip) {
		tooManyAttempts(c)
		return
	}

	var req struct {
		Phone   string `json:"phone" binding:"required"`
		OTPCode string `json:"otp_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.accounts.VerifyOTP(c.Request.Context(), req.Phone, req.OTPCode)
	if err != nil {
		if errors.Is(err, utils.ErrOTPInvalid) || errors.Is(err, utils.ErrUserNotFound) {
			if !h.limiter.Allow(ip) {
				tooManyAttempts(c)
				return
			}
		}
		// Verify reports an unknown phone as a bad request.
		if errors.Is(err, utils.ErrUserNotFound) {
			utils.Error(c, 400, utils.ErrUserNotFound.Error(), knownErrors[utils.ErrUserNotFound].message)
			return
		}
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Uğurla daxil oldunuz", res)
}

// RefreshToken handles POST /api/v1/auth/token/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	access, err := h.accounts.Refresh(req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Token yeniləndi", gin.H{"access": access})
}

// Profile handles GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	profile, err := h.accounts.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Profile retrieved", profile)
}

// UpdateProfile handles PUT and PATCH /api/v1/auth/profile/update
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	partial := c.Request.Method == http.MethodPatch
	profile, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Profil yeniləndi", profile)
}

func tooManyAttempts(c *gin.Context) {
	utils.Error(c, 429, "TOO_MANY_REQUESTS", "Çoxlu uğursuz cəhd. Bir dəqiqə sonra yenidən cəhd edin")
}
