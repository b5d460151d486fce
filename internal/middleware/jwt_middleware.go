package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID  = "user_id"
	ContextAdminID = "admin_id"
	ContextEmail   = "email"
)

// JWTMiddleware authenticates storefront users with a Bearer access token.
type JWTMiddleware struct {
	tokens *utils.JWTManager
}

func NewJWTMiddleware(tokens *utils.JWTManager) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := m.tokens.Validate(token, utils.TokenAccess)
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, aborting with 401 when absent.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
		c.Abort()
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
		c.Abort()
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetUserID returns the authenticated storefront user id, or 0.
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}
