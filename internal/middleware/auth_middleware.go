package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminMiddleware guards the back office with admin tokens.
type AdminMiddleware struct {
	tokens *utils.JWTManager
}

// NewAdminMiddleware constructs a new AdminMiddleware.
func NewAdminMiddleware(tokens *utils.JWTManager) *AdminMiddleware {
	return &AdminMiddleware{tokens: tokens}
}

// Handle returns a Gin middleware function that requires an admin Bearer token.
func (m *AdminMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		m.authorize(c, token)
	}
}

// HandleQuery reads the token from the "token" query parameter.
// EventSource cannot set headers, so the admin event stream uses this.
func (m *AdminMiddleware) HandleQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
			c.Abort()
			return
		}
		m.authorize(c, token)
	}
}

func (m *AdminMiddleware) authorize(c *gin.Context, token string) {
	claims, err := m.tokens.Validate(token, utils.TokenAdmin)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		c.Abort()
		return
	}

	c.Set(ContextAdminID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Next()
}

// GetAdminID returns the authenticated admin id, or 0.
func GetAdminID(c *gin.Context) int64 {
	return c.GetInt64(ContextAdminID)
}
