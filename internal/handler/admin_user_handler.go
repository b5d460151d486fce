package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminUsers lists storefront accounts.
type AdminUsers interface {
	List(ctx context.Context, f repository.UserFilter) ([]service.AdminUserRow, int, error)
}

type AdminUserHandler struct {
	users AdminUsers
}

func NewAdminUserHandler(users AdminUsers) *AdminUserHandler {
	return &AdminUserHandler{users: users}
}

// List handles GET /admin/api/users
func (h *AdminUserHandler) List(c *gin.Context) {
	filter := repository.UserFilter{
		IsPhoneVerified: queryBool(c, "is_phone_verified"),
		Search:          c.Query("search"),
		Page:            queryInt(c, "page", 1),
		PerPage:         queryInt(c, "per_page", 20),
	}
	if g := c.Query("gender"); g == models.GenderMale || g == models.GenderFemale {
		filter.Gender = g
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	rows, total, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, 200, "Users retrieved", rows, filter.Page, filter.PerPage, total)
}
