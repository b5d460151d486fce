package service

import (
	"context"
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
)

// UserLister is the read side of user persistence.
type UserLister interface {
	List(ctx context.Context, f repository.UserFilter) ([]models.User, int, error)
}

// AdminUserRow is a storefront user as listed in the back office.
type AdminUserRow struct {
	models.UserProfile
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
}

type AdminUserService struct {
	users UserLister
	now   func() time.Time
}

func NewAdminUserService(users UserLister) *AdminUserService {
	return &AdminUserService{users: users, now: time.Now}
}

// List returns a page of users with their age computed as of today.
func (s *AdminUserService) List(ctx context.Context, f repository.UserFilter) ([]AdminUserRow, int, error) {
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	rows := make([]AdminUserRow, 0, len(users))
	for i := range users {
		u := &users[i]
		rows = append(rows, AdminUserRow{UserProfile: u.Profile(now), IsActive: u.IsActive, LastLogin: u.LastLogin})
	}
	return rows, total, nil
}
