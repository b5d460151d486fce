package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// AdminStore is the persistence used by AdminAuthService.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	TouchLastLogin(ctx context.Context, id int64) error
}

type AdminAuthService struct {
	adminRepo AdminStore
	tokens    *utils.JWTManager
}

func NewAdminAuthService(adminRepo AdminStore, tokens *utils.JWTManager) *AdminAuthService {
	return &AdminAuthService{adminRepo: adminRepo, tokens: tokens}
}

func (s *AdminAuthService) Login(ctx context.Context, email, password string) (string, error) {
	log.Debug().Str("email", email).Msg("Login attempt")

	user, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Str("email", email).Msg("Failed to get user by email")
		}
		return "", utils.ErrInvalidCredentials
	}

	if !user.IsActive {
		log.Warn().Str("email", email).Msg("Account is inactive")
		return "", utils.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Password verification failed")
		return "", utils.ErrInvalidCredentials
	}

	if err := s.adminRepo.TouchLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Int64("admin_id", user.ID).Msg("Failed to record admin login")
	}
	log.Info().Str("email", email).Msg("Login successful")

	return s.tokens.GenerateAdmin(user.ID, user.Email)
}

func (s *AdminAuthService) CreateAdmin(ctx context.Context, email, password, name string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.AdminUser{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hashedPassword),
		Name:         name,
		IsActive:     true,
	}

	return s.adminRepo.Create(ctx, user)
}

// EnsureAdmin creates the bootstrap account when it does not exist yet.
func (s *AdminAuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.adminRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err := s.CreateAdmin(ctx, email, password, name); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("Bootstrap admin created")
	return nil
}
