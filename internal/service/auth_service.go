package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/config"
	"github.com/GTDGit/dropaz_api/internal/database"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// Registration age bounds.
const (
	MinUserAge = 16
	MaxUserAge = 100
)

// UserStore is the persistence used by AuthService.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	SetOTP(ctx context.Context, id int64, code string, createdAt time.Time) error
	ClaimOTPAttempt(ctx context.Context, id int64, maxAttempts int, issuedAfter time.Time) (int, error)
	MarkVerified(ctx context.Context, id int64, loginAt time.Time) error
	UpdateProfile(ctx context.Context, u *models.User) error
}

// AuthService registers storefront users and logs them in with one-time codes.
type AuthService struct {
	users  UserStore
	sender OTPSender
	tokens *utils.JWTManager
	otp    config.OTPConfig
	debug  bool
	now    func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users UserStore, sender OTPSender, tokens *utils.JWTManager, otp config.OTPConfig, debug bool) *AuthService {
	return &AuthService{
		users:  users,
		sender: sender,
		tokens: tokens,
		otp:    otp,
		debug:  debug,
		now:    time.Now,
	}
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Phone     string       `json:"phone" binding:"required"`
	FirstName string       `json:"first_name" binding:"required"`
	Gender    string       `json:"gender" binding:"required"`
	BirthDate *models.Date `json:"birth_date"`
}

// OTPResult is returned after a code was issued. OTPCode is only set in debug mode.
type OTPResult struct {
	Message string  `json:"message"`
	Phone   string  `json:"phone"`
	OTPCode *string `json:"otp_code"`
}

// LoginResult is returned after a successful verification.
type LoginResult struct {
	Access  string             `json:"access"`
	Refresh string             `json:"refresh"`
	User    models.UserProfile `json:"user"`
}

// Register creates the user and sends the first code.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*OTPResult, error) {
	verr := utils.NewValidationError()

	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		verr.Add("phone", "Düzgün telefon nömrəsi daxil edin")
	}
	firstName := strings.TrimSpace(req.FirstName)
	s.validateFirstName(verr, firstName)
	s.validateGender(verr, req.Gender)
	s.validateBirthDate(verr, req.BirthDate)

	if phone != "" {
		exists, err := s.users.ExistsByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if exists {
			verr.Add("phone", "Bu nömrə artıq qeydiyyatdan keçib")
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	user := &models.User{
		Phone:     phone,
		FirstName: firstName,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			verr.Add("phone", "Bu nömrə artıq qeydiyyatdan keçib")
			return nil, verr
		}
		return nil, err
	}
	log.Info().Int64("user_id", user.ID).Str("phone", phone).Msg("User registered")

	code, err := s.issueOTP(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.otpResult("Qeydiyyat uğurlu oldu! OTP kodu göndərildi.", phone, code), nil
}

// SendOTP issues a new code to a registered phone, honouring the resend cooldown.
func (s *AuthService) SendOTP(ctx context.Context, rawPhone string) (*OTPResult, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		verr := utils.NewValidationError()
		verr.Add("phone", "Düzgün telefon nömrəsi daxil edin")
		return nil, verr
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			verr := utils.NewValidationError()
			verr.Add("phone", "Bu nömrə qeydiyyatdan keçməyib")
			return nil, verr
		}
		return nil, err
	}

	if user.OTPCreatedAt != nil {
		elapsed := s.now().Sub(*user.OTPCreatedAt)
		if elapsed < s.otp.ResendCooldown {
			remaining := int(math.Ceil((s.otp.ResendCooldown - elapsed).Seconds()))
			return nil, &utils.CooldownError{Remaining: remaining}
		}
	}

	code, err := s.issueOTP(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.otpResult("OTP kodu göndərildi", phone, code), nil
}

// VerifyOTP checks a code and returns a token pair on success.
// Failures are indistinguishable to the caller: expired, exhausted and wrong codes all return ErrOTPInvalid.
func (s *AuthService) VerifyOTP(ctx context.Context, rawPhone, code string) (*LoginResult, error) {
	verr := utils.NewValidationError()
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		verr.Add("phone", "Düzgün telefon nömrəsi daxil edin")
	}
	if !utils.IsOTPFormat(code) {
		verr.Add("otp_code", "OTP kodu 6 rəqəmdən ibarət olmalıdır")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	switch {
	case user.OTPCode == nil || user.OTPCreatedAt == nil:
		return nil, utils.ErrOTPInvalid
	case now.Sub(*user.OTPCreatedAt) > s.otp.TTL:
		return nil, utils.ErrOTPInvalid
	case user.OTPAttempts >= s.otp.MaxAttempts:
		return nil, utils.ErrOTPInvalid
	}

	// Spend the attempt before comparing; no row means the budget is used up or the code expired.
	attempts, err := s.users.ClaimOTPAttempt(ctx, user.ID, s.otp.MaxAttempts, now.Add(-s.otp.TTL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrOTPInvalid
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(*user.OTPCode), []byte(code)) != 1 {
		log.Warn().Int64("user_id", user.ID).Int("attempts", attempts).Msg("Wrong OTP code")
		return nil, utils.ErrOTPInvalid
	}

	if err := s.users.MarkVerified(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.IsPhoneVerified = true
	user.OTPCode, user.OTPCreatedAt, user.OTPAttempts = nil, nil, 0
	user.LastLogin = &now

	pair, err := s.tokens.GeneratePair(user.ID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", user.ID).Msg("User logged in")
	return &LoginResult{Access: pair.Access, Refresh: pair.Refresh, User: user.Profile(now)}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(refresh string) (string, error) {
	claims, err := s.tokens.Validate(refresh, utils.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.tokens.GenerateAccess(claims.UserID)
}

// Profile returns the profile of an authenticated user.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile(s.now())
	return &p, nil
}

// ProfileUpdate carries editable profile fields. Nil means "not sent".
type ProfileUpdate struct {
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Email     *string      `json:"email" binding:"omitempty,email"`
	Gender    *string      `json:"gender"`
	BirthDate *models.Date `json:"birth_date"`
}

// UpdateProfile applies a full (PUT) or partial (PATCH) profile update.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req ProfileUpdate, partial bool) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	verr := utils.NewValidationError()
	if !partial {
		if req.FirstName == nil {
			verr.Add("first_name", "Bu sahə tələb olunur")
		}
		if req.Gender == nil {
			verr.Add("gender", "Bu sahə tələb olunur")
		}
	}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		s.validateFirstName(verr, name)
		user.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if utf8.RuneCountInString(name) > 50 {
			verr.Add("last_name", "Soyad maksimum 50 simvol ola bilər")
		}
		user.LastName = name
	}
	if req.Gender != nil {
		s.validateGender(verr, *req.Gender)
		user.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		s.validateBirthDate(verr, req.BirthDate)
		user.BirthDate = req.BirthDate
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		user.Email = &email
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	p := user.Profile(s.now())
	return &p, nil
}

func (s *AuthService) activeUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, utils.ErrAccountInactive
	}
	return user, nil
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User) (string, error) {
	code, err := utils.GenerateOTPCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.users.SetOTP(ctx, user.ID, code, s.now()); err != nil {
		return "", err
	}
	if err := s.sender.SendOTP(ctx, user.Phone, code); err != nil {
		log.Error().Err(err).Str("phone", user.Phone).Msg("Failed to deliver OTP")
		return "", err
	}
	return code, nil
}

func (s *AuthService) otpResult(message, phone, code string) *OTPResult {
	res := &OTPResult{Message: message, Phone: phone}
	if s.debug {
		res.OTPCode = &code
	}
	return res
}

func (s *AuthService) validateFirstName(verr *utils.ValidationError, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n < 2:
		verr.Add("first_name", "Ad minimum 2 simvol olmalıdır")
	case n > 50:
		verr.Add("first_name", "Ad maksimum 50 simvol ola bilər")
	}
}

func (s *AuthService) validateGender(verr *utils.ValidationError, gender string) {
	if gender != models.GenderMale && gender != models.GenderFemale {
		verr.Add("gender", "Cins 'M' və ya 'F' olmalıdır")
	}
}

func (s *AuthService) validateBirthDate(verr *utils.ValidationError, bd *models.Date) {
	if bd == nil || bd.IsZero() {
		return
	}
	age := bd.YearsSince(s.now())
	switch {
	case age < MinUserAge:
		verr.Add("birth_date", "Yaşınız minimum 16 olmalıdır")
	case age > MaxUserAge:
		verr.Add("birth_date", "Doğum tarixi düzgün deyil")
	}
}
