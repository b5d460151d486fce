package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/dropaz_api/internal/models"
)

const userColumns = `id, phone, email, first_name, last_name, gender, birth_date, is_phone_verified,
        otp_code, otp_created_at, otp_attempts, is_active, last_login, created_at, updated_at`

// UserRepository handles data access for storefront users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A duplicate phone surfaces as a unique violation.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (phone, email, first_name, last_name, gender, birth_date)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id, is_active, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query,
		u.Phone, u.Email, u.FirstName, u.LastName, u.Gender, u.BirthDate,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPhone returns a user by E.164 phone.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone); err != nil {
		return nil, err
	}
	return &u, nil
}

// ExistsByPhone reports whether a user with phone exists.
func (r *UserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1)`, phone)
	return exists, err
}

// SetOTP stores a fresh code and resets the attempt counter.
func (r *UserRepository) SetOTP(ctx context.Context, id int64, code string, createdAt time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
        UPDATE users SET otp_code = $2, otp_created_at = $3, otp_attempts = 0, updated_at = NOW()
        WHERE id = $1`, id, code, createdAt))
}

// ClaimOTPAttempt spends one verification attempt on a live code and returns the new count.
// It returns sql.ErrNoRows when the budget is used up or the code was issued before issuedAfter.
func (r *UserRepository) ClaimOTPAttempt(ctx context.Context, id int64, maxAttempts int, issuedAfter time.Time) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts, `
        UPDATE users SET otp_attempts = otp_attempts + 1, updated_at = NOW()
        WHERE id = $1 AND otp_code IS NOT NULL AND otp_attempts < $2 AND otp_created_at > $3
        RETURNING otp_attempts`, id, maxAttempts, issuedAfter)
	return attempts, err
}

// MarkVerified clears OTP state, flags the phone as verified and records the login.
func (r *UserRepository) MarkVerified(ctx context.Context, id int64, loginAt time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `
        UPDATE users SET is_phone_verified = true, otp_code = NULL, otp_created_at = NULL,
            otp_attempts = 0, last_login = $2, updated_at = NOW()
        WHERE id = $1`, id, loginAt))
}

// UpdateProfile saves the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	return r.db.QueryRowxContext(ctx, `
        UPDATE users SET first_name = $2, last_name = $3, email = $4, gender = $5, birth_date = $6,
            updated_at = NOW()
        WHERE id = $1 RETURNING updated_at`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Gender, u.BirthDate,
	).Scan(&u.UpdatedAt)
}

// ClearExpiredOTP wipes codes issued before cutoff and returns the number of users touched.
func (r *UserRepository) ClearExpiredOTP(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE users SET otp_code = NULL, otp_created_at = NULL, otp_attempts = 0, updated_at = NOW()
        WHERE otp_code IS NOT NULL AND otp_created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UserFilter narrows the back office user list.
type UserFilter struct {
	IsPhoneVerified *bool
	Gender          string
	Search          string
	Page            int
	PerPage         int
}

// List returns a page of users ordered newest first.
func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]models.User, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = 20
	}

	w := &where{}
	if f.IsPhoneVerified != nil {
		w.add("is_phone_verified = " + w.arg(*f.IsPhoneVerified))
	}
	if f.Gender != "" {
		w.add("gender = " + w.arg(f.Gender))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := w.arg(containsPattern(s))
		w.add("(phone ILIKE " + p + " OR first_name ILIKE " + p + " OR email ILIKE " + p + ")")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM users`+w.String(), w.args...); err != nil {
		return nil, 0, err
	}

	limit := w.arg(f.PerPage)
	offset := w.arg((f.Page - 1) * f.PerPage)
	users := []models.User{}
	q := `SELECT ` + userColumns + ` FROM users` + w.String() +
		` ORDER BY created_at DESC, id DESC LIMIT ` + limit + ` OFFSET ` + offset
	if err := r.db.SelectContext(ctx, &users, q, w.args...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
