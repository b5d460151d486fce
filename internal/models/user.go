package models

import "time"

// Gender values accepted for storefront users.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User is a storefront customer identified by phone number.
// OTP state is never serialized.
type User struct {
	ID              int64      `db:"id" json:"id"`
	Phone           string     `db:"phone" json:"phone"`
	Email           *string    `db:"email" json:"email"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Gender          string     `db:"gender" json:"gender"`
	BirthDate       *Date      `db:"birth_date" json:"birth_date"`
	IsPhoneVerified bool       `db:"is_phone_verified" json:"is_phone_verified"`
	OTPCode         *string    `db:"otp_code" json:"-"`
	OTPCreatedAt    *time.Time `db:"otp_created_at" json:"-"`
	OTPAttempts     int        `db:"otp_attempts" json:"-"`
	IsActive        bool       `db:"is_active" json:"-"`
	LastLogin       *time.Time `db:"last_login" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"-"`
}

// Age returns the user's age in whole years, or nil without a birth date.
func (u *User) Age(now time.Time) *int {
	if u.BirthDate == nil || u.BirthDate.IsZero() {
		return nil
	}
	age := u.BirthDate.YearsSince(now)
	return &age
}

// UserProfile is the outward representation of a user.
type UserProfile struct {
	ID              int64     `json:"id"`
	Phone           string    `json:"phone"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           *string   `json:"email"`
	Gender          string    `json:"gender"`
	BirthDate       *Date     `json:"birth_date"`
	Age             *int      `json:"age"`
	IsPhoneVerified bool      `json:"is_phone_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

// Profile builds the serialized profile as of now.
func (u *User) Profile(now time.Time) UserProfile {
	return UserProfile{
		ID:              u.ID,
		Phone:           u.Phone,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Gender:          u.Gender,
		BirthDate:       u.BirthDate,
		Age:             u.Age(now),
		IsPhoneVerified: u.IsPhoneVerified,
		CreatedAt:       u.CreatedAt,
	}
}
