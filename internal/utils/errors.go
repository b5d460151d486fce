package utils

import (
	"errors"
	"sort"
	"strings"
)

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive    = errors.New("ACCOUNT_INACTIVE")
	ErrUserNotFound       = errors.New("USER_NOT_FOUND")
	ErrPhoneExists        = errors.New("PHONE_EXISTS")
	ErrPhoneNotRegistered = errors.New("PHONE_NOT_REGISTERED")
	ErrInvalidPhone       = errors.New("INVALID_PHONE")
	ErrOTPInvalid         = errors.New("OTP_INVALID")
	ErrOTPCooldown        = errors.New("OTP_COOLDOWN")
	ErrCategoryNotFound   = errors.New("CATEGORY_NOT_FOUND")
	ErrProductNotFound    = errors.New("PRODUCT_NOT_FOUND")
	ErrSlugExists         = errors.New("SLUG_EXISTS")
	ErrCategoryDepth      = errors.New("CATEGORY_DEPTH_EXCEEDED")
	ErrCategoryCycle      = errors.New("CATEGORY_CYCLE")
	ErrInvalidIcon        = errors.New("INVALID_ICON")
	ErrInvalidEmail       = errors.New("INVALID_EMAIL")
	ErrAlreadySubscribed  = errors.New("ALREADY_SUBSCRIBED")
	ErrSubscriberNotFound = errors.New("SUBSCRIBER_NOT_FOUND")
	ErrStorageDisabled    = errors.New("STORAGE_DISABLED")
	ErrSearchDisabled     = errors.New("SEARCH_DISABLED")
	ErrInvalidUpload      = errors.New("INVALID_UPLOAD")
)

// CooldownError carries the seconds left before another OTP may be sent.
type CooldownError struct {
	Remaining int
}

func (e *CooldownError) Error() string {
	return "OTP_COOLDOWN"
}

func (e *CooldownError) Unwrap() error {
	return ErrOTPCooldown
}

// ValidationError collects per-field validation messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for field, keeping the first one.
func (v *ValidationError) Add(field, message string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns v when it holds errors and nil otherwise.
func (v *ValidationError) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
