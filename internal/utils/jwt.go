package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
	TokenAdmin   = "admin"
)

// RoleAdmin marks back office tokens.
const RoleAdmin = "admin"

// Claims are the JWT claims issued by the API.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Type   string `json:"typ"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	adminTTL   time.Duration
	now        func() time.Time
}

// NewJWTManager builds a JWTManager for the given secret and lifetimes.
func NewJWTManager(secret string, accessTTL, refreshTTL, adminTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		adminTTL:   adminTTL,
		now:        time.Now,
	}
}

// TokenPair is returned after a successful OTP verification.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GeneratePair issues an access and a refresh token for a storefront user.
func (m *JWTManager) GeneratePair(userID int64) (TokenPair, error) {
	access, err := m.GenerateAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(Claims{UserID: userID, Type: TokenRefresh}, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// GenerateAccess issues a short lived access token.
func (m *JWTManager) GenerateAccess(userID int64) (string, error) {
	return m.sign(Claims{UserID: userID, Type: TokenAccess}, m.accessTTL)
}

// GenerateAdmin issues a back office token.
func (m *JWTManager) GenerateAdmin(adminID int64, email string) (string, error) {
	return m.sign(Claims{UserID: adminID, Email: email, Type: TokenAdmin, Role: RoleAdmin}, m.adminTTL)
}

func (m *JWTManager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a token and checks its signature, expiry and type.
func (m *JWTManager) Validate(tokenString, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, ErrInvalidToken
	}
	if expectedType == TokenAdmin && claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
