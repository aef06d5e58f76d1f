package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/barachat/domain/chat"
)

var (
	// ErrInvalidToken is returned when the token is malformed or tampered.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// DefaultTokenDuration is how long an issued token stays valid.
const DefaultTokenDuration = 24 * time.Hour

// TokenConfig holds token signing configuration.
type TokenConfig struct {
	Secret   string
	Duration time.Duration
	Issuer   string
}

// DefaultTokenConfig returns the shipped token configuration. The secret
// must be overridden in production (BARA_JWT_SECRET).
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:   "change-me-in-production",
		Duration: DefaultTokenDuration,
		Issuer:   "barachat",
	}
}

// tokenClaims are the custom claims carried by an issued token.
type tokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens. Verification is a
// pure local check (signature + expiry); it never blocks on I/O.
type TokenManager struct {
	config TokenConfig
}

// NewTokenManager creates a TokenManager with the given configuration.
func NewTokenManager(config TokenConfig) *TokenManager {
	if config.Duration <= 0 {
		config.Duration = DefaultTokenDuration
	}
	return &TokenManager{config: config}
}

// Issue creates a signed token for the given user identity.
func (m *TokenManager) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Duration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}

// Verify validates a token and returns the identity it carries. An expired
// or malformed token yields an error, never a panic.
func (m *TokenManager) Verify(tokenString string) (*chat.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &chat.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
