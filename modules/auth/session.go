package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSession is returned when a session token is invalid.
	ErrInvalidSession = errors.New("invalid session token")
	// ErrExpiredSession is returned when a session token has expired.
	ErrExpiredSession = errors.New("session has expired")
)

// SessionConfig holds session token configuration.
type SessionConfig struct {
	SecretKey string
	Duration  time.Duration
	Issuer    string
}

// DefaultSessionConfig returns a default session configuration.
// The secret key must be overridden from the environment in production.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SecretKey: "dev-session-secret-change-in-production",
		Duration:  7 * 24 * time.Hour,
		Issuer:    "forum",
	}
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates the signed tokens that act as
// opaque session cookies. Sessions are the only cross-request state.
type SessionManager struct {
	config SessionConfig
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(config SessionConfig) *SessionManager {
	return &SessionManager{
		config: config,
	}
}

// Issue creates a new session token for the given user.
func (m *SessionManager) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate parses and verifies a session token, returning its claims.
func (m *SessionManager) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

// Duration returns the configured session lifetime.
func (m *SessionManager) Duration() time.Duration {
	return m.config.Duration
}
