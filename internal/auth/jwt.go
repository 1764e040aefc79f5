// Package auth issues and verifies the bearer tokens used by the API.
//
// Access tokens are stateless HS256 JWTs: a token is valid when its signature
// checks out and it has not expired. There is no server-side revocation of
// access tokens, so their lifetime should stay short. Refresh tokens are also
// JWTs, but callers persist their HMAC digest so they can be rotated and revoked.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "pennywise-api"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is returned for malformed, wrongly signed, expired, or
// wrong-type tokens. Callers should not distinguish between those cases.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the claims in the JWT
type Claims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a shared secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a token manager. A zero refreshTTL disables refresh tokens.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccessTTL returns how long issued access tokens stay valid.
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns how long issued refresh tokens stay valid.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// GenerateAccessToken issues an access token carrying the user's id and email.
func (m *Manager) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	return m.sign(userID, email, TokenTypeAccess, m.accessTTL)
}

// GenerateRefreshToken issues a refresh token. Every token carries a random jti,
// so two tokens issued within the same second still differ.
func (m *Manager) GenerateRefreshToken(userID, email string) (string, time.Time, error) {
	if m.refreshTTL <= 0 {
		return "", time.Time{}, errors.New("refresh tokens are disabled")
	}
	return m.sign(userID, email, TokenTypeRefresh, m.refreshTTL)
}

func (m *Manager) sign(userID, email, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken validates signature and expiry and rejects refresh tokens.
func (m *Manager) VerifyAccessToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, TokenTypeAccess)
}

// VerifyRefreshToken validates a refresh token's signature, expiry and type.
func (m *Manager) VerifyRefreshToken(tokenString string) (*Claims, error) {
	claims, err := m.verify(tokenString, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) verify(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != tokenType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashToken returns a deterministic HMAC-SHA256 hex digest of a raw token,
// keyed with the signing secret. Only this digest is ever persisted.
func (m *Manager) HashToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
