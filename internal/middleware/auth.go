package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"pennywise/internal/auth"
	apperrors "pennywise/internal/errors"
)

const (
	userIDKey = "userID"
	emailKey  = "email"
)

// TokenVerifier validates access tokens. *auth.Manager implements it.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// AuthMiddleware verifies the bearer token and stores the caller's identity on
// the context. It fails closed: a missing header or any verification error
// ends the request with 403.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		claims, err := verifier.VerifyAccessToken(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id set by AuthMiddleware.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// EmailFromContext returns the email embedded in the verified token.
func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(emailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}

// SetIdentity stores an identity on the context the same way AuthMiddleware does.
// Handler tests use it to skip token handling.
func SetIdentity(c *gin.Context, userID, email string) {
	c.Set(userIDKey, userID)
	c.Set(emailKey, email)
}
