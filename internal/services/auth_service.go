package services

import (
	"context"
	"errors"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
)

// authService issues tokens for registered users.
type authService struct {
	users   UserServicer
	tokens  TokenIssuer
	refresh RefreshTokenStore
	audit   AuditServicer
}

// NewAuthService creates a new AuthServicer. A nil refresh store disables
// refresh tokens; only access tokens are issued then.
func NewAuthService(users UserServicer, tokens TokenIssuer, refresh RefreshTokenStore, audit AuditServicer) AuthServicer {
	return &authService{users: users, tokens: tokens, refresh: refresh, audit: audit}
}

func (s *authService) RefreshEnabled() bool {
	return s.refresh != nil
}

// Register creates the user and signs them in.
func (s *authService) Register(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.CreateUser(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Log(ctx, user.ID, "REGISTER", "user", user.ID, ipFromContext(ctx), nil)
	return user, pair, nil
}

// Login verifies the credentials and signs the user in.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.AttemptLogin(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Log(ctx, user.ID, "LOGIN", "user", user.ID, ipFromContext(ctx), nil)
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed, so replaying it fails.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if s.refresh == nil {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "Refresh tokens are not enabled")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	userID, err := s.refresh.Consume(ctx, s.tokens.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if userID != claims.UserID {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if s.refresh == nil {
		return nil
	}
	if err := s.refresh.Revoke(ctx, s.tokens.HashToken(refreshToken)); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *authService) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	pair := &TokenPair{AccessToken: access, AccessExpiresAt: accessExp}

	if s.refresh == nil {
		return pair, nil
	}

	refresh, refreshExp, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.refresh.Save(ctx, s.tokens.HashToken(refresh), user.ID, refreshExp); err != nil {
		logger.FromContext(ctx).Errorw("failed to store refresh token", "error", err, "user_id", user.ID)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	pair.RefreshToken = refresh
	pair.RefreshExpiresAt = refreshExp
	return pair, nil
}
