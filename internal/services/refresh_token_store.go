package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pennywise/internal/models"
)

// ErrRefreshTokenNotFound is returned by RefreshTokenStore.Consume when the
// digest is unknown, already consumed, revoked or expired.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// gormRefreshTokenStore keeps refresh token digests in the refresh_tokens table.
type gormRefreshTokenStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRefreshTokenStore creates a RefreshTokenStore backed by the database.
func NewGormRefreshTokenStore(db *gorm.DB) RefreshTokenStore {
	return &gormRefreshTokenStore{db: db, now: time.Now}
}

func (s *gormRefreshTokenStore) Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	rt := &models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rt).Error; err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Consume deletes the row and returns its owner. The delete's affected-row
// count decides the winner when two requests present the same token.
func (s *gormRefreshTokenStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", tokenHash).First(&rt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshTokenNotFound
			}
			return err
		}

		res := tx.Where("id = ?", rt.ID).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || !rt.ExpiresAt.After(s.now()) {
			return ErrRefreshTokenNotFound
		}

		userID = rt.UserID
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *gormRefreshTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	if err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.RefreshToken{}).Error; err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// redisRefreshTokenStore keeps refresh token digests in redis, expiring with the token.
type redisRefreshTokenStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRefreshTokenStore creates a RefreshTokenStore backed by redis.
func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	return &redisRefreshTokenStore{client: client, now: time.Now}
}

func refreshTokenKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:%s", tokenHash)
}

func (s *redisRefreshTokenStore) Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("token expiration time is in the past")
	}
	if err := s.client.Set(ctx, refreshTokenKey(tokenHash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *redisRefreshTokenStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	userID, err := s.client.GetDel(ctx, refreshTokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRefreshTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume refresh token: %w", err)
	}
	return userID, nil
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, refreshTokenKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
