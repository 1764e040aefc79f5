package models

import "time"

// RefreshToken is a server-side record of an issued refresh token. Only the
// HMAC digest of the token is stored.
type RefreshToken struct {
	Base
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
