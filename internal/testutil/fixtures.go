package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pennywise/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTransaction creates a transaction of the given type and amount.
// Amounts are decimal strings such as "42.50".
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()
	return CreateTestTransactionAt(t, db, userID, txType, amount, "food", time.Now().UTC().Truncate(time.Second))
}

// CreateTestTransactionAt creates a transaction with an explicit category and date.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount, category string, occurredAt time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		Type:       txType,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		OccurredAt: occurredAt,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
