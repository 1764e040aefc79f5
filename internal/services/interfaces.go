package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"pennywise/internal/auth"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// TokenIssuer issues and verifies tokens. *auth.Manager implements it.
type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, time.Time, error)
	GenerateRefreshToken(userID, email string) (string, time.Time, error)
	VerifyRefreshToken(token string) (*auth.Claims, error)
	HashToken(raw string) string
}

// TokenPair is the set of tokens handed to a client after authenticating.
// RefreshToken is empty when refresh tokens are disabled.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthServicer defines the contract for registration, login and token refresh.
type AuthServicer interface {
	Register(ctx context.Context, email, password string) (*models.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshEnabled() bool
}

// RefreshTokenStore persists refresh token digests. Consume must be atomic: a
// digest can be consumed at most once.
type RefreshTokenStore interface {
	Save(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash string) (userID string, err error)
	Revoke(ctx context.Context, tokenHash string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Type     *models.TransactionType
	Category *string
}

// TransactionPatch carries the fields of an update. OccurredAt is required;
// nil fields keep their stored value.
type TransactionPatch struct {
	Type        *models.TransactionType
	Amount      *decimal.Decimal
	Category    *string
	OccurredAt  time.Time
	Description *string
}

// CategoryTotal is the sum of one category's transactions of one type.
type CategoryTotal struct {
	Category string                 `json:"category"`
	Type     models.TransactionType `json:"transactionType"`
	Total    decimal.Decimal        `json:"total" swaggertype:"number"`
	Count    int                    `json:"count"`
}

// Summary aggregates a user's transactions.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome" swaggertype:"number"`
	TotalExpense decimal.Decimal `json:"totalExpense" swaggertype:"number"`
	Balance      decimal.Decimal `json:"balance" swaggertype:"number"`
	Count        int             `json:"count"`
	ByCategory   []CategoryTotal `json:"byCategory"`
}

// TransactionServicer defines the contract for transaction-related business logic.
// Every operation is scoped to the owning user.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, transactionType models.TransactionType, amount decimal.Decimal, category string, occurredAt time.Time, description *string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error)
	ListTransactionsPage(ctx context.Context, userID string, window pagination.Window, filter TransactionFilter) (*pagination.Page[models.Transaction], error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, patch TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) (bool, error)
	GetSummary(ctx context.Context, userID string, filter TransactionFilter) (*Summary, error)
}

// ReportRequest is a pre-rendered report supplied by the client.
type ReportRequest struct {
	Data     string // base64 encoded document
	Format   string // "pdf" (default) or "xlsx"
	FileName string // optional base name for the attachment
}

// ReportServicer defines the contract for report delivery.
type ReportServicer interface {
	SendReport(ctx context.Context, userID, recipient string, req ReportRequest) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
