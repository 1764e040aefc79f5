package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "Expense"
	TransactionTypeIncome  TransactionType = "Income"
)

// Valid reports whether t is one of the supported transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeExpense, TransactionTypeIncome:
		return true
	}
	return false
}

// Transaction is a single income or expense record owned by exactly one user.
// OccurredAt is the caller-supplied date of the transaction; CreatedAt is when
// the record was stored.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_user_occurred,priority:1" json:"userId"`
	Type        TransactionType `gorm:"column:transaction_type;size:16;not null" json:"transactionType"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Category    string          `gorm:"not null" json:"category"`
	OccurredAt  time.Time       `gorm:"not null;index:idx_transactions_user_occurred,priority:2" json:"createdAt"`
	Description *string         `json:"description,omitempty"`
}
