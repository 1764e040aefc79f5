package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/uuid"
)

const listOrder = "occurred_at DESC, id DESC"

// transactionService handles transaction-related business logic. Every query
// is filtered by the owning user, so one user can never read or mutate
// another user's records.
type transactionService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, audit AuditServicer) TransactionServicer {
	return &transactionService{
		db:    db,
		audit: audit,
	}
}

// CreateTransaction records a new income or expense for the user.
func (s *transactionService) CreateTransaction(
	ctx context.Context,
	userID string,
	transactionType models.TransactionType,
	amount decimal.Decimal,
	category string,
	occurredAt time.Time,
	description *string,
) (*models.Transaction, error) {
	if !transactionType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if occurredAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Date is required for a transaction.")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Category is required for a transaction.")
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        transactionType,
		Amount:      amount.Round(2),
		Category:    category,
		OccurredAt:  occurredAt.UTC(),
		Description: description,
	}

	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(ctx, userID, "CREATE_TRANSACTION", "transaction", transaction.ID, ipFromContext(ctx), map[string]any{
		"transaction_type": transactionType,
		"amount":           transaction.Amount.String(),
	})
	return transaction, nil
}

// ListTransactions returns every matching transaction of the user, newest first.
func (s *transactionService) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	q = applyTransactionFilters(q, filter)

	transactions := []models.Transaction{}
	if err := q.Order(listOrder).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// ListTransactionsPage retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) ListTransactionsPage(ctx context.Context, userID string, window pagination.Window, filter TransactionFilter) (*pagination.Page[models.Transaction], error) {
	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(window.Scope()).
		Order(listOrder).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPage(transactions, window, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("occurred_at >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("occurred_at <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("transaction_type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	return q
}

// UpdateTransaction applies patch to a transaction the user owns. A missing id
// and another user's id both yield ErrTransactionNotFound.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, patch TransactionPatch) (*models.Transaction, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if patch.OccurredAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Date is required for updating a transaction.")
	}

	updates := map[string]any{
		"occurred_at": patch.OccurredAt.UTC(),
	}
	if patch.Type != nil {
		updates["transaction_type"] = *patch.Type
	}
	if patch.Amount != nil {
		updates["amount"] = patch.Amount.Round(2)
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Category cannot be empty.")
		}
		updates["category"] = category
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	transactionID, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, apperrors.ErrTransactionNotFound
	}

	var updated models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND user_id = ?", transactionID, userID).
			Updates(updates)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}

		if err := tx.Where("id = ? AND user_id = ?", transactionID, userID).First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, userID, "UPDATE_TRANSACTION", "transaction", transactionID, ipFromContext(ctx), nil)
	return &updated, nil
}

// DeleteTransaction hard-deletes a transaction the user owns and reports
// whether one existed. Deleting an absent id is not an error.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) (bool, error) {
	transactionID, err := uuid.Parse(transactionID)
	if err != nil {
		return false, nil
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", transactionID, userID).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}

	existed := res.RowsAffected > 0
	if existed {
		s.audit.Log(ctx, userID, "DELETE_TRANSACTION", "transaction", transactionID, ipFromContext(ctx), nil)
	}
	return existed, nil
}

// GetSummary totals the user's matching transactions by type and category.
func (s *transactionService) GetSummary(ctx context.Context, userID string, filter TransactionFilter) (*Summary, error) {
	transactions, err := s.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   []CategoryTotal{},
	}

	type key struct {
		category string
		txType   models.TransactionType
	}
	totals := map[key]*CategoryTotal{}

	for _, t := range transactions {
		switch t.Type {
		case models.TransactionTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		case models.TransactionTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(t.Amount)
		}
		summary.Count++

		k := key{t.Category, t.Type}
		ct, ok := totals[k]
		if !ok {
			ct = &CategoryTotal{Category: t.Category, Type: t.Type, Total: decimal.Zero}
			totals[k] = ct
		}
		ct.Total = ct.Total.Add(t.Amount)
		ct.Count++
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)

	for _, ct := range totals {
		summary.ByCategory = append(summary.ByCategory, *ct)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Category < b.Category
	})

	return summary, nil
}
