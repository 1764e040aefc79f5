package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
	pageLimits         pagination.Limits
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		pageLimits:         pagination.DefaultLimits,
	}
}

// WithPageLimits sets the default and maximum page size of the paged list.
func (h *TransactionHandler) WithPageLimits(limits pagination.Limits) *TransactionHandler {
	h.pageLimits = limits
	return h
}

// CreateTransactionRequest represents the create transaction request payload.
// createdAt is the date the transaction happened.
type CreateTransactionRequest struct {
	TransactionType string           `json:"transactionType"`
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
	Category        string           `json:"category" binding:"required,max=100"`
	CreatedAt       string           `json:"createdAt"`
	Description     *string          `json:"description" binding:"omitempty,max=500"`
}

// UpdateTransactionRequest represents the update payload. Omitted fields keep
// their value; createdAt is always required.
type UpdateTransactionRequest struct {
	TransactionType *string          `json:"transactionType"`
	Amount          *decimal.Decimal `json:"amount"`
	Category        *string          `json:"category" binding:"omitempty,max=100"`
	CreatedAt       string           `json:"createdAt"`
	Description     *string          `json:"description" binding:"omitempty,max=500"`
}

// ListTransactionsQuery holds the optional list filters.
type ListTransactionsQuery struct {
	Type     string `form:"type" binding:"omitempty,transaction_type"`
	Category string `form:"category"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
}

// TransactionResponse is the wire shape of a transaction.
type TransactionResponse struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"userId"`
	TransactionType models.TransactionType `json:"transactionType"`
	Amount          decimal.Decimal        `json:"amount" swaggertype:"number"`
	Category        string                 `json:"category"`
	CreatedAt       time.Time              `json:"createdAt"`
	Description     *string                `json:"description,omitempty"`
	RecordedAt      time.Time              `json:"recordedAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

func toTransactionResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		UserID:          t.UserID,
		TransactionType: t.Type,
		Amount:          t.Amount.Round(2),
		Category:        t.Category,
		CreatedAt:       t.OccurredAt,
		Description:     t.Description,
		RecordedAt:      t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toTransactionResponses(list []models.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(list))
	for i := range list {
		out = append(out, toTransactionResponse(&list[i]))
	}
	return out
}

// parseOccurredAt parses the createdAt body field. An empty value yields the
// zero time, which the service rejects as a missing date.
func parseOccurredAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(s, false)
	if err != nil {
		return time.Time{}, invalidField("createdAt", "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", "date")
	}
	return t, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create transaction
// @Description Record an income or expense for the authenticated user
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction data"
// @Success     201 {object} TransactionResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	occurredAt, err := parseOccurredAt(req.CreatedAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(
		requestContext(c),
		userID,
		models.TransactionType(req.TransactionType),
		*req.Amount,
		req.Category,
		occurredAt,
		req.Description,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTransactionResponse(transaction))
}

func (h *TransactionHandler) bindFilter(c *gin.Context) (services.TransactionFilter, error) {
	var q ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return services.TransactionFilter{}, validator.BindingError(err)
	}

	var filter services.TransactionFilter
	if q.Type != "" {
		t := models.TransactionType(q.Type)
		filter.Type = &t
	}
	if q.Category != "" {
		filter.Category = &q.Category
	}
	if q.FromDate != "" {
		from, err := parseDate(q.FromDate, false)
		if err != nil {
			return filter, invalidField("from_date", "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", "date")
		}
		filter.FromDate = &from
	}
	if q.ToDate != "" {
		to, err := parseDate(q.ToDate, true)
		if err != nil {
			return filter, invalidField("to_date", "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", "date")
		}
		filter.ToDate = &to
	}
	return filter, nil
}

// ListTransactions returns the authenticated user's transactions
// @Summary     List transactions
// @Description List the user's transactions, newest first. Supplying page or page_size returns a paginated envelope instead of an array.
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       type      query string false "Expense or Income"
// @Param       category  query string false "Exact category"
// @Param       from_date query string false "Earliest date (inclusive)"
// @Param       to_date   query string false "Latest date (inclusive)"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page (server maximum, 100 by default)"
// @Success     200 {array}  TransactionResponse "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.bindFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if c.Query("page") == "" && c.Query("page_size") == "" {
		list, err := h.transactionService.ListTransactions(c.Request.Context(), userID, filter)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTransactionResponses(list))
		return
	}

	var query pagination.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}
	window, err := h.pageLimits.Resolve(query)
	if err != nil {
		respondWithError(c, invalidField("page_size", fmt.Sprintf("must be at most %d", h.pageLimits.Max()), "max"))
		return
	}

	result, err := h.transactionService.ListTransactionsPage(c.Request.Context(), userID, window, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.NewPage(toTransactionResponses(result.Data), result.Window(), result.TotalItems))
}

// GetSummary returns totals over the user's transactions
// @Summary     Transaction summary
// @Description Total income, expense, balance and per-category totals, using the list filters
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       type      query string false "Expense or Income"
// @Param       category  query string false "Exact category"
// @Param       from_date query string false "Earliest date (inclusive)"
// @Param       to_date   query string false "Latest date (inclusive)"
// @Success     200 {object} services.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/summary [get]
func (h *TransactionHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := h.bindFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.transactionService.GetSummary(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// UpdateTransaction applies a partial update to one of the user's transactions
// @Summary     Update transaction
// @Description Update fields of a transaction the user owns. createdAt is required.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} TransactionResponse "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	occurredAt, err := parseOccurredAt(req.CreatedAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	patch := services.TransactionPatch{
		Amount:      req.Amount,
		Category:    req.Category,
		OccurredAt:  occurredAt,
		Description: req.Description,
	}
	// An empty type is treated as omitted.
	if req.TransactionType != nil && *req.TransactionType != "" {
		t := models.TransactionType(*req.TransactionType)
		patch.Type = &t
	}

	transaction, err := h.transactionService.UpdateTransaction(requestContext(c), userID, c.Param("id"), patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// DeleteTransaction deletes one of the user's transactions
// @Summary     Delete transaction
// @Description Delete a transaction the user owns. Deleting an unknown id also succeeds.
// @Tags        expenses
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Deleted"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.transactionService.DeleteTransaction(requestContext(c), userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
