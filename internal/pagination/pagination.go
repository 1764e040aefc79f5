// Package pagination pages the transaction list.
package pagination

import (
	"errors"
	"math"

	"gorm.io/gorm"
)

// ErrPageSizeTooLarge is returned by Limits.Resolve when the caller asks for
// more items than MaxSize.
var ErrPageSizeTooLarge = errors.New("page size exceeds limit")

// DefaultLimits apply when no limits are configured.
var DefaultLimits = Limits{DefaultSize: 20, MaxSize: 100}

// Limits bounds the page size a caller may request.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// orDefault fills unset fields from DefaultLimits.
func (l Limits) orDefault() Limits {
	if l.MaxSize <= 0 {
		l.MaxSize = DefaultLimits.MaxSize
	}
	if l.DefaultSize <= 0 {
		l.DefaultSize = DefaultLimits.DefaultSize
	}
	if l.DefaultSize > l.MaxSize {
		l.DefaultSize = l.MaxSize
	}
	return l
}

// Max returns the effective maximum page size.
func (l Limits) Max() int {
	return l.orDefault().MaxSize
}

// Query is the page selection bound from the list query string.
type Query struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

// Window is a resolved page: 1-based page number and a bounded size.
type Window struct {
	Page int
	Size int
}

// Resolve applies the defaults to q and rejects oversized pages.
func (l Limits) Resolve(q Query) (Window, error) {
	l = l.orDefault()
	w := Window{Page: q.Page, Size: q.PageSize}
	if w.Page < 1 {
		w.Page = 1
	}
	if w.Size < 1 {
		w.Size = l.DefaultSize
	}
	if w.Size > l.MaxSize {
		return Window{}, ErrPageSizeTooLarge
	}
	return w, nil
}

// Offset returns the SQL OFFSET of the window.
func (w Window) Offset() int {
	return (w.Page - 1) * w.Size
}

// Scope returns a GORM scope applying OFFSET and LIMIT for the window.
func (w Window) Scope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(w.Offset()).Limit(w.Size)
	}
}

// Page is the envelope returned for a paged list.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPage builds the envelope for one window of a list of totalItems items.
func NewPage[T any](data []T, w Window, totalItems int64) Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if w.Size > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(w.Size)))
	}
	return Page[T]{
		Data:       data,
		Page:       w.Page,
		PageSize:   w.Size,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Window returns the window the page was built from.
func (p Page[T]) Window() Window {
	return Window{Page: p.Page, Size: p.PageSize}
}
