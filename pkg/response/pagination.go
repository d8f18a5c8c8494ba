package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Page is a parsed page/limit pair.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the SQL offset for the page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Meta describes a paginated result.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginated wraps a list with its pagination meta.
type Paginated[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// ParsePage reads ?page= and ?limit=, falling back to 1 and DefaultPageLimit and capping at MaxPageLimit.
func ParsePage(c *gin.Context) Page {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}
}

// NewMeta builds pagination meta for total rows.
func NewMeta(p Page, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}

// NewPaginated returns items with meta, never a nil slice.
func NewPaginated[T any](items []T, p Page, total int) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{Items: items, Meta: NewMeta(p, total)}
}
