package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// Page is a 1-based page window
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NewPage clamps page and limit into range
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Page: page, Limit: limit}
}

// ParsePage reads ?page= and ?limit= from the query string
func ParsePage(c *gin.Context) Page {
	return NewPage(
		ParseInt(c.Query("page"), 1),
		ParseInt(c.Query("limit"), DefaultPageLimit),
	)
}

// Pagination is the metadata block attached to every paged response
type Pagination struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	HasMore     bool  `json:"has_more"`
}

// NewPagination derives paging metadata from a total row count
func NewPagination(p Page, total int64) Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Total:       total,
		TotalPages:  pages,
		CurrentPage: p.Page,
		Limit:       p.Limit,
		HasMore:     p.Page < pages,
	}
}
