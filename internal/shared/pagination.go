package shared

import "math"

const (
	// DefaultPerPage is used when the caller omits or zeroes per_page.
	DefaultPerPage = 20
	// MaxPerPage caps page size for listing endpoints.
	MaxPerPage = 100
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the zero-based index of the first item on the page. It
// saturates at math.MaxInt instead of overflowing.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// Bounds clamps the page window to a slice of length n. Pages past the end
// yield an empty window.
func (p Pagination) Bounds(n int) (start, end int) {
	if p.PerPage <= 0 || p.Page-1 > n/p.PerPage {
		return n, n
	}
	start = p.Offset()
	if start > n {
		start = n
	}
	end = start + p.PerPage
	if end > n {
		end = n
	}
	return start, end
}
