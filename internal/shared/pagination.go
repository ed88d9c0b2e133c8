package shared

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultPageSize matches the remote API default.
const DefaultPageSize = 10

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// PageParams reads page and pageSize from the query string.
func PageParams(r *http.Request) (page, pageSize int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(q.Get("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// PageQuery builds the page/pageSize query used by every list endpoint.
func PageQuery(page, pageSize int) url.Values {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

// SetIf adds key=value to q when value is non-empty.
func SetIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// ListResponse is the paged envelope returned by the remote list endpoints.
type ListResponse[T any] struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Items    []T `json:"items"`
}

// Pagination converts the envelope metadata.
func (l ListResponse[T]) Pagination() Pagination {
	return NewPagination(l.Page, l.PageSize, l.Total)
}
