// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client does not ask for one.
const DefaultLimit = 10

// MaxLimit caps client-requested page sizes.
const MaxLimit = 100

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Pagination is returned alongside a page of items.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// Parse reads "page" and "limit" query parameters. Missing, invalid or
// out-of-range values fall back to page 1 / DefaultLimit; limit is capped at
// MaxLimit.
func Parse(r *http.Request) Params {
	return Params{
		Page:  parsePositive(query.Get(r, "page"), 1),
		Limit: clampLimit(parsePositive(query.Get(r, "limit"), DefaultLimit)),
	}
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func clampLimit(n int) int {
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Normalize applies the same defaults as Parse to values built in code.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	p.Limit = clampLimit(p.Limit)
	return p
}

// Skip is the number of documents before this page.
func (p Params) Skip() int64 {
	p = p.Normalize()
	return int64(p.Page-1) * int64(p.Limit)
}

// TotalPages is ceil(total/limit); zero items means zero pages.
func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// Build returns the pagination block for a page request and total count.
func Build(p Params, total int64) Pagination {
	p = p.Normalize()
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		TotalItems: total,
		TotalPages: TotalPages(total, p.Limit),
	}
}
