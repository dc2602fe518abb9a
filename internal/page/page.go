// Package page implements page-number pagination for admin listings.
package page

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Request is a normalized page/per_page pair.
type Request struct {
	Page    int
	PerPage int
}

// FromQuery reads `page` and `per_page`; missing or invalid values fall back
// to page 1 and DefaultPerPage, per_page is clamped to MaxPerPage.
func FromQuery(q url.Values) Request {
	return New(atoi(q.Get("page")), atoi(q.Get("per_page")))
}

// New normalizes raw page parameters.
func New(p, perPage int) Request {
	if p < 1 {
		p = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// keeps Offset and Offset+Limit within int
	if p > math.MaxInt/perPage {
		p = math.MaxInt / perPage
	}
	return Request{Page: p, PerPage: perPage}
}

func (r Request) Offset() int { return (r.Page - 1) * r.PerPage }

func (r Request) Limit() int { return r.PerPage }

// Meta is serialized next to the page items.
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// Page is one slice of a larger ordered result set.
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// Of assembles a page from the items fetched for r and the total row count.
func Of[T any](items []T, r Request, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Meta: Meta{
			CurrentPage: r.Page,
			PerPage:     r.PerPage,
			Total:       total,
			LastPage:    LastPage(total, r.PerPage),
		},
	}
}

// LastPage is ceil(total/perPage), and 1 for an empty result.
func LastPage(total, perPage int) int {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// Slice returns the window of items selected by r. Used by in-memory stores.
func Slice[T any](items []T, r Request) []T {
	start := r.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + r.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
