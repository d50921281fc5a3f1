package models

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// MaxPage keeps (Page-1)*Limit within int64.
	MaxPage = math.MaxInt64/MaxPageLimit + 1
)

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page  int64
	Limit int64
}

// Normalize clamps the request to a valid page and limit.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Skip is the number of records before the page.
func (p PageRequest) Skip() int64 {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
	Total       int64 `json:"total"`
}

// NewPage builds a page of items out of total matching records.
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	req = req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		TotalPages:  (total + req.Limit - 1) / req.Limit,
		CurrentPage: req.Page,
		Total:       total,
	}
}
