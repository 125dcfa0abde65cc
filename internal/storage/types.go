package storage

import "errors"

var (
	// ErrNotFound indicates that the requested chunk was not found.
	ErrNotFound = errors.New("chunk not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates a query embedding whose dimension
	// does not match the stored embeddings.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// PaginatedResult represents a paginated result set.
type PaginatedResult[T any] struct {
	// Items is the slice of results for the current page.
	Items []T

	// Total is the total number of items across all pages.
	Total int

	// Page is the current page number (1-indexed).
	Page int

	// PageSize is the number of items per page.
	PageSize int

	// HasMore indicates whether there are more pages available.
	HasMore bool
}

// ListOptions provides pagination and filtering options for listing chunks.
type ListOptions struct {
	// Page is the page number to retrieve (1-indexed, default: 1).
	Page int

	// Limit is the number of items per page (default: 20, max: 200).
	Limit int

	// Module filters chunks by knowledge module. Empty means no filter.
	Module string

	// Source filters chunks by ingestion source. Empty means no filter.
	Source string
}

// Normalize applies defaults and validates the ListOptions.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 200 {
		o.Limit = 200
	}
}

// Offset calculates the offset for SQL queries based on page and limit.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// SearchOptions provides options for vector similarity search.
type SearchOptions struct {
	// Limit is the maximum number of candidates to return
	// (default: 10, max: 100).
	Limit int

	// MinSimilarity drops candidates below this raw similarity
	// (0.0 to 1.0; 0 keeps everything).
	MinSimilarity float64

	// Module restricts the search to one knowledge module.
	// Empty means all modules.
	Module string
}

// Normalize applies defaults and validates the SearchOptions.
func (o *SearchOptions) Normalize() {
	if o.Limit < 1 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.MinSimilarity < 0 {
		o.MinSimilarity = 0
	}
	if o.MinSimilarity > 1 {
		o.MinSimilarity = 1
	}
}
