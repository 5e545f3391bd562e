package query

import (
	"errors"
)

var (
	ErrInvalidPage     = errors.New("invalid page number")
	ErrInvalidPageSize = errors.New("page size must be at least 1")
)

// Page is one window of a listing
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	TotalPages int
	TotalItems int
}

// HasNext reports whether a following page exists
func (p Page[T]) HasNext() bool {
	return p.Number < p.TotalPages
}

// HasPrevious reports whether a preceding page exists
func (p Page[T]) HasPrevious() bool {
	return p.Number > 1
}

// TotalPagesFor returns ceil(count/size), or 0 when size is not positive.
func TotalPagesFor(count, size int) int {
	if size < 1 {
		return 0
	}
	return (count + size - 1) / size
}

// Paginate returns the 1-based page of items. An out-of-range page yields
// ErrInvalidPage together with a page carrying TotalPages and no items.
// An empty listing has exactly one valid, empty page.
func Paginate[T any](items []T, page, size int) (Page[T], error) {
	if size < 1 {
		return Page[T]{Number: page, Size: size, TotalItems: len(items)}, ErrInvalidPageSize
	}

	result := Page[T]{
		Number:     page,
		Size:       size,
		TotalPages: TotalPagesFor(len(items), size),
		TotalItems: len(items),
	}

	last := max(result.TotalPages, 1)
	if page < 1 || page > last {
		return result, ErrInvalidPage
	}

	start := (page - 1) * size
	end := min(start+size, len(items))
	result.Items = items[start:end:end]

	return result, nil
}
