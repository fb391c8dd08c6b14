package httpapi

import "github.com/kasupel/server/internal/core"

// PageSize is the fixed page size every [P] endpoint uses, per spec §6.
const PageSize = 100

// Page is the wire envelope for a [P] endpoint: the items on the
// requested page plus the total page count so a client knows when to
// stop paging.
type Page[T any] struct {
	Items []T `json:"items"`
	Pages int `json:"pages"`
}

// NewPage builds a Page from one page's worth of items and the total
// row count the caller already had to query for.
func NewPage[T any](items []T, page int, total int) (Page[T], error) {
	if items == nil {
		items = []T{}
	}
	pages := (total + PageSize - 1) / PageSize
	if page < 0 || (page > 0 && page >= pages) {
		return Page[T]{}, core.NewError(core.CodePageOutOfRange, "page out of range")
	}
	return Page[T]{Items: items, Pages: pages}, nil
}
