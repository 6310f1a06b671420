// Package pagination computes offset-based page metadata independently of any query.
package pagination

import "math"

const (
	DefaultPage = 1
	DefaultSize = 50
	MaxSize     = 100
)

// Params is a validated page request. Page is 1-based.
type Params struct {
	Page int
	Size int
}

// Offset saturates at math.MaxInt instead of wrapping, so a huge page lands past every row.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// Pages returns ceil(total/size), or 0 when there is nothing to page.
func Pages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Page is the list envelope returned to clients.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Pages int   `json:"pages"`
}

func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  p.Page,
		Size:  p.Size,
		Pages: Pages(total, p.Size),
	}
}
