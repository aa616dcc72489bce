// Package listquery is the client-side query layer applied to a cached
// list before it is rendered: search, categorical filters, stable sort and
// pagination.
package listquery

import (
	"sort"
	"strings"
)

const (
	DefaultPageSize = 10
	// All bypasses a categorical filter
	All = "all"
	// maxVisiblePages is how many page links the pager shows
	maxVisiblePages = 5
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Record exposes list columns by name
type Record interface {
	Field(name string) string
}

// Filter keeps items where search occurs case-insensitively in any of
// searchFields and every equality filter matches. A filter value of All or
// "" is ignored.
func Filter[T Record](items []T, search string, searchFields []string, equals map[string]string) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !containsAny(item, searchFields, needle) {
			continue
		}
		if !matchesAll(item, equals) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func containsAny[T Record](item T, fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(item.Field(f)), needle) {
			return true
		}
	}
	return false
}

func matchesAll[T Record](item T, equals map[string]string) bool {
	for field, want := range equals {
		if want == "" || want == All {
			continue
		}
		if item.Field(field) != want {
			return false
		}
	}
	return true
}

// Sort returns a copy of items ordered by the lower-cased value of field.
// Equal keys keep their original relative order in both directions.
func Sort[T Record](items []T, field string, dir Direction) []T {
	out := make([]T, len(items))
	copy(out, items)
	if field == "" {
		return out
	}
	keys := make([]string, len(out))
	idx := make([]int, len(out))
	for i, item := range out {
		keys[i] = strings.ToLower(item.Field(field))
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if dir == Desc {
			return keys[idx[a]] > keys[idx[b]]
		}
		return keys[idx[a]] < keys[idx[b]]
	})
	sorted := make([]T, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// Page is one rendered page of a list
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
	Total      int   `json:"total"`
	Visible    []int `json:"visiblePages"`
}

// TotalPages is ceil(n/size)
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	return (n + size - 1) / size
}

// ClampPage moves page into [1, totalPages], or 1 when there are no pages
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate slices out the requested page after clamping it
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(items), size)
	page = ClampPage(page, total)

	start := (page - 1) * size
	end := min(start+size, len(items))
	var slice []T
	if start < len(items) {
		slice = make([]T, end-start)
		copy(slice, items[start:end])
	}
	return Page[T]{
		Items:      slice,
		Page:       page,
		PageSize:   size,
		TotalPages: total,
		Total:      len(items),
		Visible:    VisiblePages(page, total, maxVisiblePages),
	}
}

// VisiblePages returns up to limit page numbers centred on current
func VisiblePages(current, total, limit int) []int {
	if total <= 0 {
		return nil
	}
	first, last := 1, total
	if total > limit {
		first = current - 2
		if first > total-limit+1 {
			first = total - limit + 1
		}
		if first < 1 {
			first = 1
		}
		last = first + limit - 1
	}
	pages := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		pages = append(pages, p)
	}
	return pages
}
