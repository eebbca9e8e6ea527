// Package paging turns page/size query parameters into offset and limit.
package paging

import "strconv"

const (
	DefaultSize = 20
	MaxSize     = 100
)

// Request is a 1-based page of Size items.
type Request struct {
	Page int
	Size int
}

// Parse reads page and size query values. Missing or invalid values fall back
// to the first page of DefaultSize; sizes above MaxSize are clamped.
func Parse(page, size string) Request {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = 1
	}
	s, err := strconv.Atoi(size)
	if err != nil || s <= 0 {
		s = DefaultSize
	}
	if s > MaxSize {
		s = MaxSize
	}
	return Request{Page: p, Size: s}
}

func (r Request) Offset() int { return (r.Page - 1) * r.Size }
func (r Request) Limit() int  { return r.Size }

// Page is one page of a listing together with the unpaged total.
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}
