package pagination

import (
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxNumber keeps Skip well inside int range for any accepted limit.
	MaxNumber = 1_000_000
)

type Page struct {
	Number int
	Limit  int
}

// New clamps page to [1, MaxNumber] and limit to [1, MaxLimit], defaulting limit when unset.
func New(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxNumber {
		number = MaxNumber
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: number, Limit: limit}
}

// FromQuery reads ?page= and ?limit=; unparsable values fall back to defaults.
func FromQuery(q url.Values) Page {
	number, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return New(number, limit)
}

func (p Page) Skip() int {
	return (p.Number - 1) * p.Limit
}

type Result[T any] struct {
	Data        []T `json:"data"`
	Count       int `json:"count"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

func NewResult[T any](data []T, total int, p Page) Result[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Result[T]{Data: data, Count: total, TotalPages: pages, CurrentPage: p.Number}
}

// Map converts the page's items while keeping the paging metadata.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, 0, len(r.Data))
	for _, v := range r.Data {
		out = append(out, fn(v))
	}
	return Result[U]{Data: out, Count: r.Count, TotalPages: r.TotalPages, CurrentPage: r.CurrentPage}
}
