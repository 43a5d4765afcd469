package core

import "math"

// Page sizes
const (
	PerPageDefault    = 15
	PerPageAttendance = 20
)

type PageRequest struct {
	Page    int
	PerPage int
}

func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = PerPageDefault
	}
	// keeps Offset from overflowing
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

func (pr PageRequest) Offset() int {
	return (pr.Page - 1) * pr.PerPage
}

// Page is one page of a listing, 1-indexed.
type Page[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

func NewPage[T any](data []T, pr PageRequest, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	lastPage := (total + pr.PerPage - 1) / pr.PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	return Page[T]{
		Data:        data,
		CurrentPage: pr.Page,
		LastPage:    lastPage,
		PerPage:     pr.PerPage,
		Total:       total,
	}
}
