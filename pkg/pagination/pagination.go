// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination reads paging and ordering from list requests and builds
// the metadata returned alongside a page.
//
// Query parameters:
//
//	page   1-indexed page number
//	limit  page size, capped at [MaxLimit]
//	sort   one of the keys the endpoint allows
//	dir    "asc" or "desc"
package pagination

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultPage  = 1
)

// Params is a validated page request.
type Params struct {
	Page  int
	Limit int

	// Sort is always one of the keys passed to [FromRequest], or empty when
	// none were passed.
	Sort string

	// Descending is the default; only an explicit dir=asc turns it off.
	Descending bool
}

// Offset returns the SQL OFFSET for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block of a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Meta builds the response metadata for a page of total matching rows.
func (p Params) Meta(total int) Meta {
	return NewMeta(p.Page, p.Limit, total)
}

// NewMeta constructs pagination metadata for a response.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

/*
FromRequest parses paging and ordering from the query string.

Description: Bad numbers fall back to the defaults instead of failing the
request. An unknown sort key falls back to the first allowed key, so the
value handed to the store is always one it knows how to order by.

Parameters:
  - r: *http.Request
  - sorts: ...string (Allowed sort keys, default first)

Returns:
  - Params
*/
func FromRequest(r *http.Request, sorts ...string) Params {
	values := r.URL.Query()

	params := Params{
		Page:       parseInt(values.Get("page"), DefaultPage),
		Limit:      parseInt(values.Get("limit"), DefaultLimit),
		Descending: !strings.EqualFold(values.Get("dir"), "asc"),
	}

	if params.Page < 1 {
		params.Page = DefaultPage
	}
	if params.Limit < 1 || params.Limit > MaxLimit {
		params.Limit = DefaultLimit
	}

	if len(sorts) > 0 {
		params.Sort = sorts[0]
		if requested := strings.ToLower(values.Get("sort")); slices.Contains(sorts, requested) {
			params.Sort = requested
		}
	}

	return params
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
