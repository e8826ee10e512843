// Package utils holds query-string parsing helpers shared by the HTTP
// handlers: paging, optional booleans and time ranges.
package utils

import (
	"strconv"
	"strings"
)

// Paging defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page reads page and page_size values. Invalid or non-positive values fall
// back to the defaults and page_size is capped at MaxPageSize.
func Page(page, pageSize string) (int, int) {
	p := AtoiDefault(page, DefaultPage)
	if p < 1 {
		p = DefaultPage
	}
	ps := AtoiDefault(pageSize, DefaultPageSize)
	if ps < 1 {
		ps = DefaultPageSize
	}
	return p, min(ps, MaxPageSize)
}
