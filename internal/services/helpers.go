package services

import (
	"context"
	"strings"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// utcNow keeps stored timestamps comparable on drivers that persist them as text.
func utcNow() time.Time {
	return time.Now().UTC()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// PageBounds clamps pagination parameters to the supported range.
func PageBounds(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > maxPageSize {
		perPage = defaultPageSize
	}
	return page, perPage
}

// searchTerms splits a free text query into lower-cased LIKE patterns.
func searchTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		terms = append(terms, "%"+field+"%")
	}
	return terms
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
