// Package pagination parses page-size and page-token query parameters and
// applies them to in-memory result sets.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 50
	// MaxPageSize caps the supported pageSize to prevent unbounded responses.
	MaxPageSize = 100
)

var (
	// ErrInvalidPageSize reports a pageSize outside the supported range.
	ErrInvalidPageSize = errors.New("pagination: invalid page size")
	// ErrInvalidPageToken reports a page token that could not be decoded.
	ErrInvalidPageToken = errors.New("pagination: invalid page token")
)

// Params bundles the pagination values extracted from a request.
type Params struct {
	PageSize int
	Cursor   Cursor
}

// ParseParams extracts pageSize and pageToken from the request query string.
func ParseParams(r *http.Request) (Params, error) {
	params := Params{PageSize: DefaultPageSize}
	if r == nil {
		return params, nil
	}

	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > MaxPageSize {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		params.PageSize = size
	}

	cursor, err := DecodeToken(query.Get("pageToken"))
	if err != nil {
		return Params{}, err
	}
	params.Cursor = cursor

	return params, nil
}

// Apply slices the items to the requested page and returns the token for the
// following page, empty when the result set is exhausted.
func Apply[T any](items []T, params Params) ([]T, string) {
	size := params.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	offset := params.Cursor.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}, ""
	}

	end := offset + size
	if end >= len(items) {
		return items[offset:], ""
	}
	return items[offset:end], EncodeToken(Cursor{Offset: end})
}
