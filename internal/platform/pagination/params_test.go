package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestParseParamsDefaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/orders", nil)

	params, err := ParseParams(req)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}
	if params.Cursor.Offset != 0 {
		t.Fatalf("expected zero offset, got %d", params.Cursor.Offset)
	}
}

func TestParseParamsRejectsInvalidPageSize(t *testing.T) {
	cases := []string{"0", "-5", "101", "abc"}
	for _, raw := range cases {
		req := httptest.NewRequest("GET", "/api/orders?pageSize="+raw, nil)
		if _, err := ParseParams(req); !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("pageSize %q: expected ErrInvalidPageSize, got %v", raw, err)
		}
	}
}

func TestParseParamsRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/orders?pageToken=%21%21not-base64", nil)
	if _, err := ParseParams(req); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token := EncodeToken(Cursor{Offset: 25})
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	cursor, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if cursor.Offset != 25 {
		t.Fatalf("expected offset 25, got %d", cursor.Offset)
	}

	if EncodeToken(Cursor{}) != "" {
		t.Fatalf("expected empty token for zero cursor")
	}
}

func TestApplyPagesThroughResults(t *testing.T) {
	items := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		items = append(items, i)
	}

	page, next := Apply(items, Params{PageSize: 3})
	if len(page) != 3 || page[0] != 0 {
		t.Fatalf("unexpected first page %v", page)
	}
	if next == "" {
		t.Fatalf("expected next page token")
	}

	cursor, err := DecodeToken(next)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	page, next = Apply(items, Params{PageSize: 3, Cursor: cursor})
	if len(page) != 3 || page[0] != 3 {
		t.Fatalf("unexpected second page %v", page)
	}

	cursor, err = DecodeToken(next)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	page, next = Apply(items, Params{PageSize: 3, Cursor: cursor})
	if len(page) != 1 || page[0] != 6 {
		t.Fatalf("unexpected final page %v", page)
	}
	if next != "" {
		t.Fatalf("expected exhausted result set, got token %q", next)
	}
}

func TestApplyOffsetPastEnd(t *testing.T) {
	page, next := Apply([]int{1, 2}, Params{PageSize: 10, Cursor: Cursor{Offset: 5}})
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %v", page)
	}
	if next != "" {
		t.Fatalf("expected no token, got %q", next)
	}
}
