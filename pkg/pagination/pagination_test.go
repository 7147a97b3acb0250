package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"plain names", "?limit=50&offset=10", 50, 10},
		{"fhir names", "?_count=25&_offset=5", 25, 5},
		{"fhir names win", "?_count=25&limit=50", 25, 0},
		{"limit capped", "?limit=500", MaxLimit, 0},
		{"negative offset clamps to zero", "?offset=-5", DefaultLimit, 0},
		{"garbage falls back", "?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			if p.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b", "c"}

	r := NewResponse(data, 10, 3, 0)
	if r.Total != 10 {
		t.Errorf("total = %d, want 10", r.Total)
	}
	if !r.HasMore {
		t.Error("expected has_more when offset+limit < total")
	}

	last := NewResponse(data, 3, 3, 0)
	if last.HasMore {
		t.Error("did not expect has_more when the page reaches the end")
	}
}
