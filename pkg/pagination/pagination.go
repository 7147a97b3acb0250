// Package pagination extracts limit/offset paging from list requests
// and wraps list responses with paging metadata.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a clamped limit/offset pair.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads paging parameters from the request query string.
// Both the FHIR-style names (_count, _offset) and the plain names
// (limit, offset) are accepted; values are clamped to [1, MaxLimit]
// and [0, inf) respectively.
func FromContext(c echo.Context) Params {
	return Params{
		Limit:  clamp(queryInt(c, "_count", "limit"), DefaultLimit),
		Offset: max(queryInt(c, "_offset", "offset"), 0),
	}
}

func queryInt(c echo.Context, names ...string) int {
	for _, name := range names {
		if v, err := strconv.Atoi(c.QueryParam(name)); err == nil && v > 0 {
			return v
		}
	}
	return 0
}

func clamp(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	if v > MaxLimit {
		return MaxLimit
	}
	return v
}

// Response is the envelope for paginated list endpoints.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
