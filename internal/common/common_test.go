package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	require.Equal(t, "192.0.2.7", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.3")
	require.Equal(t, "198.51.100.3", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.1 , 10.0.0.1")
	require.Equal(t, "203.0.113.1", ClientIP(req))

	require.Empty(t, ClientIP(nil))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, page)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 5}, meta)

	page, _ = Paginate(items, 3, 2)
	require.Equal(t, []int{5}, page)

	page, meta = Paginate(items, 9, 2)
	require.Empty(t, page)
	require.Equal(t, 5, meta.TotalItems)

	page, _ = Paginate(items, 0, 0)
	require.Len(t, page, 5)
}

func TestParsePaginationCapsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=500", nil)
	page, perPage := ParsePagination(req, 20, 100)
	require.Equal(t, 2, page)
	require.Equal(t, 100, perPage)

	req = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	page, perPage = ParsePagination(req, 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NewAppError("NOT_FOUND", "rate plan not found", http.StatusNotFound, nil).WithDetails(map[string]any{"id": "7"}))
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
	require.NotNil(t, body.Error.Details)

	rr = httptest.NewRecorder()
	WriteError(rr, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "boom")
}
