package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundops/internal/platform/apperror"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Score *int   `json:"score"`
		Name  string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"score":91,"name":"Ana"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, 91, *dst.Score)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"score":"high"}`))
	err := DecodeJSON(req, &dst)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindInvalidInput, appErr.Kind)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "score", appErr.Fields[0].Field)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, apperror.Is(DecodeJSON(req, &dst), apperror.KindInvalidInput))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.True(t, apperror.Is(DecodeJSON(req, &dst), apperror.KindInvalidInput))
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 100)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst map[string]any
	appErr, ok := apperror.As(DecodeJSON(req, &dst))
	require.True(t, ok)
	assert.Equal(t, "request body too large", appErr.Message)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?limit=2&offset=1", nil)
	assert.Equal(t, []int{2, 3}, Page(rec, items, ParsePagination(req, 10, 100)))
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))

	req = httptest.NewRequest(http.MethodGet, "/?offset=9", nil)
	assert.Empty(t, Page(httptest.NewRecorder(), items, ParsePagination(req, 10, 100)))

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	assert.Equal(t, 3, ParsePagination(req, 10, 3).Limit)
}
