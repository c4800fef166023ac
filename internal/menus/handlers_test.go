package menus

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-criteria-cache/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandlers_Search(t *testing.T) {
	router := NewRouter(newMenusFixture(t).svc)

	params := url.Values{}
	params.Set("tenantCode", "0")
	params.Set("name", "系统")
	params.Add("sort", "sort,desc")
	rec := do(t, router, http.MethodGet, "/api/menus?"+params.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decodeInto[search.Page[Menu]](t, rec)
	assert.Equal(t, []string{"系统日志", "系统设置", "系统管理"}, names(page.Rows))
	assert.Equal(t, int64(3), page.Total)

	rec = do(t, router, http.MethodPost, "/api/menus/_search", map[string]any{
		"pathStartingWith": "/system",
		"size":             2,
		"sort":             []string{"sort"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page = decodeInto[search.Page[Menu]](t, rec)
	assert.Equal(t, []string{"系统管理", "系统设置"}, names(page.Rows))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Size)
}

func TestHandlers_SearchErrors(t *testing.T) {
	router := NewRouter(newMenusFixture(t).svc)

	tests := []struct {
		name   string
		method string
		target string
		body   any
	}{
		{"unknown sort property", http.MethodGet, "/api/menus?sort=color", nil},
		{"bad sort modifier", http.MethodGet, "/api/menus?sort=sort,up", nil},
		{"negative page", http.MethodGet, "/api/menus?page=-1", nil},
		{"non numeric size", http.MethodGet, "/api/menus?size=ten", nil},
		{"malformed body", http.MethodPost, "/api/menus/_search", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeInto[errorBody](t, rec)
			assert.Equal(t, CodeInvalidRequest, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestHandlers_CRUD(t *testing.T) {
	router := NewRouter(newMenusFixture(t).svc)

	rec := do(t, router, http.MethodPost, "/api/menus", Menu{TenantCode: "5", Name: "报表", Path: "/reports", Sort: 7})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeInto[Menu](t, rec)
	id := created.ID.String()

	rec = do(t, router, http.MethodGet, "/api/menus/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "报表", decodeInto[Menu](t, rec).Name)

	rec = do(t, router, http.MethodPut, "/api/menus/"+id, Menu{TenantCode: "5", Name: "报表中心", Path: "/reports", Sort: 8})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeInto[Menu](t, rec)
	assert.Equal(t, "报表中心", updated.Name)
	assert.Equal(t, created.ID, updated.ID)

	rec = do(t, router, http.MethodGet, "/api/menus?name="+url.QueryEscape("报表"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"报表中心"}, names(decodeInto[search.Page[Menu]](t, rec).Rows))

	rec = do(t, router, http.MethodDelete, "/api/menus/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/menus/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeInto[errorBody](t, rec).Error.Code)

	rec = do(t, router, http.MethodDelete, "/api/menus/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_WriteErrors(t *testing.T) {
	router := NewRouter(newMenusFixture(t).svc)

	rec := do(t, router, http.MethodGet, "/api/menus/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/menus", Menu{Name: "no tenant"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeInto[errorBody](t, rec)
	assert.Equal(t, CodeInvalidRequest, body.Error.Code)
	assert.Contains(t, body.Error.Message, "tenantCode")

	rec = do(t, router, http.MethodPut, "/api/menus/00000000-0000-0000-0000-000000000001", Menu{TenantCode: "0", Name: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
