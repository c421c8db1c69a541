package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_RequiresServices(t *testing.T) {
	_, err := NewRouter(RouterServices{})
	require.Error(t, err)
}

func TestRouter_RootGoesToDashboard(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRouter_UnknownPathIsNotFound(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/jobs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(jsonRequest(http.MethodDelete, "/auth/login", ""))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Readiness(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "no checks configured")

	ready := readyHandler(map[string]ReadinessCheck{
		"database": func(context.Context) error { return errors.New("down") },
	})
	rec = httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListPage(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{query: "", limit: defaultGrievanceListLimit, offset: 0},
		{query: "limit=10&offset=20", limit: 10, offset: 20},
		{query: "limit=0&offset=-5", limit: 1, offset: 0},
		{query: "limit=5000", limit: maxGrievanceListLimit, offset: 0},
		{query: "limit=ten&offset=x", limit: defaultGrievanceListLimit, offset: 0},
	}
	for _, tt := range tests {
		limit, offset := listPage(httptest.NewRequest(http.MethodGet, "/api/grievances?"+tt.query, nil))
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}
