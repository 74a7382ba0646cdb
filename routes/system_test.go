package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemRouter(ready ReadinessCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupSystemRoutes(router, "resume-graph-service", ready)
	return router
}

func TestRootRedirectsToDocs(t *testing.T) {
	router := newSystemRouter(func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/docs", w.Header().Get("Location"))
}

func TestDocsListsRoutes(t *testing.T) {
	router := newSystemRouter(func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Service string     `json:"service"`
		Routes  []routeDoc `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "resume-graph-service", body.Service)

	paths := make([]string, 0, len(body.Routes))
	for _, r := range body.Routes {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "/parse_resume/")
	assert.Contains(t, paths, "/extract_entities/")
	assert.Contains(t, paths, "/download_results/")
}

func TestHealth(t *testing.T) {
	router := newSystemRouter(func(context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		check  ReadinessCheck
		status int
	}{
		{"store reachable", func(context.Context) error { return nil }, http.StatusOK},
		{"store down", func(context.Context) error { return errors.New("dial tcp: connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newSystemRouter(tt.check)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
