package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/paperflowhq/paperflow/internal/pkg/jwt"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Documents:  NewDocumentHandler(nil, nil),
		Sessions:   NewSessionHandler(nil, nil),
		Connectors: NewConnectorHandler(nil, nil),
		Inbound:    NewInboundHandler(nil),
		JWTSecret:  []byte("router-test-secret"),
	})
	return engine
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	engine := newTestRouter(t)
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "ok")
}

func TestAuthedRoutesRejectMissingToken(t *testing.T) {
	engine := newTestRouter(t)
	for _, path := range []string{"/api/v1/documents", "/api/v1/sessions/active", "/api/v1/connectors"} {
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		require.Contains(t, recorder.Body.String(), "authorization", "path %s", path)
	}
}

func TestAuthedRoutesRejectBadToken(t *testing.T) {
	engine := newTestRouter(t)
	otherSecret, err := jwt.GenerateToken("tenant-1", "", []byte("some-other-secret"), time.Hour)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+otherSecret)
	engine.ServeHTTP(recorder, req)
	require.Contains(t, recorder.Body.String(), "invalid token")
}
