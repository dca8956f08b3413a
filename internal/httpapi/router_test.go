package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/a2a"
	"github.com/pierre-fitness/pierre-core/internal/admin"
	"github.com/pierre-fitness/pierre-core/internal/mcp"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
)

// newTestServer wires an httpapi.Server from zero-value subsystem deps.
// Routes() only needs each subsystem's Mux() to be constructible without a
// live store; the subsystems' own handler tests (mcp/a2a/oauth2broker/admin
// package tests) cover what happens once a request actually reaches them.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	mcpSrv := mcp.NewServer(mcp.Deps{})
	t.Cleanup(mcpSrv.Close)
	return &Server{
		MCP:    mcpSrv,
		A2A:    a2a.NewServer(a2a.Deps{}),
		OAuth2: oauth2broker.NewServer(oauth2broker.Deps{}),
		Admin:  admin.NewServer(admin.Deps{}),
	}
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRoutes_AppliesSecurityHeadersAndCorrelationID(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRoutes_DispatchesToSubsystems(t *testing.T) {
	srv := newTestServer(t)

	// /admin/* is mounted and reaches auth.Middleware, which rejects an
	// unauthenticated request before any admin business logic runs.
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/tools/catalog", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// /mcp/tools is routed into the MCP subsystem's own mux.
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/tools", nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)

	// unmapped paths fall through chi's default 404.
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
