package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/a2a"
	"github.com/pierre-fitness/pierre-core/internal/admin"
	"github.com/pierre-fitness/pierre-core/internal/mcp"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
)

// corsMiddleware allows browser-based MCP/A2A clients (and the OAuth2
// authorize/callback redirect dance, which always crosses an origin) to
// read the response headers this core sends, without opening the door to
// credentialed cross-origin admin access.
var corsMiddleware = cors.New(cors.Options{
	AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "X-Correlation-ID", "Mcp-Session-Id"},
	ExposedHeaders:   []string{"X-Request-Id", "X-Correlation-ID", "Mcp-Session-Id", "Retry-After"},
	AllowCredentials: false,
}).Handler

// Server is C10: the thin dispatch layer spec §4.10 describes as having
// three concerns only — request id, security headers, routing to the
// right subsystem. It owns no business logic of its own; every route
// delegates straight into one of the other components' own Mux().
type Server struct {
	MCP        *mcp.Server
	A2A        *a2a.Server
	OAuth2     *oauth2broker.Server
	Admin      *admin.Server
	Production bool
}

// Routes assembles the full HTTP surface named in spec §4.10.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(SecurityHeaders(s.Production))
	r.Use(corsMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mcpMux := s.MCP.Mux()
	r.Handle("/mcp", mcpMux)
	r.Handle("/mcp/tools", mcpMux)

	a2aMux := s.A2A.Mux()
	r.Handle("/a2a/auth", a2aMux)
	r.Handle("/a2a/execute", a2aMux)

	oauthMux := s.OAuth2.Mux()
	r.Handle("/oauth2/register", oauthMux)
	r.Handle("/oauth2/authorize", oauthMux)
	r.Handle("/oauth2/token", oauthMux)
	r.Handle("/oauth/callback/*", oauthMux)

	r.Handle("/admin/*", s.Admin.Mux())

	log.Info().Msg("http routes registered")
	return r
}
