package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/store"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
)

// Deps collects every collaborator the admin control plane needs.
type Deps struct {
	Store       *store.Store
	Keys        *auth.KeyManager
	ApiKeys     auth.ApiKeyVerifier
	AdminTokens auth.AdminTokenVerifier
	Catalog     *toolcatalog.Catalog
	Selector    *toolcatalog.Selector
}

// Server mounts the three admin route groups under /admin, each gated by
// auth.Middleware (principal resolution) then auth.RequireAdmin (the
// per-route ViewConfiguration/ManageConfiguration check from spec §4.9).
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Mux() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(s.deps.Keys, s.deps.ApiKeys, s.deps.AdminTokens))

	mountTokenRoutes(r, TokensDeps{Store: s.deps.Store, Keys: s.deps.Keys})
	mountToolRoutes(r, ToolsDeps{Catalog: s.deps.Catalog, Selector: s.deps.Selector})
	mountUserRoutes(r, UsersDeps{Store: s.deps.Store})

	return r
}
