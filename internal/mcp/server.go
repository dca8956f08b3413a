package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cache"
	"github.com/pierre-fitness/pierre-core/internal/intelligence"
	"github.com/pierre-fitness/pierre-core/internal/mcp/tools"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/provider"
	"github.com/pierre-fitness/pierre-core/internal/ratelimit"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
	"github.com/pierre-fitness/pierre-core/internal/usage"
)

var supportedProtocolVersions = []string{"2024-11-05", "2025-06-18", "2025-11-25"}

const serverVersion = "0.1.0"

var errBodyTooLarge = errors.New("request body exceeds maximum size")

// Deps collects every collaborator the MCP dispatcher needs. Held as a
// plain struct rather than individual constructor args because C8 sits
// on top of nearly every other component.
type Deps struct {
	KeyManager          *auth.KeyManager
	ApiKeys             auth.ApiKeyVerifier
	AdminTokens         auth.AdminTokenVerifier
	Registry            *tools.Registry
	Selector            *toolcatalog.Selector
	Limiter             *ratelimit.Limiter
	Recorder            *usage.Recorder
	Upstream            *oauth2broker.Upstream
	Providers           *provider.Registry
	Intelligence        intelligence.Engine
	Cache               *cache.Cache
	AllowedOrigins      []string
	DevMode             bool
	SessionTTL          time.Duration
	MaxSessionEntries   int
	MaxRequestBodyBytes int64
}

// Server is the MCP half of C8: a JSON-RPC 2.0 dispatcher over
// POST/GET/DELETE /mcp. Grounded on the teacher's MCPServer request
// handling shape (internal/mcpserver/server/server.go: handleMCPPost,
// handleInitialize, handleJSONRPC, origin validation), with Auth0 JWT
// validation replaced by auth.Resolve, the REST-client wiring replaced
// by the fitness tool collaborators, and the version/error tables
// widened to spec.md §4.8/§7.
type Server struct {
	deps       Deps
	sessionMgr *SessionManager
}

func NewServer(deps Deps) *Server {
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	if deps.MaxRequestBodyBytes <= 0 {
		deps.MaxRequestBodyBytes = 1 << 20
	}
	return &Server{
		deps:       deps,
		sessionMgr: NewSessionManager(deps.SessionTTL, deps.MaxSessionEntries),
	}
}

// Mux builds the MCP route table for mounting under the HTTP surface (C10).
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.handlePost)
	mux.HandleFunc("GET /mcp/tools", s.handleToolsDiscovery)
	mux.HandleFunc("DELETE /mcp", s.handleDelete)
	return mux
}

func (s *Server) Close() {
	s.sessionMgr.Close()
}

// handlePost implements the POST /mcp envelope from spec §4.8: origin
// validation, body-size enforcement, principal resolution with
// session-fixation defense, notification short-circuit, then dispatch.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if !s.validateOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	requestID := requestIDFrom(r)
	w.Header().Set("X-Request-Id", requestID)

	body, err := readLimited(r.Body, s.deps.MaxRequestBodyBytes)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, requestID, ParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, requestID, InvalidRequest, "invalid jsonrpc version", nil)
		return
	}

	principal, session, err := s.authenticate(r)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	if session != nil {
		w.Header().Set("Mcp-Session-Id", session.ID)
	}

	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	ctx := r.Context()
	switch req.Method {
	case "initialize":
		s.handleInitialize(w, &req, requestID)

	case "tools/list":
		result, err := s.toolsListResult(ctx, principal)
		if err != nil {
			s.sendDomainError(w, req.ID, requestID, err)
			return
		}
		s.sendResult(w, req.ID, requestID, result)

	case "tools/call":
		s.handleToolsCall(ctx, w, r, &req, principal, requestID)

	case "ping":
		s.sendResult(w, req.ID, requestID, map[string]any{"status": "ok"})

	default:
		s.sendError(w, req.ID, requestID, MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

// authenticate resolves the caller's principal and decides the session to
// attach to the response, per spec §4.8: a request that authenticates via
// Authorization: Bearer (or dev-mode debug header) always gets a fresh
// server-side session, ignoring any client-supplied Mcp-Session-Id
// (defense against session fixation). A request with no credential may
// instead resume a known session, inheriting the principal that
// authenticated it originally.
func (s *Server) authenticate(r *http.Request) (*auth.Principal, *MCPSession, error) {
	if s.deps.DevMode {
		if debugSub := r.Header.Get("X-Debug-Sub"); debugSub != "" {
			p := &auth.Principal{ID: debugSub, Kind: auth.PrincipalUser, UserID: debugSub, TenantID: debugSub, Tier: "Enterprise"}
			session := s.sessionMgr.Create(*p)
			return p, session, nil
		}
	}

	principal, err := auth.Resolve(r.Context(), r, s.deps.KeyManager, s.deps.ApiKeys, s.deps.AdminTokens)
	if err == nil {
		session := s.sessionMgr.Create(*principal)
		return principal, session, nil
	}

	pe, ok := pierreerr.As(err)
	if !ok || pe.Kind != pierreerr.KindUnauthenticated {
		return nil, nil, err
	}

	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		return nil, nil, err
	}
	session, sessErr := s.sessionMgr.Get(sessionID)
	if sessErr != nil {
		return nil, nil, err
	}
	resumed := session.Principal
	return &resumed, session, nil
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

// handleInitialize negotiates the protocol version; the session itself was
// already minted, and its id attached to the response, by authenticate.
func (s *Server) handleInitialize(w http.ResponseWriter, req *JSONRPCRequest, requestID string) {
	var params initializeParams
	_ = json.Unmarshal(req.Params, &params)

	if !containsVersion(supportedProtocolVersions, params.ProtocolVersion) {
		mismatch := pierreerr.New(pierreerr.KindVersionMismatch, "unsupported protocol version").
			WithData(map[string]any{"supported": supportedProtocolVersions})
		s.sendDomainError(w, req.ID, requestID, mismatch)
		return
	}

	result := map[string]any{
		"protocolVersion": params.ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":        "pierre-core",
			"title":       "Pierre Fitness Intelligence",
			"description": "Multi-tenant MCP/A2A server for fitness-provider data and training insights.",
			"version":     serverVersion,
		},
	}
	s.sendResult(w, req.ID, requestID, result)
}

func containsVersion(versions []string, v string) bool {
	for _, candidate := range versions {
		if candidate == v {
			return true
		}
	}
	return false
}

// toolsListResult merges the tenant's resolved tool availability (C6)
// with each tool's registered schema (C8), surfacing only the tools both
// sides agree exist, per spec §4.8's tools/list contract.
func (s *Server) toolsListResult(ctx context.Context, principal *auth.Principal) (any, error) {
	enabled, err := s.deps.Selector.GetEnabledTools(ctx, principal.TenantID)
	if err != nil {
		return nil, pierreerr.Wrap(pierreerr.KindInternal, "failed to resolve enabled tools", err)
	}

	byName := make(map[string]tools.ToolDescriptor, len(enabled))
	for _, d := range s.deps.Registry.List() {
		byName[d.Name] = d
	}

	out := make([]map[string]any, 0, len(enabled))
	for _, r := range enabled {
		d, ok := byName[r.Tool.ToolName]
		if !ok {
			continue
		}
		entry := map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"inputSchema": d.InputSchema,
		}
		annotations := map[string]any{}
		if r.Tool.Annotations.ReadOnly {
			annotations["readOnlyHint"] = true
		}
		if r.Tool.Annotations.Destructive {
			annotations["destructiveHint"] = true
		}
		if r.Tool.Annotations.Idempotent {
			annotations["idempotentHint"] = true
		}
		if r.Tool.Annotations.OpenWorld {
			annotations["openWorldHint"] = true
		}
		if len(annotations) > 0 {
			entry["annotations"] = annotations
		}
		out = append(out, entry)
	}
	return map[string]any{"tools": out}, nil
}

// handleToolsCall implements tools/call's Authorized -> RateChecked ->
// Dispatched pipeline from spec §4.8's dispatcher state machine.
func (s *Server) handleToolsCall(ctx context.Context, w http.ResponseWriter, r *http.Request, req *JSONRPCRequest, principal *auth.Principal, requestID string) {
	var callReq tools.CallRequest
	if err := json.Unmarshal(req.Params, &callReq); err != nil {
		s.sendError(w, req.ID, requestID, InvalidParams, "invalid tools/call parameters", nil)
		return
	}

	enabled, err := s.deps.Selector.IsToolEnabled(ctx, principal.TenantID, callReq.Name)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	if !enabled {
		s.sendDomainError(w, req.ID, requestID, pierreerr.New(pierreerr.KindToolDisabled, "tool is disabled for this tenant"))
		return
	}

	if allowed, _, nextToken, _ := s.deps.Limiter.Allow(principal.ID); !allowed {
		if wait := time.Until(nextToken); wait > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", wait.Seconds()))
		}
		s.sendDomainError(w, req.ID, requestID, pierreerr.New(pierreerr.KindRateLimited, "tool call rate limit exceeded"))
		return
	}

	logger := log.With().
		Str("request_id", requestID).
		Str("tenant_id", principal.TenantID).
		Str("principal_kind", string(principal.Kind)).
		Str("tool_name", callReq.Name).
		Logger()
	toolCtx := tools.NewToolContext(&logger, *principal, s.deps.Upstream, s.deps.Providers, s.deps.Intelligence, s.deps.Cache)

	start := time.Now()
	result, err := s.deps.Registry.Call(ctx, toolCtx, callReq)
	latency := time.Since(start)

	record := usage.Record{
		PrincipalID:   principal.ID,
		PrincipalKind: string(principal.Kind),
		ToolName:      callReq.Name,
		LatencyMs:     latency.Milliseconds(),
		IP:            r.RemoteAddr,
		UserAgent:     r.UserAgent(),
	}
	if err != nil {
		record.StatusCode = pierreerr.KindOf(err).HTTPStatus()
		record.Error = err.Error()
	} else {
		record.StatusCode = http.StatusOK
		if cr, ok := result.(tools.CallResult); ok && cr.IsError {
			record.Error = "tool_error"
		}
	}
	if s.deps.Recorder != nil {
		s.deps.Recorder.Record(record)
	}

	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	s.sendResult(w, req.ID, requestID, result)
}

// handleToolsDiscovery implements the HTTP-surface GET /mcp/tools
// discovery route (spec §4.10), independent of any JSON-RPC session.
func (s *Server) handleToolsDiscovery(w http.ResponseWriter, r *http.Request) {
	if !s.validateOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	principal, err := auth.Resolve(r.Context(), r, s.deps.KeyManager, s.deps.ApiKeys, s.deps.AdminTokens)
	if err != nil {
		kind := pierreerr.KindOf(err)
		http.Error(w, string(kind), kind.HTTPStatus())
		return
	}
	result, err := s.toolsListResult(r.Context(), principal)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.validateOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "missing Mcp-Session-Id header", http.StatusBadRequest)
		return
	}
	s.sessionMgr.Delete(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// validateOrigin guards against DNS-rebinding attacks against the MCP
// endpoint. Grounded verbatim on the teacher's validateOrigin
// (internal/mcpserver/server/server.go).
func (s *Server) validateOrigin(r *http.Request) bool {
	if s.deps.DevMode {
		return true
	}
	if len(s.deps.AllowedOrigins) == 0 {
		log.Warn().Msg("no allowed origins configured - accepting all origins (unsafe for production)")
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		log.Debug().Msg("request missing Origin header")
		return false
	}

	for _, allowed := range s.deps.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	log.Warn().Str("origin", origin).Strs("allowed_origins", s.deps.AllowedOrigins).Msg("origin not in allowlist")
	return false
}

func (s *Server) sendDomainError(w http.ResponseWriter, id json.RawMessage, requestID string, err error) {
	pe, ok := pierreerr.As(err)
	if !ok {
		pe = pierreerr.Wrap(pierreerr.KindInternal, "internal error", err)
	}
	code, message, data := pe.ToJSONRPCError()
	s.sendError(w, id, requestID, code, message, data)
}

// sendError always folds requestID into error.data per spec §4.8's "tool
// internal error -> ... the request id in data" (applied to every error,
// not only tool errors, so every failure is traceable the same way).
func (s *Server) sendError(w http.ResponseWriter, id json.RawMessage, requestID string, code int, message string, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	merged := map[string]any{"request_id": requestID}
	if data != nil {
		var extra map[string]any
		if json.Unmarshal(data, &extra) == nil {
			for k, v := range extra {
				merged[k] = v
			}
		}
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: mustMarshal(merged)},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, requestID string, result any) {
	w.Header().Set("Content-Type", "application/json")
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  mustMarshal(result),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, errBodyTooLarge
	}
	return data, nil
}
