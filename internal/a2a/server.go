package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cache"
	"github.com/pierre-fitness/pierre-core/internal/intelligence"
	"github.com/pierre-fitness/pierre-core/internal/mcp"
	"github.com/pierre-fitness/pierre-core/internal/mcp/tools"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/provider"
	"github.com/pierre-fitness/pierre-core/internal/ratelimit"
	"github.com/pierre-fitness/pierre-core/internal/store"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
	"github.com/pierre-fitness/pierre-core/internal/usage"
)

// Deps collects every collaborator the A2A surface needs. The tool-call
// path shares Registry/Selector/Limiter/Recorder/Upstream/Providers/
// Intelligence/Cache with the MCP dispatcher verbatim (internal/mcp) —
// one tool catalog, two protocol fronts.
type Deps struct {
	Store               *store.Store
	Broker              *oauth2broker.ServerBroker
	Registry            *tools.Registry
	Selector            *toolcatalog.Selector
	Limiter             *ratelimit.Limiter
	Recorder            *usage.Recorder
	Upstream            *oauth2broker.Upstream
	Providers           *provider.Registry
	Intelligence        intelligence.Engine
	Cache               *cache.Cache
	MaxRequestBodyBytes int64
}

// Server is the A2A half of C8: a plain REST client-credentials token
// endpoint (POST /a2a/auth) plus a JSON-RPC 2.0 dispatcher
// (POST /a2a/execute) for tool calls and the Task lifecycle, per spec
// §4.8's "a2a/auth (client-credentials), a2a/execute (tool call),
// a2a/tasks/create|get|list|cancel".
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.MaxRequestBodyBytes <= 0 {
		deps.MaxRequestBodyBytes = 1 << 20
	}
	return &Server{deps: deps}
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /a2a/auth", s.handleAuth)
	mux.HandleFunc("POST /a2a/execute", s.handleExecute)
	return mux
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
}

// handleAuth exchanges client credentials for the opaque bearer token
// POST /a2a/execute expects, delegating to the same broker C4 uses for
// /oauth2/token's client_credentials grant.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid request body"))
		return
	}
	if req.GrantType == "" {
		req.GrantType = "client_credentials"
	}

	token, err := s.deps.Broker.Token(r.Context(), oauth2broker.TokenRequest{
		GrantType:    req.GrantType,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Scope:        req.Scope,
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_in":   token.ExpiresIn,
		"scope":        token.Scope,
	})
}

func writeOAuthError(w http.ResponseWriter, err error) {
	kind := pierreerr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(kind), "error_description": err.Error()})
}

// handleExecute implements the POST /a2a/execute envelope, mirroring
// mcp.Server's handlePost (body-size enforcement, request-id attachment,
// notification short-circuit) but authenticating via the opaque A2A
// session token instead of auth.Resolve.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set("X-Request-Id", requestID)

	body, err := readLimited(r.Body, s.deps.MaxRequestBodyBytes)
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, requestID, mcp.ParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, requestID, mcp.InvalidRequest, "invalid jsonrpc version", nil)
		return
	}

	principal, err := ResolveA2APrincipal(r.Context(), s.deps.Store, r)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}

	if req.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	ctx := r.Context()
	switch req.Method {
	case "tools/call":
		s.handleToolsCall(ctx, w, r, &req, principal, requestID)
	case "tasks/create":
		s.handleTasksCreate(ctx, w, &req, principal, requestID)
	case "tasks/get":
		s.handleTasksGet(ctx, w, &req, requestID)
	case "tasks/list":
		s.handleTasksList(ctx, w, &req, principal, requestID)
	case "tasks/cancel":
		s.handleTasksCancel(ctx, w, &req, requestID)
	default:
		s.sendError(w, req.ID, requestID, mcp.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleToolsCall(ctx context.Context, w http.ResponseWriter, r *http.Request, req *mcp.JSONRPCRequest, principal *auth.Principal, requestID string) {
	var callReq tools.CallRequest
	if err := json.Unmarshal(req.Params, &callReq); err != nil {
		s.sendError(w, req.ID, requestID, mcp.InvalidParams, "invalid tools/call parameters", nil)
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

type createTaskParams struct {
	TaskType string          `json:"task_type"`
	Input    json.RawMessage `json:"input"`
}

// handleTasksCreate implements a2a/tasks/create: submit creates a row in
// Pending (spec §9's "message-passing task subsystem"); a worker outside
// this dispatcher moves it to Running and eventually a terminal state.
func (s *Server) handleTasksCreate(ctx context.Context, w http.ResponseWriter, req *mcp.JSONRPCRequest, principal *auth.Principal, requestID string) {
	var p createTaskParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.sendError(w, req.ID, requestID, mcp.InvalidParams, "invalid tasks/create parameters", nil)
		return
	}
	if p.TaskType == "" {
		s.sendDomainError(w, req.ID, requestID, pierreerr.New(pierreerr.KindInvalidRequest, "task_type is required"))
		return
	}

	task, err := s.deps.Store.CreateTask(ctx, principal.ID, p.TaskType, p.Input)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	s.sendResult(w, req.ID, requestID, taskView(task))
}

type taskIDParams struct {
	TaskID string `json:"task_id"`
}

func (p taskIDParams) parse() (uuid.UUID, error) {
	id, err := uuid.Parse(p.TaskID)
	if err != nil {
		return uuid.Nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid task_id")
	}
	return id, nil
}

func (s *Server) handleTasksGet(ctx context.Context, w http.ResponseWriter, req *mcp.JSONRPCRequest, requestID string) {
	var p taskIDParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.sendError(w, req.ID, requestID, mcp.InvalidParams, "invalid tasks/get parameters", nil)
		return
	}
	id, err := p.parse()
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}

	task, err := s.deps.Store.GetTask(ctx, id)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	s.sendResult(w, req.ID, requestID, taskView(task))
}

// handleTasksList implements a2a/tasks/list, scoped to tasks submitted by
// the calling client (spec §9: clients poll their own tasks).
func (s *Server) handleTasksList(ctx context.Context, w http.ResponseWriter, req *mcp.JSONRPCRequest, principal *auth.Principal, requestID string) {
	tasks, err := s.deps.Store.ListTasksByClient(ctx, principal.ID, 50)
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	views := make([]map[string]any, 0, len(tasks))
	for i := range tasks {
		views = append(views, taskView(&tasks[i]))
	}
	s.sendResult(w, req.ID, requestID, map[string]any{"tasks": views})
}

func (s *Server) handleTasksCancel(ctx context.Context, w http.ResponseWriter, req *mcp.JSONRPCRequest, requestID string) {
	var p taskIDParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.sendError(w, req.ID, requestID, mcp.InvalidParams, "invalid tasks/cancel parameters", nil)
		return
	}
	id, err := p.parse()
	if err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}

	if err := s.deps.Store.TransitionTask(ctx, id, store.TaskCancelled, nil, nil); err != nil {
		s.sendDomainError(w, req.ID, requestID, err)
		return
	}
	s.sendResult(w, req.ID, requestID, map[string]any{"task_id": p.TaskID, "status": string(store.TaskCancelled)})
}

func taskView(t *store.Task) map[string]any {
	view := map[string]any{
		"id":         t.ID.String(),
		"client_id":  t.ClientID,
		"task_type":  t.TaskType,
		"status":     string(t.Status),
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
	if len(t.InputData) > 0 {
		view["input"] = json.RawMessage(t.InputData)
	}
	if len(t.OutputData) > 0 {
		view["output"] = json.RawMessage(t.OutputData)
	}
	if t.ErrorMessage != nil {
		view["error"] = *t.ErrorMessage
	}
	if t.CompletedAt != nil {
		view["completed_at"] = *t.CompletedAt
	}
	return view
}

func (s *Server) sendDomainError(w http.ResponseWriter, id json.RawMessage, requestID string, err error) {
	pe, ok := pierreerr.As(err)
	if !ok {
		pe = pierreerr.Wrap(pierreerr.KindInternal, "internal error", err)
	}
	code, message, data := pe.ToJSONRPCError()
	s.sendError(w, id, requestID, code, message, data)
}

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

	resp := mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &mcp.JSONRPCError{Code: code, Message: message, Data: mustMarshal(merged)},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, requestID string, result any) {
	w.Header().Set("Content-Type", "application/json")
	resp := mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  mustMarshal(result),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
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
		return nil, fmt.Errorf("request body exceeds maximum size")
	}
	return data, nil
}
