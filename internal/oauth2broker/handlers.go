package oauth2broker

import (
	"encoding/json"
	"html"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// Deps collects the collaborators the C4 HTTP surface needs: the broker
// for client registration/authorize/token, the store to resolve a
// callback's tenant from its state token, and auth's principal stack for
// the two routes a human user must be signed in to call.
type Deps struct {
	Broker      *ServerBroker
	Upstream    *Upstream
	Store       *store.Store
	Keys        *auth.KeyManager
	ApiKeys     auth.ApiKeyVerifier
	AdminTokens auth.AdminTokenVerifier

	// RegisterLimiter, AuthorizeLimiter and TokenLimiter enforce spec
	// §4.4's per-IP sliding-window limits (OAUTH2_REGISTER_RPM,
	// OAUTH2_AUTHORIZE_RPM, OAUTH2_TOKEN_RPM). Nil disables limiting on
	// that route.
	RegisterLimiter  *IPLimiter
	AuthorizeLimiter *IPLimiter
	TokenLimiter     *IPLimiter
}

// Server exposes the four OAuth2 routes spec §4.10 names:
// POST /oauth2/register, GET /oauth2/authorize, POST /oauth2/token,
// GET /oauth/callback/:provider.
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	authed := auth.Middleware(s.deps.Keys, s.deps.ApiKeys, s.deps.AdminTokens)
	mux.Handle("POST /oauth2/register", withIPLimit(s.deps.RegisterLimiter, authed(http.HandlerFunc(s.handleRegister))))
	mux.Handle("GET /oauth2/authorize", withIPLimit(s.deps.AuthorizeLimiter, authed(http.HandlerFunc(s.handleAuthorize))))
	mux.Handle("POST /oauth2/token", withIPLimit(s.deps.TokenLimiter, http.HandlerFunc(s.handleToken)))
	mux.HandleFunc("GET /oauth/callback/{provider}", s.handleCallback)

	return mux
}

// withIPLimit applies l to next, keyed on the request's remote address. A
// nil limiter is a pass-through, so tests and deployments that don't set
// an OAUTH2_*_RPM override keep working unthrottled.
func withIPLimit(l *IPLimiter, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		result := l.Allow(ip)
		result.SetHeaders(w)
		if !result.Allowed {
			writeOAuthError(w, pierreerr.New(pierreerr.KindRateLimited, "rate limit exceeded, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type registerRequest struct {
	RedirectURIs  []string `json:"redirect_uris"`
	ClientName    string   `json:"client_name"`
	GrantTypes    []string `json:"grant_types"`
	ResponseTypes []string `json:"response_types"`
	Scope         string   `json:"scope"`
}

// handleRegister implements RFC 7591 dynamic client registration against
// the authenticated user's own account as owner.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	if principal == nil || principal.Kind != auth.PrincipalUser {
		writeOAuthError(w, pierreerr.New(pierreerr.KindForbidden, "only a signed-in user may register a client"))
		return
	}
	ownerID, err := uuid.Parse(principal.UserID)
	if err != nil {
		writeOAuthError(w, pierreerr.New(pierreerr.KindInternal, "invalid_request: principal user id is not a uuid"))
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: malformed registration body"))
		return
	}

	client, err := s.deps.Broker.RegisterClient(r.Context(), RegistrationRequest{
		RedirectURIs:  req.RedirectURIs,
		ClientName:    req.ClientName,
		GrantTypes:    req.GrantTypes,
		ResponseTypes: req.ResponseTypes,
		Scope:         req.Scope,
	}, ownerID)
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"client_id":           client.ClientID,
		"client_secret":       client.ClientSecret,
		"redirect_uris":       client.RedirectURIs,
		"grant_types":         client.GrantTypes,
		"response_types":      client.ResponseTypes,
		"scope":               req.Scope,
		"client_id_issued_at": client.CreatedAt.Unix(),
	})
}

// handleAuthorize issues an authorization code for the signed-in user and
// redirects back to the client's redirect_uri, per spec §4.4.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	if principal == nil || principal.Kind != auth.PrincipalUser {
		writeOAuthError(w, pierreerr.New(pierreerr.KindForbidden, "only a signed-in user may authorize a client"))
		return
	}
	userID, err := uuid.Parse(principal.UserID)
	if err != nil {
		writeOAuthError(w, pierreerr.New(pierreerr.KindInternal, "invalid_request: principal user id is not a uuid"))
		return
	}
	var tenantID *uuid.UUID
	if principal.TenantID != "" {
		if tid, err := uuid.Parse(principal.TenantID); err == nil {
			tenantID = &tid
		}
	}

	q := r.URL.Query()
	result, err := s.deps.Broker.Authorize(r.Context(), AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		UserID:              userID,
		TenantID:            tenantID,
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	redirectURL := result.RedirectURI + "?code=" + result.Code
	if state := q.Get("state"); state != "" {
		redirectURL += "&state=" + state
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
}

// handleToken implements RFC 6749's token endpoint for both grants this
// core supports. Accepts either JSON or form-encoded bodies, since RFC
// 6749 mandates application/x-www-form-urlencoded but A2A clients and
// tests commonly send JSON.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	req := tokenRequest{}
	ct := r.Header.Get("Content-Type")
	if ct == "application/x-www-form-urlencoded" || ct == "" {
		if err := r.ParseForm(); err == nil {
			req = tokenRequest{
				GrantType:    r.PostForm.Get("grant_type"),
				Code:         r.PostForm.Get("code"),
				RedirectURI:  r.PostForm.Get("redirect_uri"),
				CodeVerifier: r.PostForm.Get("code_verifier"),
				ClientID:     r.PostForm.Get("client_id"),
				ClientSecret: r.PostForm.Get("client_secret"),
				Scope:        r.PostForm.Get("scope"),
			}
		}
	}
	if req.GrantType == "" {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	token, err := s.deps.Broker.Token(r.Context(), TokenRequest{
		GrantType:    req.GrantType,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: req.CodeVerifier,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Scope:        req.Scope,
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_in":   token.ExpiresIn,
		"scope":        token.Scope,
	})
}

// handleCallback completes an upstream provider's authorization code
// exchange. The request carries no credential of its own (the browser is
// returning from the provider, not from this core), so the tenant is
// recovered from the state token's embedded user id, per spec §6
// "Callback URL format".
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	userID, err := stateUserID(state)
	if err != nil {
		writeCallbackPage(w, http.StatusBadRequest, false, "the authorization request was invalid or expired")
		return
	}
	user, err := s.deps.Store.GetUserByID(r.Context(), userID)
	if err != nil || user.TenantID == nil {
		writeCallbackPage(w, http.StatusBadRequest, false, "the authorization request was invalid or expired")
		return
	}

	if s.deps.Upstream == nil {
		writeCallbackPage(w, http.StatusInternalServerError, false, "this provider connection is temporarily unavailable")
		return
	}

	if err := s.deps.Upstream.HandleCallback(r.Context(), *user.TenantID, provider, code, state); err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("oauth2broker: upstream callback failed")
		writeCallbackPage(w, http.StatusBadGateway, false, "connecting to "+html.EscapeString(provider)+" failed")
		return
	}

	writeCallbackPage(w, http.StatusOK, true, "")
}

func writeCallbackPage(w http.ResponseWriter, status int, ok bool, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(status)
	title, body := "Connected", "You can close this window."
	if !ok {
		title, body = "Connection failed", html.EscapeString(message)
	}
	_, _ = w.Write([]byte("<!doctype html><html><head><title>" + title + "</title></head><body><p>" + body + "</p></body></html>"))
}

// rfcErrorCodes is the RFC 6749 §5.2 / RFC 7591 §3.2.2 registered set this
// broker can emit in the wire `error` field.
var rfcErrorCodes = map[string]bool{
	"invalid_request":           true,
	"invalid_client":            true,
	"invalid_grant":             true,
	"unauthorized_client":       true,
	"unsupported_grant_type":    true,
	"unsupported_response_type": true,
	"invalid_scope":             true,
	"invalid_redirect_uri":      true,
	"access_denied":             true,
	"server_error":              true,
	"temporarily_unavailable":   true,
}

// rfcErrorCode derives the registered error code a client can branch on.
// Call sites prefix their domain-error Message with "code: detail" for
// the specific RFC failure (e.g. "invalid_redirect_uri: ..."); that
// prefix is preferred when present, falling back to a Kind-based default
// otherwise.
func rfcErrorCode(kind pierreerr.Kind, message string) string {
	if prefix, _, found := strings.Cut(message, ": "); found && rfcErrorCodes[prefix] {
		return prefix
	}
	switch kind {
	case pierreerr.KindInvalidRequest, pierreerr.KindInvalidCursor:
		return "invalid_request"
	case pierreerr.KindInvalidCredential:
		return "invalid_client"
	case pierreerr.KindForbidden:
		return "access_denied"
	case pierreerr.KindRateLimited:
		return "temporarily_unavailable"
	default:
		return "server_error"
	}
}

// oauthHTTPStatus overrides the generic domain-error-to-HTTP mapping where
// RFC 6749 pins a token-endpoint error to a specific status regardless of
// the underlying Kind: unauthorized_client is a 400-class error per
// RFC 6749 §5.2, not the 403 KindForbidden normally maps to elsewhere.
func oauthHTTPStatus(kind pierreerr.Kind, code string) int {
	if code == "unauthorized_client" {
		return http.StatusBadRequest
	}
	return kind.HTTPStatus()
}

func writeOAuthError(w http.ResponseWriter, err error) {
	kind := pierreerr.KindOf(err)
	message := err.Error()
	if pe, ok := pierreerr.As(err); ok {
		message = pe.Message
	}
	code := rfcErrorCode(kind, message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(oauthHTTPStatus(kind, code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "error_description": err.Error()})
}
