package oauth2broker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// ServerBroker is the server side of C4: it issues client_id/client_secret
// pairs to registered agent clients and runs the authorization_code and
// client_credentials grants against them, per spec §4.4.
type ServerBroker struct {
	store             *store.Store
	allowedGrantTypes []string
	allowedRespTypes  []string
	sessionTTL        time.Duration
}

func NewServerBroker(st *store.Store, sessionTTL time.Duration) *ServerBroker {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &ServerBroker{
		store:             st,
		allowedGrantTypes: defaultGrantTypes,
		allowedRespTypes:  defaultResponseTypes,
		sessionTTL:        sessionTTL,
	}
}

// RegisterClient validates and persists a new agent client, returning its
// secret exactly once (spec §4.4 "dynamic client registration").
func (b *ServerBroker) RegisterClient(ctx context.Context, req RegistrationRequest, ownerUserID uuid.UUID) (*store.OAuth2Client, error) {
	if err := ValidateRegistration(req, b.allowedGrantTypes, b.allowedRespTypes); err != nil {
		return nil, err
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code"}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}
	scopes := splitScope(req.Scope)

	return b.store.CreateOAuth2Client(ctx, req.RedirectURIs, grantTypes, responseTypes, scopes, ownerUserID)
}

// AuthorizeRequest is the GET /oauth2/authorize query, already bound to an
// authenticated user by the HTTP layer before reaching here.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	UserID              uuid.UUID
	TenantID            *uuid.UUID
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeResult carries the values the HTTP layer redirects the user
// agent back to the client with.
type AuthorizeResult struct {
	RedirectURI string
	Code        string
	State       string
}

// Authorize issues a short-lived, single-use authorization code for an
// already-authenticated user against a registered client, per spec §4.4's
// "Issued -> Consumed|Expired" grant state machine.
func (b *ServerBroker) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	client, err := b.store.GetOAuth2Client(ctx, req.ClientID)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "invalid_client: unknown client_id")
	}
	if !contains(client.RedirectURIs, req.RedirectURI) {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: redirect_uri does not match a registered value")
	}
	if !contains(client.GrantTypes, "authorization_code") {
		return nil, pierreerr.New(pierreerr.KindForbidden, "unauthorized_client: client is not registered for the authorization_code grant")
	}

	state, err := newState(req.UserID)
	if err != nil {
		return nil, err
	}

	var challenge, method *string
	if req.CodeChallenge != "" {
		challenge = &req.CodeChallenge
		m := req.CodeChallengeMethod
		if m == "" {
			m = "plain"
		}
		method = &m
	}

	grant, err := b.store.CreateAuthorizationGrant(ctx, store.AuthorizationGrant{
		ClientID:            req.ClientID,
		UserID:              req.UserID,
		TenantID:            req.TenantID,
		RedirectURI:         req.RedirectURI,
		Scopes:              splitScope(req.Scope),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
	})
	if err != nil {
		return nil, err
	}

	return &AuthorizeResult{RedirectURI: req.RedirectURI, Code: grant.Code, State: state}, nil
}

// newState generates the spec §4.4 "user_id:nonce" opaque state token.
func newState(userID uuid.UUID) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("oauth2broker: generate state: %w", err)
	}
	return fmt.Sprintf("%s:%s", userID.String(), hex.EncodeToString(nonce)), nil
}

// stateUserID extracts the user_id component of a "user_id:nonce" state
// token, per spec §4.4.
func stateUserID(state string) (uuid.UUID, error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: malformed state")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: malformed state")
	}
	return id, nil
}

// TokenRequest is the POST /oauth2/token body.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	ClientID     string
	ClientSecret string
	Scope        string
}

// TokenResponse mirrors RFC 6749's successful token response.
type TokenResponse struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Scope       string
}

// Token exchanges an authorization code or client credentials for a
// session-bound access token, per spec §4.4 and RFC 6749.
func (b *ServerBroker) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	switch req.GrantType {
	case "authorization_code":
		return b.tokenFromCode(ctx, req)
	case "client_credentials":
		return b.tokenFromClientCredentials(ctx, req)
	case "":
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: grant_type is required")
	default:
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "unsupported_grant_type: "+req.GrantType)
	}
}

func (b *ServerBroker) tokenFromCode(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: code is required")
	}

	client, err := b.store.VerifyOAuth2ClientSecret(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "invalid_client: client authentication failed")
	}

	grant, err := b.store.ConsumeAuthorizationGrant(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if grant.ClientID != client.ClientID {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "invalid_grant: code was not issued to this client")
	}
	if grant.RedirectURI != req.RedirectURI {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: redirect_uri does not match the value used at authorize time")
	}

	var challenge, method string
	if grant.CodeChallenge != nil {
		challenge = *grant.CodeChallenge
	}
	if grant.CodeChallengeMethod != nil {
		method = *grant.CodeChallengeMethod
	}
	if err := VerifyPKCE(challenge, method, req.CodeVerifier); err != nil {
		return nil, err
	}

	userID := grant.UserID
	sess, err := b.store.CreateSession(ctx, client.ClientID, &userID, grant.Scopes, b.sessionTTL)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: sess.ID.String(),
		TokenType:   "Bearer",
		ExpiresIn:   int64(b.sessionTTL.Seconds()),
		Scope:       strings.Join(grant.Scopes, " "),
	}, nil
}

func (b *ServerBroker) tokenFromClientCredentials(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	client, err := b.store.VerifyOAuth2ClientSecret(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "invalid_client: client authentication failed")
	}
	if !contains(client.GrantTypes, "client_credentials") {
		return nil, pierreerr.New(pierreerr.KindForbidden, "unauthorized_client: client is not registered for the client_credentials grant")
	}

	scopes := splitScope(req.Scope)
	if len(scopes) == 0 {
		scopes = client.Scopes
	}

	sess, err := b.store.CreateSession(ctx, client.ClientID, nil, scopes, b.sessionTTL)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: sess.ID.String(),
		TokenType:   "Bearer",
		ExpiresIn:   int64(b.sessionTTL.Seconds()),
		Scope:       strings.Join(scopes, " "),
	}, nil
}

func splitScope(scope string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	return strings.Fields(scope)
}
