package oauth2broker

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// providerEndpoints is the closed set of upstream fitness providers this
// core brokers tokens for. The providers' own data APIs are out of scope
// (external provider adapters); only the OAuth2 endpoints live here.
var providerEndpoints = map[string]oauth2.Endpoint{
	"strava": {
		AuthURL:  "https://www.strava.com/oauth/authorize",
		TokenURL: "https://www.strava.com/oauth/token",
	},
	"fitbit": {
		AuthURL:  "https://www.fitbit.com/oauth2/authorize",
		TokenURL: "https://api.fitbit.com/oauth2/token",
	},
}

var providerRevokeURL = map[string]string{
	"strava": "https://www.strava.com/oauth/deauthorize",
	"fitbit": "https://api.fitbit.com/oauth2/revoke",
}

// Upstream is the client side of C4: acting on behalf of users against
// upstream fitness providers using per-tenant OAuth2 credentials.
// Single-flight per (user_id, provider) collapses concurrent near-expiry
// refreshes into one upstream call, per spec §4.4 and §5.
type Upstream struct {
	store      *store.Store
	aead       *cryptoutil.AEAD
	httpClient *http.Client
	refreshSF  singleflight.Group
}

func NewUpstream(st *store.Store, aead *cryptoutil.AEAD, httpClient *http.Client) *Upstream {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Upstream{store: st, aead: aead, httpClient: httpClient}
}

// AuthURLResult mirrors generate_auth_url's return shape.
type AuthURLResult struct {
	URL               string
	State             string
	ExpiresInMinutes  int
}

// GenerateAuthURL builds a provider authorize URL for user_id/tenant_id,
// per spec §4.4.
func (u *Upstream) GenerateAuthURL(ctx context.Context, userID, tenantID uuid.UUID, provider string) (*AuthURLResult, error) {
	endpoint, ok := providerEndpoints[provider]
	if !ok {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unknown provider "+provider)
	}

	creds, err := u.store.GetTenantOAuthCredentials(ctx, u.aead, tenantID, provider)
	if err != nil {
		return nil, err
	}

	state, err := newState(userID)
	if err != nil {
		return nil, err
	}

	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint:     endpoint,
	}

	return &AuthURLResult{
		URL:              cfg.AuthCodeURL(state, oauth2.AccessTypeOffline),
		State:            state,
		ExpiresInMinutes: 10,
	}, nil
}

// HandleCallback exchanges an upstream authorization code for tokens and
// stores them encrypted, per spec §4.4.
func (u *Upstream) HandleCallback(ctx context.Context, tenantID uuid.UUID, provider, code, state string) error {
	userID, err := stateUserID(state)
	if err != nil {
		return err
	}

	endpoint, ok := providerEndpoints[provider]
	if !ok {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unknown provider "+provider)
	}

	creds, err := u.store.GetTenantOAuthCredentials(ctx, u.aead, tenantID, provider)
	if err != nil {
		return err
	}

	cfg := oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint:     endpoint,
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return pierreerr.New(pierreerr.KindProviderUnavailable, "token exchange with "+provider+" failed")
	}

	scope, _ := tok.Extra("scope").(string)
	return u.store.StoreEncryptedToken(ctx, u.aead, store.EncryptedToken{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
	})
}

// IsAuthenticated reports whether a usable token is stored for
// (userID, provider), without surfacing TokenUnavailable as an error.
func (u *Upstream) IsAuthenticated(ctx context.Context, userID uuid.UUID, provider string) (bool, error) {
	_, err := u.store.GetEncryptedToken(ctx, u.aead, userID, provider)
	if err != nil {
		if pe, ok := pierreerr.As(err); ok && pe.Kind == pierreerr.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetValidToken returns a usable access token for (userID, provider),
// refreshing synchronously when near expiry. Concurrent callers for the
// same (userID, provider) share one refresh via singleflight, per spec
// §4.4/§5.
func (u *Upstream) GetValidToken(ctx context.Context, userID uuid.UUID, provider string) (string, error) {
	stored, err := u.store.GetEncryptedToken(ctx, u.aead, userID, provider)
	if err != nil {
		return "", pierreerr.New(pierreerr.KindTokenUnavailable, "no stored token for this user and provider")
	}

	if !stored.NearExpiry(time.Now()) {
		return stored.AccessToken, nil
	}

	key := userID.String() + ":" + provider
	v, err, _ := u.refreshSF.Do(key, func() (interface{}, error) {
		return u.refresh(ctx, userID, provider, *stored)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (u *Upstream) refresh(ctx context.Context, userID uuid.UUID, provider string, stored store.EncryptedToken) (string, error) {
	endpoint, ok := providerEndpoints[provider]
	if !ok {
		return "", pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unknown provider "+provider)
	}

	var refreshed *oauth2.Token
	op := func() error {
		src := oauth2.Config{Endpoint: endpoint}.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken})
		tok, err := src.Token()
		if err != nil {
			return err
		}
		refreshed = tok
		return nil
	}

	policy := retryPolicy()
	if err := backoff.Retry(op, policy); err != nil {
		return "", pierreerr.New(pierreerr.KindProviderUnavailable, "refreshing "+provider+" token failed")
	}

	newToken := store.EncryptedToken{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		ExpiresAt:    refreshed.Expiry,
		Scope:        stored.Scope,
	}
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = stored.RefreshToken
	}
	if err := u.store.StoreEncryptedToken(ctx, u.aead, newToken); err != nil {
		return "", err
	}
	return newToken.AccessToken, nil
}

// Deauthorize best-effort revokes the upstream token, then always deletes
// the locally stored one, per spec §4.4.
func (u *Upstream) Deauthorize(ctx context.Context, userID uuid.UUID, provider string) error {
	stored, err := u.store.GetEncryptedToken(ctx, u.aead, userID, provider)
	if err == nil {
		if revokeURL, ok := providerRevokeURL[provider]; ok {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, nil)
			if reqErr == nil {
				req.Header.Set("Authorization", "Bearer "+stored.AccessToken)
				if resp, doErr := u.httpClient.Do(req); doErr == nil {
					resp.Body.Close()
				}
			}
		}
	}
	return u.store.DeleteEncryptedToken(ctx, userID, provider)
}
