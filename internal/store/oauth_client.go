package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

var errInvalidClientSecret = pierreerr.New(pierreerr.KindInvalidCredential, "invalid client secret")

// OAuth2Client mirrors §3's OAuth2Client (dynamic-client-registration row).
type OAuth2Client struct {
	ClientID      string
	ClientSecret  string // returned once from Create, never stored
	SecretHash    string
	RedirectURIs  []string
	GrantTypes    []string
	ResponseTypes []string
	Scopes        []string
	OwnerUserID   uuid.UUID
	CreatedAt     time.Time
}

// CreateOAuth2Client persists a newly registered agent client and returns
// its plaintext secret exactly once, per spec §4.4.
func (s *Store) CreateOAuth2Client(ctx context.Context, redirectURIs, grantTypes, responseTypes, scopes []string, ownerUserID uuid.UUID) (*OAuth2Client, error) {
	clientID, _, err := cryptoutil.GenerateOpaqueToken("pierre_client_")
	if err != nil {
		return nil, err
	}
	secret, _, err := cryptoutil.GenerateOpaqueToken("")
	if err != nil {
		return nil, err
	}
	hash, err := cryptoutil.HashSecret(secret)
	if err != nil {
		return nil, err
	}

	c := &OAuth2Client{
		ClientID:      clientID,
		ClientSecret:  secret,
		SecretHash:    hash,
		RedirectURIs:  redirectURIs,
		GrantTypes:    grantTypes,
		ResponseTypes: responseTypes,
		Scopes:        scopes,
		OwnerUserID:   ownerUserID,
	}

	const q = `
		INSERT INTO oauth2_clients (client_id, client_secret_hash, redirect_uris, grant_types, response_types, scopes, owner_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at`
	err = s.pool.QueryRow(ctx, q, c.ClientID, c.SecretHash, c.RedirectURIs, c.GrantTypes, c.ResponseTypes, c.Scopes, c.OwnerUserID).
		Scan(&c.CreatedAt)
	if err != nil {
		return nil, translateErr(err, "")
	}
	return c, nil
}

func (s *Store) GetOAuth2Client(ctx context.Context, clientID string) (*OAuth2Client, error) {
	const q = `SELECT client_id, client_secret_hash, redirect_uris, grant_types, response_types, scopes, owner_user_id, created_at
		FROM oauth2_clients WHERE client_id = $1`
	var c OAuth2Client
	err := s.pool.QueryRow(ctx, q, clientID).Scan(
		&c.ClientID, &c.SecretHash, &c.RedirectURIs, &c.GrantTypes, &c.ResponseTypes, &c.Scopes, &c.OwnerUserID, &c.CreatedAt)
	if err != nil {
		return nil, translateErr(err, "oauth2 client not found")
	}
	return &c, nil
}

// VerifyOAuth2ClientSecret implements the client_credentials / token
// endpoint's client authentication check with a constant-time hash
// compare via cryptoutil.VerifySecret.
func (s *Store) VerifyOAuth2ClientSecret(ctx context.Context, clientID, secret string) (*OAuth2Client, error) {
	c, err := s.GetOAuth2Client(ctx, clientID)
	if err != nil {
		return nil, err
	}
	ok, err := cryptoutil.VerifySecret(secret, c.SecretHash)
	if err != nil || !ok {
		return nil, errInvalidClientSecret
	}
	return c, nil
}
