package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
)

// TenantOAuthCredentials mirrors §3's TenantOAuthCredentials, decrypted.
type TenantOAuthCredentials struct {
	TenantID       uuid.UUID
	Provider       string
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Scopes         []string
	DailyRateLimit int
}

// StoreTenantOAuthCredentials encrypts client_secret via the AEAD before
// persisting, per spec §4.2.
func (s *Store) StoreTenantOAuthCredentials(ctx context.Context, aead *cryptoutil.AEAD, c TenantOAuthCredentials) error {
	ciphertext, nonce, err := aead.EncryptString(c.ClientSecret)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO tenant_oauth_credentials (tenant_id, provider, client_id, client_secret_enc, client_secret_nonce, redirect_uri, scopes, daily_rate_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret_enc = excluded.client_secret_enc,
			client_secret_nonce = excluded.client_secret_nonce,
			redirect_uri = excluded.redirect_uri,
			scopes = excluded.scopes,
			daily_rate_limit = excluded.daily_rate_limit`
	_, err = s.pool.Exec(ctx, q, c.TenantID, c.Provider, c.ClientID, ciphertext, nonce, c.RedirectURI, c.Scopes, c.DailyRateLimit)
	return translateErr(err, "")
}

func (s *Store) GetTenantOAuthCredentials(ctx context.Context, aead *cryptoutil.AEAD, tenantID uuid.UUID, provider string) (*TenantOAuthCredentials, error) {
	const q = `SELECT tenant_id, provider, client_id, client_secret_enc, client_secret_nonce, redirect_uri, scopes, daily_rate_limit
		FROM tenant_oauth_credentials WHERE tenant_id = $1 AND provider = $2`
	var c TenantOAuthCredentials
	var ciphertext, nonce []byte
	err := s.pool.QueryRow(ctx, q, tenantID, provider).Scan(
		&c.TenantID, &c.Provider, &c.ClientID, &ciphertext, &nonce, &c.RedirectURI, &c.Scopes, &c.DailyRateLimit)
	if err != nil {
		return nil, translateErr(err, "tenant oauth credentials not found")
	}
	secret, err := aead.DecryptString(ciphertext, nonce)
	if err != nil {
		return nil, err
	}
	c.ClientSecret = secret
	return &c, nil
}
