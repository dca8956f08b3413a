package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
)

// EncryptedToken mirrors §3's EncryptedToken, decrypted for in-process use.
type EncryptedToken struct {
	UserID       uuid.UUID
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// NearExpiry reports whether the access token should be refreshed now,
// per spec §4.4's 5-minute window.
func (t EncryptedToken) NearExpiry(now time.Time) bool {
	return t.ExpiresAt.Sub(now) <= 5*time.Minute
}

func (s *Store) StoreEncryptedToken(ctx context.Context, aead *cryptoutil.AEAD, t EncryptedToken) error {
	accessEnc, accessNonce, err := aead.EncryptString(t.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc, refreshNonce, err := aead.EncryptString(t.RefreshToken)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO encrypted_tokens (user_id, provider, access_token_enc, access_token_nonce, refresh_token_enc, refresh_token_nonce, expires_at, scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token_enc = excluded.access_token_enc,
			access_token_nonce = excluded.access_token_nonce,
			refresh_token_enc = excluded.refresh_token_enc,
			refresh_token_nonce = excluded.refresh_token_nonce,
			expires_at = excluded.expires_at,
			scope = excluded.scope`
	_, err = s.pool.Exec(ctx, q, t.UserID, t.Provider, accessEnc, accessNonce, refreshEnc, refreshNonce, t.ExpiresAt, t.Scope)
	return translateErr(err, "")
}

func (s *Store) GetEncryptedToken(ctx context.Context, aead *cryptoutil.AEAD, userID uuid.UUID, provider string) (*EncryptedToken, error) {
	const q = `SELECT user_id, provider, access_token_enc, access_token_nonce, refresh_token_enc, refresh_token_nonce, expires_at, scope
		FROM encrypted_tokens WHERE user_id = $1 AND provider = $2`
	var t EncryptedToken
	var accessEnc, accessNonce, refreshEnc, refreshNonce []byte
	err := s.pool.QueryRow(ctx, q, userID, provider).Scan(
		&t.UserID, &t.Provider, &accessEnc, &accessNonce, &refreshEnc, &refreshNonce, &t.ExpiresAt, &t.Scope)
	if err != nil {
		return nil, translateErr(err, "no stored token for this user and provider")
	}
	access, err := aead.DecryptString(accessEnc, accessNonce)
	if err != nil {
		return nil, err
	}
	refresh, err := aead.DecryptString(refreshEnc, refreshNonce)
	if err != nil {
		return nil, err
	}
	t.AccessToken = access
	t.RefreshToken = refresh
	return &t, nil
}

func (s *Store) DeleteEncryptedToken(ctx context.Context, userID uuid.UUID, provider string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM encrypted_tokens WHERE user_id = $1 AND provider = $2`, userID, provider)
	return translateErr(err, "")
}
