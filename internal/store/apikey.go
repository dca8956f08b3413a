package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// ApiKey mirrors §3's ApiKey entity.
type ApiKey struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Name                  string
	KeyPrefix             string
	KeyHash               string
	Tier                  string
	RateLimitRequests     int
	RateLimitWindowSecs   int
	IsActive              bool
	CreatedAt             time.Time
	LastUsedAt            *time.Time
	ExpiresAt             *time.Time
}

// CreateApiKey mints a new opaque key, returning the plaintext once.
func (s *Store) CreateApiKey(ctx context.Context, userID uuid.UUID, name, tier string, rateLimitRequests, rateLimitWindowSecs int, expiresAt *time.Time) (key *ApiKey, plaintext string, err error) {
	full, prefix, err := cryptoutil.GenerateOpaqueToken("pierre_ak_")
	if err != nil {
		return nil, "", err
	}
	hash, err := cryptoutil.HashSecret(full)
	if err != nil {
		return nil, "", err
	}

	k := &ApiKey{
		ID:                  uuid.New(),
		UserID:              userID,
		Name:                name,
		KeyPrefix:           prefix,
		KeyHash:             hash,
		Tier:                tier,
		RateLimitRequests:   rateLimitRequests,
		RateLimitWindowSecs: rateLimitWindowSecs,
		IsActive:            true,
		ExpiresAt:           expiresAt,
	}

	const q = `
		INSERT INTO api_keys (id, user_id, name, key_prefix, key_hash, tier, rate_limit_requests, rate_limit_window_seconds, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), $9)
		RETURNING created_at`
	err = s.pool.QueryRow(ctx, q, k.ID, k.UserID, k.Name, k.KeyPrefix, k.KeyHash, k.Tier, k.RateLimitRequests, k.RateLimitWindowSecs, k.ExpiresAt).
		Scan(&k.CreatedAt)
	if err != nil {
		return nil, "", translateErr(err, "")
	}
	return k, full, nil
}

func (s *Store) GetApiKeyByPrefix(ctx context.Context, prefix string) (*ApiKey, error) {
	const q = `SELECT id, user_id, name, key_prefix, key_hash, tier, rate_limit_requests, rate_limit_window_seconds, is_active, created_at, last_used_at, expires_at
		FROM api_keys WHERE key_prefix = $1`
	var k ApiKey
	err := s.pool.QueryRow(ctx, q, prefix).Scan(
		&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash, &k.Tier, &k.RateLimitRequests, &k.RateLimitWindowSecs,
		&k.IsActive, &k.CreatedAt, &k.LastUsedAt, &k.ExpiresAt)
	if err != nil {
		return nil, translateErr(err, "api key not found")
	}
	return &k, nil
}

func (s *Store) TouchApiKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	return translateErr(err, "")
}

func (s *Store) RevokeApiKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "")
	}
	if tag.RowsAffected() == 0 {
		return pierreerr.New(pierreerr.KindNotFound, "api key not found")
	}
	return nil
}

// ApiKeyAuthVerifier adapts Store to auth.ApiKeyVerifier: an API key is
// presented in full, its prefix narrows the lookup, and the full key is
// checked against its stored Argon2id hash with a constant-time compare.
type ApiKeyAuthVerifier struct{ *Store }

func (v ApiKeyAuthVerifier) VerifyApiKey(ctx context.Context, rawKey string) (*auth.Principal, error) {
	k, err := v.lookupByRawKey(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	ok, err := cryptoutil.VerifySecret(rawKey, k.KeyHash)
	if err != nil || !ok {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "invalid api key")
	}
	if !k.IsActive {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "api key has been revoked")
	}
	if k.ExpiresAt != nil && time.Now().After(*k.ExpiresAt) {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "api key has expired")
	}

	_ = v.TouchApiKeyLastUsed(ctx, k.ID)

	return &auth.Principal{
		ID:     k.ID.String(),
		Kind:   auth.PrincipalApiKey,
		UserID: k.UserID.String(),
		Tier:   k.Tier,
	}, nil
}

// lookupByRawKey scans candidate rows by key_prefix length, the same
// prefix convention cryptoutil.GenerateOpaqueToken establishes.
func (v ApiKeyAuthVerifier) lookupByRawKey(ctx context.Context, rawKey string) (*ApiKey, error) {
	const prefixLen = len("pierre_ak_") + 6
	if len(rawKey) < prefixLen {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "malformed api key")
	}
	return v.GetApiKeyByPrefix(ctx, rawKey[:prefixLen])
}
