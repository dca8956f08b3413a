package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// AuthorizationGrant mirrors §3's short-lived, single-use authorization code.
type AuthorizationGrant struct {
	Code                string
	ClientID            string
	UserID              uuid.UUID
	TenantID            *uuid.UUID
	RedirectURI         string
	Scopes              []string
	CodeChallenge       *string
	CodeChallengeMethod *string
	ExpiresAt           time.Time
	Consumed            bool
}

func (s *Store) CreateAuthorizationGrant(ctx context.Context, g AuthorizationGrant) (*AuthorizationGrant, error) {
	code, _, err := cryptoutil.GenerateOpaqueToken("pierre_code_")
	if err != nil {
		return nil, err
	}
	g.Code = code
	if g.ExpiresAt.IsZero() {
		g.ExpiresAt = time.Now().Add(10 * time.Minute)
	}

	const q = `
		INSERT INTO authorization_grants (code, client_id, user_id, tenant_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)`
	_, err = s.pool.Exec(ctx, q, g.Code, g.ClientID, g.UserID, g.TenantID, g.RedirectURI, g.Scopes, g.CodeChallenge, g.CodeChallengeMethod, g.ExpiresAt)
	if err != nil {
		return nil, translateErr(err, "")
	}
	return &g, nil
}

// ConsumeAuthorizationGrant atomically marks a grant used and returns it,
// failing if already consumed or expired, implementing the single-use
// invariant at the storage layer rather than trusting callers.
func (s *Store) ConsumeAuthorizationGrant(ctx context.Context, code string) (*AuthorizationGrant, error) {
	const q = `
		UPDATE authorization_grants SET consumed = true
		WHERE code = $1 AND consumed = false AND expires_at > now()
		RETURNING code, client_id, user_id, tenant_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, consumed`
	var g AuthorizationGrant
	err := s.pool.QueryRow(ctx, q, code).Scan(
		&g.Code, &g.ClientID, &g.UserID, &g.TenantID, &g.RedirectURI, &g.Scopes, &g.CodeChallenge, &g.CodeChallengeMethod, &g.ExpiresAt, &g.Consumed)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "authorization code is invalid, expired, or already used")
	}
	return &g, nil
}
