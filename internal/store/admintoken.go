package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// AdminToken mirrors §3's AdminToken. Permissions is the decoded bitset.
type AdminToken struct {
	ID             uuid.UUID
	ServiceName    string
	TokenHash      string
	TokenPrefix    string
	JWTSecretHash  string
	Permissions    []string
	IsSuperAdmin   bool
	IsActive       bool
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	UsageCount     int64
	LastUsedAt     *time.Time
	LastUsedIP     *string
}

// CreateAdminToken mints a new admin token row plus the RS256 JWT handed
// to the caller. The DB enforces "one active per service_name" with a
// partial unique index (see migrations); a violation surfaces as Conflict.
func (s *Store) CreateAdminToken(ctx context.Context, km *auth.KeyManager, serviceName string, permissions []string, isSuperAdmin bool, expiresAt *time.Time) (token string, row *AdminToken, err error) {
	if isSuperAdmin {
		expiresAt = nil
	} else if expiresAt == nil {
		return "", nil, pierreerr.New(pierreerr.KindInvalidRequest, "expires_at is required for non-super-admin tokens")
	}

	_, prefix, err := cryptoutil.GenerateOpaqueToken("pierre_admin_")
	if err != nil {
		return "", nil, err
	}
	jwtSecret, _, err := cryptoutil.GenerateOpaqueToken("")
	if err != nil {
		return "", nil, err
	}
	jwtSecretHash, err := cryptoutil.HashSecret(jwtSecret)
	if err != nil {
		return "", nil, err
	}

	r := &AdminToken{
		ID:            uuid.New(),
		ServiceName:   serviceName,
		TokenHash:     jwtSecretHash, // JWT-bound; no separate opaque token is issued for admin principals
		TokenPrefix:   prefix,
		JWTSecretHash: jwtSecretHash,
		Permissions:   permissions,
		IsSuperAdmin:  isSuperAdmin,
		IsActive:      true,
		ExpiresAt:     expiresAt,
	}

	const q = `
		INSERT INTO admin_tokens (id, service_name, token_hash, token_prefix, jwt_secret_hash, permissions, is_super_admin, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), $8)
		RETURNING created_at`
	err = s.pool.QueryRow(ctx, q, r.ID, r.ServiceName, r.TokenHash, r.TokenPrefix, r.JWTSecretHash, r.Permissions, r.IsSuperAdmin, r.ExpiresAt).
		Scan(&r.CreatedAt)
	if err != nil {
		return "", nil, translateErr(err, "")
	}

	jwt, err := km.IssueAdminJWT(r.ID.String(), r.ServiceName, r.Permissions, r.IsSuperAdmin, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return jwt, r, nil
}

func (s *Store) GetAdminTokenByID(ctx context.Context, id uuid.UUID) (*AdminToken, error) {
	const q = `SELECT id, service_name, token_hash, token_prefix, jwt_secret_hash, permissions, is_super_admin, is_active, created_at, expires_at, usage_count, last_used_at, last_used_ip
		FROM admin_tokens WHERE id = $1`
	var r AdminToken
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.ServiceName, &r.TokenHash, &r.TokenPrefix, &r.JWTSecretHash, &r.Permissions, &r.IsSuperAdmin,
		&r.IsActive, &r.CreatedAt, &r.ExpiresAt, &r.UsageCount, &r.LastUsedAt, &r.LastUsedIP)
	if err != nil {
		return nil, translateErr(err, "admin token not found")
	}
	return &r, nil
}

func (s *Store) RevokeAdminToken(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `UPDATE admin_tokens SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, "")
	}
	if tag.RowsAffected() == 0 {
		return pierreerr.New(pierreerr.KindNotFound, "admin token not found")
	}
	return nil
}

func (s *Store) RecordAdminTokenUsage(ctx context.Context, id uuid.UUID, ip string) error {
	_, err := s.pool.Exec(ctx, `UPDATE admin_tokens SET usage_count = usage_count + 1, last_used_at = now(), last_used_ip = $2 WHERE id = $1`, id, ip)
	return translateErr(err, "")
}

// ListAdminTokens implements spec §4.9's list(include_inactive), newest-first.
func (s *Store) ListAdminTokens(ctx context.Context, includeInactive bool, limit int) ([]AdminToken, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, service_name, token_hash, token_prefix, jwt_secret_hash, permissions, is_super_admin, is_active, created_at, expires_at, usage_count, last_used_at, last_used_ip
		FROM admin_tokens`
	args := []any{limit}
	if !includeInactive {
		q += ` WHERE is_active = true`
	}
	q += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, translateErr(err, "")
	}
	defer rows.Close()

	var tokens []AdminToken
	for rows.Next() {
		var r AdminToken
		if err := rows.Scan(&r.ID, &r.ServiceName, &r.TokenHash, &r.TokenPrefix, &r.JWTSecretHash, &r.Permissions, &r.IsSuperAdmin,
			&r.IsActive, &r.CreatedAt, &r.ExpiresAt, &r.UsageCount, &r.LastUsedAt, &r.LastUsedIP); err != nil {
			return nil, translateErr(err, "")
		}
		tokens = append(tokens, r)
	}
	return tokens, translateErr(rows.Err(), "")
}

// RotateAdminToken atomically deactivates tokenID and creates a new active
// token with the same service_name/permissions/super-admin flag, per spec
// §4.9's "creates a new active token ... and deactivates the old one
// atomically (storage transaction)".
func (s *Store) RotateAdminToken(ctx context.Context, km *auth.KeyManager, tokenID uuid.UUID, expiresInDays *int) (jwt string, row *AdminToken, err error) {
	old, err := s.GetAdminTokenByID(ctx, tokenID)
	if err != nil {
		return "", nil, err
	}
	if !old.IsActive {
		return "", nil, pierreerr.New(pierreerr.KindConflict, "admin token is already revoked")
	}

	var expiresAt *time.Time
	if old.IsSuperAdmin {
		expiresAt = nil
	} else {
		if expiresInDays == nil || *expiresInDays <= 0 {
			return "", nil, pierreerr.New(pierreerr.KindInvalidRequest, "expires_in_days is required for non-super-admin tokens")
		}
		t := time.Now().AddDate(0, 0, *expiresInDays)
		expiresAt = &t
	}

	_, prefix, err := cryptoutil.GenerateOpaqueToken("pierre_admin_")
	if err != nil {
		return "", nil, err
	}
	jwtSecret, _, err := cryptoutil.GenerateOpaqueToken("")
	if err != nil {
		return "", nil, err
	}
	jwtSecretHash, err := cryptoutil.HashSecret(jwtSecret)
	if err != nil {
		return "", nil, err
	}

	r := &AdminToken{
		ID:            uuid.New(),
		ServiceName:   old.ServiceName,
		TokenHash:     jwtSecretHash,
		TokenPrefix:   prefix,
		JWTSecretHash: jwtSecretHash,
		Permissions:   old.Permissions,
		IsSuperAdmin:  old.IsSuperAdmin,
		IsActive:      true,
		ExpiresAt:     expiresAt,
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE admin_tokens SET is_active = false WHERE id = $1 AND is_active = true`, tokenID)
		if err != nil {
			return translateErr(err, "")
		}
		if tag.RowsAffected() == 0 {
			return pierreerr.New(pierreerr.KindConflict, "admin token was concurrently revoked")
		}
		const q = `
			INSERT INTO admin_tokens (id, service_name, token_hash, token_prefix, jwt_secret_hash, permissions, is_super_admin, is_active, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), $8)
			RETURNING created_at`
		return translateErr(tx.QueryRow(ctx, q, r.ID, r.ServiceName, r.TokenHash, r.TokenPrefix, r.JWTSecretHash, r.Permissions, r.IsSuperAdmin, r.ExpiresAt).
			Scan(&r.CreatedAt), "")
	})
	if err != nil {
		return "", nil, err
	}

	jwt, err = km.IssueAdminJWT(r.ID.String(), r.ServiceName, r.Permissions, r.IsSuperAdmin, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return jwt, r, nil
}

// AdminTokenUsageStats is the §4.9 usage_stats(token_id?, days) aggregate.
type AdminTokenUsageStats struct {
	PrincipalID string
	CallCount   int64
	ErrorCount  int64
	AvgLatencyMs float64
}

// UsageStatsForPrincipal aggregates UsageRecord rows over the trailing
// window, scoped to principalID when non-empty (token_id in spec terms;
// usage rows key on the calling principal's ID, which for an admin token
// principal is its token id string).
func (s *Store) UsageStatsForPrincipal(ctx context.Context, principalID string, days int) (AdminTokenUsageStats, error) {
	if days <= 0 {
		days = 7
	}
	q := `SELECT count(*), count(*) FILTER (WHERE status_code >= 400), coalesce(avg(latency_ms), 0)
		FROM usage_records WHERE timestamp >= now() - ($1 || ' days')::interval`
	args := []any{days}
	if principalID != "" {
		q += ` AND principal_id = $2`
		args = append(args, principalID)
	}

	var stats AdminTokenUsageStats
	stats.PrincipalID = principalID
	err := s.pool.QueryRow(ctx, q, args...).Scan(&stats.CallCount, &stats.ErrorCount, &stats.AvgLatencyMs)
	return stats, translateErr(err, "")
}

// AdminTokenAuthVerifier adapts Store to auth.AdminTokenVerifier. The JWT
// signature is already verified by the caller; this completes the check
// with a token_id lookup for is_active and expires_at. The stored
// jwt_secret_hash is not compared: the issued JWT carries no secret to
// compare it against.
type AdminTokenAuthVerifier struct{ *Store }

func (v AdminTokenAuthVerifier) VerifyAdminToken(ctx context.Context, claims *auth.AdminClaims) (*auth.Principal, error) {
	id, err := uuid.Parse(claims.TokenID)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "malformed admin token id")
	}

	row, err := v.GetAdminTokenByID(ctx, id)
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "admin token has been revoked or does not exist")
	}
	if !row.IsActive {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "admin token has been revoked")
	}
	if row.ExpiresAt != nil && time.Now().After(*row.ExpiresAt) {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "admin token has expired")
	}

	perms := make(map[string]bool, len(row.Permissions))
	for _, p := range row.Permissions {
		perms[p] = true
	}

	return &auth.Principal{
		ID:           row.ID.String(),
		Kind:         auth.PrincipalAdmin,
		Permissions:  perms,
		IsSuperAdmin: row.IsSuperAdmin,
	}, nil
}
