package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Kind distinguishes user tokens from admin tokens, per spec §4.3.
type Kind string

const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// UserClaims are the claims carried by a user JWT (spec §4.3).
type UserClaims struct {
	jwt.RegisteredClaims
	Kind     Kind   `json:"kind"`
	Tier     string `json:"tier"`
	TenantID string `json:"tenant_id,omitempty"`
}

// AdminClaims are the claims carried by an admin-token JWT (spec §4.3).
type AdminClaims struct {
	jwt.RegisteredClaims
	Kind          Kind     `json:"kind"`
	TokenID       string   `json:"token_id"`
	ServiceName   string   `json:"service_name"`
	Permissions   []string `json:"permissions"`
	IsSuperAdmin  bool     `json:"is_super_admin"`
}

// DefaultUserTokenTTL is the deployment default for user JWT lifetime.
const DefaultUserTokenTTL = 24 * time.Hour

// IssueUserJWT mints an RS256 JWT for a human user.
func (km *KeyManager) IssueUserJWT(userID, tier, tenantID string, ttl time.Duration) (string, error) {
	key, err := km.current()
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultUserTokenTTL
	}

	now := time.Now()
	claims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind:     KindUser,
		Tier:     tier,
		TenantID: tenantID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = key.kid
	return token.SignedString(key.private)
}

// IssueAdminJWT mints an RS256 JWT for an admin-token principal. The raw
// JWT is returned exactly once to the caller (spec §4.9): only the
// token's hash is ever stored (see internal/store admin-token repository).
func (km *KeyManager) IssueAdminJWT(tokenID, serviceName string, permissions []string, isSuperAdmin bool, expiresAt *time.Time) (string, error) {
	key, err := km.current()
	if err != nil {
		return "", err
	}

	now := time.Now()
	reg := jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(now),
		ID:       uuid.NewString(),
		Subject:  tokenID,
	}
	if expiresAt != nil {
		reg.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	claims := AdminClaims{
		RegisteredClaims: reg,
		Kind:              KindAdmin,
		TokenID:           tokenID,
		ServiceName:       serviceName,
		Permissions:       permissions,
		IsSuperAdmin:      isSuperAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = key.kid
	return token.SignedString(key.private)
}

// keyfunc resolves the verification key for a token by its header kid,
// looking it up (possibly retired, still within retention) in km.
func (km *KeyManager) keyfunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("missing kid in token header")
	}
	k, ok := km.byKid(kid)
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return k.public, nil
}

// ValidateUserJWT parses and validates a user-kind JWT.
func (km *KeyManager) ValidateUserJWT(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, km.keyfunc)
	if err != nil || !token.Valid {
		return nil, pierreerr.Wrap(pierreerr.KindInvalidCredential, "invalid user token", err)
	}
	if claims.Kind != KindUser {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "token is not a user token")
	}
	return claims, nil
}

// ValidateAdminJWTSignature parses and validates only the JWT signature
// and expiry of an admin-kind token. Callers MUST additionally verify the
// token_id against the admin-token store (is_active, expiry) per
// spec §4.3 — signature validity alone is not sufficient for admin
// tokens, since revoking the row must invalidate outstanding JWTs before
// expiry.
func (km *KeyManager) ValidateAdminJWTSignature(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, km.keyfunc)
	if err != nil || !token.Valid {
		return nil, pierreerr.Wrap(pierreerr.KindInvalidCredential, "invalid admin token", err)
	}
	if claims.Kind != KindAdmin {
		return nil, pierreerr.New(pierreerr.KindInvalidCredential, "token is not an admin token")
	}
	return claims, nil
}

// PeekKind inspects a JWT's kind claim without verifying its signature,
// used only to route to the correct validator before the real check.
func PeekKind(tokenString string) (Kind, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("auth: parse token: %w", err)
	}
	kind, _ := claims["kind"].(string)
	return Kind(kind), nil
}
