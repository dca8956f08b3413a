package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// PrincipalKind is the closed set of identities that can make an
// authenticated call (spec glossary "Principal").
type PrincipalKind string

const (
	PrincipalUser      PrincipalKind = "User"
	PrincipalApiKey    PrincipalKind = "ApiKey"
	PrincipalA2AClient PrincipalKind = "A2AClient"
	PrincipalAdmin     PrincipalKind = "AdminToken"
)

// Principal describes the authenticated identity making a request.
type Principal struct {
	ID          string // rate-limit / usage-record key
	Kind        PrincipalKind
	UserID      string
	TenantID    string
	Tier        string
	Permissions map[string]bool
	IsSuperAdmin bool
}

// HasPermission reports whether the principal may perform an admin
// action requiring perm. Super-admins implicitly have every permission
// (spec §3 AdminToken invariants).
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	if p.Kind != PrincipalAdmin {
		return false
	}
	if p.IsSuperAdmin {
		return true
	}
	return p.Permissions[perm]
}

// ApiKeyVerifier checks a raw `X-API-Key` header value against the store
// and returns the owning principal. Kept as an interface here so this
// package does not depend on internal/store.
type ApiKeyVerifier interface {
	VerifyApiKey(ctx context.Context, rawKey string) (*Principal, error)
}

// AdminTokenVerifier checks an admin JWT's token_id against the
// admin-token row for liveness, per spec §4.3's dual-check requirement.
type AdminTokenVerifier interface {
	VerifyAdminToken(ctx context.Context, claims *AdminClaims) (*Principal, error)
}

type ctxKey int

const principalCtxKey ctxKey = iota

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// FromContext extracts the Principal set by Resolve/Middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey).(*Principal)
	return p
}

// Resolve implements the principal-resolution order from spec §4.3:
// Authorization: Bearer JWT (user or admin, by kind claim) -> X-API-Key
// header -> none (Unauthenticated).
func Resolve(ctx context.Context, r *http.Request, km *KeyManager, apiKeys ApiKeyVerifier, adminTokens AdminTokenVerifier) (*Principal, error) {
	if tok := bearerToken(r); tok != "" {
		kind, err := PeekKind(tok)
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindInvalidCredential, "malformed bearer token", err)
		}

		switch kind {
		case KindAdmin:
			claims, err := km.ValidateAdminJWTSignature(tok)
			if err != nil {
				return nil, err
			}
			return adminTokens.VerifyAdminToken(ctx, claims)
		default:
			claims, err := km.ValidateUserJWT(tok)
			if err != nil {
				return nil, err
			}
			return &Principal{
				ID:       claims.Subject,
				Kind:     PrincipalUser,
				UserID:   claims.Subject,
				TenantID: claims.TenantID,
				Tier:     claims.Tier,
			}, nil
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return apiKeys.VerifyApiKey(ctx, key)
	}

	return nil, pierreerr.New(pierreerr.KindUnauthenticated, "missing credential")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
