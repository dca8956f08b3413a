package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Middleware resolves the caller's Principal using Resolve and injects it
// into the request context, rejecting with the mapped HTTP status when
// resolution fails. Grounded on the teacher's JWT middleware shape
// (extract bearer, validate, inject context) generalized to the full
// user/admin/api-key resolution order.
func Middleware(km *KeyManager, apiKeys ApiKeyVerifier, adminTokens AdminTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := Resolve(r.Context(), r, km, apiKeys, adminTokens)
			if err != nil {
				kind := pierreerr.KindOf(err)
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("principal resolution failed")
				http.Error(w, string(kind), kind.HTTPStatus())
				return
			}
			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin wraps a handler so only admin principals holding perm may
// call it (spec §4.9: "All mutations require ManageConfiguration; reads
// require ViewConfiguration").
func RequireAdmin(perm string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := FromContext(r.Context())
		if p == nil || p.Kind != PrincipalAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if !p.HasPermission(perm) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
