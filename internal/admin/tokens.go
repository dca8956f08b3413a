package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// TokensDeps collects the admin-token lifecycle collaborators (spec §4.9).
type TokensDeps struct {
	Store *store.Store
	Keys  *auth.KeyManager
}

func mountTokenRoutes(r chi.Router, deps TokensDeps) {
	r.Post("/admin/tokens", auth.RequireAdmin("ManageConfiguration", handleCreateToken(deps)))
	r.Get("/admin/tokens", auth.RequireAdmin("ViewConfiguration", handleListTokens(deps)))
	r.Post("/admin/tokens/{tokenID}/revoke", auth.RequireAdmin("ManageConfiguration", handleRevokeToken(deps)))
	r.Post("/admin/tokens/{tokenID}/rotate", auth.RequireAdmin("ManageConfiguration", handleRotateToken(deps)))
	r.Get("/admin/tokens/usage", auth.RequireAdmin("ViewConfiguration", handleUsageStats(deps)))
}

type createTokenRequest struct {
	ServiceName    string   `json:"service_name"`
	Description    string   `json:"description"`
	Permissions    []string `json:"permissions"`
	IsSuperAdmin   bool     `json:"is_super_admin"`
	ExpiresInDays  *int     `json:"expires_in_days"`
}

// handleCreateToken implements spec §4.9's create(...): "Super-admin sets
// expires_at = null; non-super with expires_in_days = 0 is invalid. On
// creation, returns the JWT exactly once; only the hash is stored."
// Description has no persisted column in the admin_tokens schema and is
// accepted for API-contract parity only.
func handleCreateToken(deps TokensDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid request body"))
			return
		}
		if req.ServiceName == "" {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "service_name is required"))
			return
		}
		if !req.IsSuperAdmin && req.ExpiresInDays != nil && *req.ExpiresInDays == 0 {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "expires_in_days = 0 is invalid for a non-super-admin token"))
			return
		}

		var expiresAt *time.Time
		if !req.IsSuperAdmin {
			if req.ExpiresInDays == nil || *req.ExpiresInDays <= 0 {
				writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "expires_in_days is required for non-super-admin tokens"))
				return
			}
			t := time.Now().AddDate(0, 0, *req.ExpiresInDays)
			expiresAt = &t
		}

		jwt, row, err := deps.Store.CreateAdminToken(r.Context(), deps.Keys, req.ServiceName, req.Permissions, req.IsSuperAdmin, expiresAt)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeSuccess(w, "admin token created for "+req.ServiceName, map[string]any{
			"token_id": row.ID.String(),
			"token":    jwt,
			"service_name": row.ServiceName,
			"permissions":  row.Permissions,
			"is_super_admin": row.IsSuperAdmin,
			"expires_at":     row.ExpiresAt,
		})
	}
}

func handleListTokens(deps TokensDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		tokens, err := deps.Store.ListAdminTokens(r.Context(), includeInactive, 100)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "retrieved admin tokens", map[string]any{"tokens": tokens, "count": len(tokens)})
	}
}

func handleRevokeToken(deps TokensDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "tokenID"))
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid token id"))
			return
		}
		if err := deps.Store.RevokeAdminToken(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "admin token revoked", map[string]any{"token_id": id.String()})
	}
}

type rotateTokenRequest struct {
	ExpiresInDays *int `json:"expires_in_days"`
}

func handleRotateToken(deps TokensDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "tokenID"))
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid token id"))
			return
		}
		var req rotateTokenRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid request body"))
				return
			}
		}

		jwt, row, err := deps.Store.RotateAdminToken(r.Context(), deps.Keys, id, req.ExpiresInDays)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "admin token rotated", map[string]any{
			"token_id": row.ID.String(),
			"token":    jwt,
			"service_name": row.ServiceName,
			"expires_at":   row.ExpiresAt,
		})
	}
}

func handleUsageStats(deps TokensDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenID := r.URL.Query().Get("token_id")
		days := 7
		if d := r.URL.Query().Get("days"); d != "" {
			if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
				days = parsed
			}
		}
		stats, err := deps.Store.UsageStatsForPrincipal(r.Context(), tokenID, days)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "retrieved usage stats", stats)
	}
}
