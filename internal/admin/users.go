package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pagination"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/store"
)

// UsersDeps collects the user-approval workflow collaborators (spec §4.9
// "Listing pending users, approving ... , suspending ..., Audit row on
// every transition").
type UsersDeps struct {
	Store *store.Store
}

func mountUserRoutes(r chi.Router, deps UsersDeps) {
	r.Get("/admin/users", auth.RequireAdmin("ViewConfiguration", handleListUsers(deps)))
	r.Post("/admin/users/{userID}/approve", auth.RequireAdmin("ManageConfiguration", handleApproveUser(deps)))
	r.Post("/admin/users/{userID}/suspend", auth.RequireAdmin("ManageConfiguration", handleSuspendUser(deps)))
}

func handleListUsers(deps UsersDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			status = "Pending"
		}
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil {
				limit = parsed
			}
		}

		var cursor *pagination.Cursor
		if raw := r.URL.Query().Get("cursor"); raw != "" {
			c, err := pagination.Decode(raw, pagination.SortNewest)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			cursor = &c
		}

		page, err := deps.Store.GetUsersByStatusCursor(r.Context(), status, pagination.Params{Cursor: cursor, Limit: limit})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "retrieved "+status+" users", page)
	}
}

// handleApproveUser transitions Pending -> Active, recording approved_by
// and approved_at, per spec §4.9.
func handleApproveUser(deps UsersDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid user id"))
			return
		}
		principal := auth.FromContext(r.Context())
		actorID, err := uuid.Parse(principal.ID)
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInternal, "admin principal id is not a uuid"))
			return
		}

		if err := deps.Store.ApproveUser(r.Context(), userID, actorID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "user approved", map[string]any{"user_id": userID.String(), "approved_by": actorID.String()})
	}
}

// handleSuspendUser transitions Active -> Suspended via the audited
// UpdateUserStatus path.
func handleSuspendUser(deps UsersDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid user id"))
			return
		}
		principal := auth.FromContext(r.Context())
		actorID, err := uuid.Parse(principal.ID)
		if err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInternal, "admin principal id is not a uuid"))
			return
		}

		if err := deps.Store.UpdateUserStatus(r.Context(), userID, "Suspended", actorID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "user suspended", map[string]any{"user_id": userID.String()})
	}
}
