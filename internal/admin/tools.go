package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
)

// ToolsDeps collects the C6 collaborators the tool-selection admin routes
// need. Grounded route-for-route on
// original_source/src/routes/tool_selection.rs's ToolSelectionRoutes.
type ToolsDeps struct {
	Catalog  *toolcatalog.Catalog
	Selector *toolcatalog.Selector
}

func mountToolRoutes(r chi.Router, deps ToolsDeps) {
	r.Get("/admin/tools/catalog", auth.RequireAdmin("ViewConfiguration", handleGetCatalog(deps)))
	r.Get("/admin/tools/catalog/{toolName}", auth.RequireAdmin("ViewConfiguration", handleGetCatalogEntry(deps)))
	r.Get("/admin/tools/tenant/{tenantID}", auth.RequireAdmin("ViewConfiguration", handleGetTenantTools(deps)))
	r.Post("/admin/tools/tenant/{tenantID}/override", auth.RequireAdmin("ManageConfiguration", handleSetOverride(deps)))
	r.Delete("/admin/tools/tenant/{tenantID}/override/{toolName}", auth.RequireAdmin("ManageConfiguration", handleRemoveOverride(deps)))
	r.Get("/admin/tools/tenant/{tenantID}/summary", auth.RequireAdmin("ViewConfiguration", handleGetSummary(deps)))
	r.Get("/admin/tools/global-disabled", auth.RequireAdmin("ViewConfiguration", handleGetGlobalDisabled(deps)))
}

func handleGetCatalog(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Catalog.All()
		writeSuccess(w, "retrieved catalog", map[string]any{"tools": entries, "count": len(entries)})
	}
}

func handleGetCatalogEntry(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "toolName")
		entry, ok := deps.Catalog.Lookup(name)
		if !ok {
			writeDomainError(w, pierreerr.New(pierreerr.KindNotFound, "tool '"+name+"' not found"))
			return
		}
		writeSuccess(w, "retrieved tool '"+name+"'", entry)
	}
}

func handleGetTenantTools(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		tools, err := deps.Selector.GetEffectiveTools(r.Context(), tenantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "retrieved effective tools for tenant", tools)
	}
}

type setOverrideRequest struct {
	ToolName  string `json:"tool_name"`
	IsEnabled bool   `json:"is_enabled"`
	Reason    string `json:"reason"`
}

func handleSetOverride(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		principal := auth.FromContext(r.Context())

		var req setOverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDomainError(w, pierreerr.New(pierreerr.KindInvalidRequest, "invalid request body"))
			return
		}

		if err := deps.Selector.SetOverride(r.Context(), tenantID, req.ToolName, req.IsEnabled, principal.ID, req.Reason); err != nil {
			writeDomainError(w, err)
			return
		}

		action := "disabled"
		if req.IsEnabled {
			action = "enabled"
		}
		writeSuccess(w, "tool '"+req.ToolName+"' "+action+" for tenant "+tenantID, map[string]any{
			"tool_name": req.ToolName, "is_enabled": req.IsEnabled, "tenant_id": tenantID,
		})
	}
}

func handleRemoveOverride(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		toolName := chi.URLParam(r, "toolName")

		if err := deps.Selector.RemoveOverride(r.Context(), tenantID, toolName); err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "override removed for tool '"+toolName+"' on tenant "+tenantID, nil)
	}
}

func handleGetSummary(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")
		summary, err := deps.Selector.GetAvailabilitySummary(r.Context(), tenantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeSuccess(w, "retrieved availability summary", summary)
	}
}

func handleGetGlobalDisabled(deps ToolsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		disabled := deps.Selector.GlobalDisabled()
		msg := "no tools are globally disabled"
		if len(disabled) > 0 {
			msg = "tools are globally disabled via PIERRE_DISABLED_TOOLS"
		}
		writeSuccess(w, msg, map[string]any{"disabled_tools": disabled, "count": len(disabled)})
	}
}
