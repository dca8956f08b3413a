// Package admin implements the administrative control plane (C9):
// admin-token lifecycle, tool-selection overrides, and user approval.
// Route shapes are grounded on original_source/src/routes/tool_selection.rs's
// ToolSelectionResponse<T> envelope, generalized to the token and user
// routes the distilled spec also assigns to this component.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// response mirrors ToolSelectionResponse<T>: {success, message, data}.
type response struct {
	Success bool `json:"success"`
	Message string `json:"message"`
	Data    any  `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response{Success: true, Message: message, Data: data})
}

func writeDomainError(w http.ResponseWriter, err error) {
	kind := pierreerr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(response{Success: false, Message: err.Error()})
}
