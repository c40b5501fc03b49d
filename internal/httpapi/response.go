package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// StateRequest is the POST /api/workspace-state body.
type StateRequest struct {
	LocationID  string       `json:"locationId"`
	WorkspaceID string       `json:"workspaceId"`
	UserEmail   string       `json:"userEmail,omitempty"`
	State       *types.State `json:"state"`
}

// StateResponse is the success body of both workspace-state methods. State
// and UpdatedAt are null when the workspace has never been saved.
type StateResponse struct {
	OK        bool         `json:"ok"`
	State     *types.State `json:"state"`
	Role      string       `json:"role,omitempty"`
	UpdatedAt *time.Time   `json:"updatedAt"`
}

// StaffResponse is the success body of GET /api/staff.
type StaffResponse struct {
	OK         bool                `json:"ok"`
	LocationID string              `json:"locationId"`
	Count      int                 `json:"count"`
	Staff      []types.StaffMember `json:"staff"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func responseWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func responseWithError(w http.ResponseWriter, code int, message, detail string) {
	responseWithJSON(w, code, ErrorResponse{OK: false, Error: message, Detail: detail})
}

func envelopeResponse(env types.Envelope) StateResponse {
	return StateResponse{OK: true, State: env.State, Role: env.Role, UpdatedAt: env.UpdatedAt}
}
