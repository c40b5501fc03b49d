package sqlite

import "encoding/json"

// JSONL record formats. Field names match the SQLite columns so the loader
// can map them directly.

// workspaceJSON is one line of workspaces.jsonl. StateJSON is embedded as an
// object, not a string, so the files stay readable in diffs.
type workspaceJSON struct {
	LocationID  string          `json:"location_id"`
	WorkspaceID string          `json:"workspace_id"`
	StateJSON   json.RawMessage `json:"state_json"`
	UpdatedAt   string          `json:"updated_at"`
}

// roleJSON is one line of roles.jsonl.
type roleJSON struct {
	LocationID  string `json:"location_id"`
	WorkspaceID string `json:"workspace_id"`
	UserEmail   string `json:"user_email"`
	Role        string `json:"role"`
}

// staffJSON is one line of staff.jsonl.
type staffJSON struct {
	LocationID string `json:"location_id"`
	StaffID    string `json:"staff_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Ordinal    int    `json:"ordinal"`
}
