package types

import (
	"context"
	"strings"
	"time"
)

// State is the persisted workspace document. The whole document is written
// on every push; there is no partial update.
//
// A nil Tasks, Activity or Grids slice means the key was absent from the
// document, which pull distinguishes from an empty list.
type State struct {
	Tasks         []Record                     `json:"tasks"`
	Columns       []Column                     `json:"columns"`
	Filters       map[string]FilterSet         `json:"filters"`
	Activity      []ActivityEntry              `json:"activity"`
	Grids         []Grid                       `json:"grids"`
	CurrentGridID string                       `json:"currentGridId,omitempty"`
	UserColors    map[string]map[string]string `json:"userColors,omitempty"`
}

// Envelope is what the remote store returns for a load or save. State is nil
// when the workspace has never been saved. Role is the advisory role of the
// requesting actor; it gates UI only and is never enforced here.
type Envelope struct {
	State     *State     `json:"state"`
	Role      string     `json:"role,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// RemoteStore is the blob store keyed by (tenant, workspace) that the sync
// controller reconciles with.
type RemoteStore interface {
	// LoadState returns the stored document, or an Envelope with a nil State
	// when nothing was saved yet.
	LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (Envelope, error)

	// SaveState overwrites the stored document and returns what was stored,
	// including any server-side normalization.
	SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *State) (Envelope, error)
}

// StaffDirectory lists the CRM users of a tenant.
type StaffDirectory interface {
	ListStaff(ctx context.Context, tenantID string) ([]StaffMember, error)
}

// AccessAdmin maintains the role and staff tables behind a store. The
// engine never calls it; it exists for operators and tests.
type AccessAdmin interface {
	SetRole(ctx context.Context, tenantID, workspaceID, email, role string) error
	AddStaff(ctx context.Context, tenantID string, m StaffMember) error
}

// LocalStore is a store with an explicit lifecycle. Operations on a detached
// store return ErrStoreDetached.
type LocalStore interface {
	RemoteStore
	StaffDirectory
	AccessAdmin
	Attach(config Config) error
	Detach() error
}

// NewStaffMember builds a directory entry, falling back from the display
// name to "first last", then the email, then "Unknown user".
func NewStaffMember(id, email, name, first, last string) StaffMember {
	display := strings.TrimSpace(name)
	if display == "" {
		display = strings.TrimSpace(first + " " + last)
	}
	if display == "" {
		display = email
	}
	if display == "" {
		display = "Unknown user"
	}
	return StaffMember{ID: id, Email: email, Name: display}
}
