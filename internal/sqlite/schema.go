package sqlite

// Schema DDL. SQLite is a query cache over the JSONL files; it is rebuilt on
// every Attach.
const (
	createWorkspaceStates = `CREATE TABLE workspace_states (
    location_id TEXT NOT NULL,
    workspace_id TEXT NOT NULL,
    state_json TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (location_id, workspace_id)
);`

	createWorkspaceRoles = `CREATE TABLE workspace_roles (
    location_id TEXT NOT NULL,
    workspace_id TEXT NOT NULL,
    user_email TEXT NOT NULL,
    role TEXT NOT NULL,
    PRIMARY KEY (location_id, workspace_id, user_email)
);`

	createStaff = `CREATE TABLE staff (
    location_id TEXT NOT NULL,
    staff_id TEXT NOT NULL,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (location_id, email)
);`
)

const (
	idxStaffLocation = `CREATE INDEX idx_staff_location ON staff(location_id, ordinal);`
)

var schemaDDL = []string{
	createWorkspaceStates,
	createWorkspaceRoles,
	createStaff,
}

var indexDDL = []string{
	idxStaffLocation,
}
