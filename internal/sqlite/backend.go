// Package sqlite implements a local workspace store. JSONL files under the
// data directory are the source of truth; SQLite is rebuilt from them on
// Attach and serves every read. Each write updates SQLite and then rewrites
// the affected JSONL file atomically.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// DBFile is the SQLite cache file created under DataDir.
const DBFile = "genie.db"

// Backend implements types.RemoteStore, types.StaffDirectory and
// types.AccessAdmin.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	now      func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach creates DataDir if needed, rebuilds the SQLite cache and loads the
// JSONL files into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, DBFile)
	// The cache is disposable; the JSONL files are authoritative.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// One connection keeps writes serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the SQLite connection. After Detach every operation returns
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

func validate(tenantID, workspaceID string) error {
	if tenantID == "" {
		return types.ErrInvalidTenant
	}
	if workspaceID == "" {
		return types.ErrInvalidWorkspace
	}
	return nil
}

// LoadState returns the stored document, or an Envelope with a nil State when
// the workspace has never been saved.
func (b *Backend) LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (types.Envelope, error) {
	if err := validate(tenantID, workspaceID); err != nil {
		return types.Envelope{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Envelope{}, types.ErrStoreDetached
	}

	role, err := b.role(ctx, tenantID, workspaceID, actorEmail)
	if err != nil {
		return types.Envelope{}, err
	}
	env := types.Envelope{Role: role}

	var doc, updated string
	err = b.db.QueryRowContext(ctx,
		"SELECT state_json, updated_at FROM workspace_states WHERE location_id = ? AND workspace_id = ?",
		tenantID, workspaceID,
	).Scan(&doc, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return env, nil
	}
	if err != nil {
		return types.Envelope{}, fmt.Errorf("querying workspace state: %w", err)
	}
	return decodeEnvelope(env, doc, updated)
}

// SaveState overwrites the stored document and persists workspaces.jsonl.
func (b *Backend) SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *types.State) (types.Envelope, error) {
	if err := validate(tenantID, workspaceID); err != nil {
		return types.Envelope{}, err
	}
	if state == nil {
		return types.Envelope{}, types.ErrMalformedState
	}
	doc, err := json.Marshal(state)
	if err != nil {
		return types.Envelope{}, fmt.Errorf("encoding state: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.Envelope{}, types.ErrStoreDetached
	}

	var stored, updated string
	err = b.db.QueryRowContext(ctx,
		`INSERT INTO workspace_states (location_id, workspace_id, state_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (location_id, workspace_id)
		 DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
		 RETURNING state_json, updated_at`,
		tenantID, workspaceID, string(doc), b.now().UTC().Format(time.RFC3339Nano),
	).Scan(&stored, &updated)
	if err != nil {
		return types.Envelope{}, fmt.Errorf("saving workspace state: %w", err)
	}
	if err := b.persistWorkspaces(ctx); err != nil {
		return types.Envelope{}, err
	}

	role, err := b.role(ctx, tenantID, workspaceID, actorEmail)
	if err != nil {
		return types.Envelope{}, err
	}
	return decodeEnvelope(types.Envelope{Role: role}, stored, updated)
}

func decodeEnvelope(env types.Envelope, doc, updated string) (types.Envelope, error) {
	var st types.State
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}
	env.State = &st
	if at, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		env.UpdatedAt = &at
	}
	return env, nil
}

func (b *Backend) role(ctx context.Context, tenantID, workspaceID, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	var role string
	err := b.db.QueryRowContext(ctx,
		"SELECT role FROM workspace_roles WHERE location_id = ? AND workspace_id = ? AND user_email = ?",
		tenantID, workspaceID, strings.ToLower(email),
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying role: %w", err)
	}
	return role, nil
}

// SetRole records the advisory role of a user in a workspace.
func (b *Backend) SetRole(ctx context.Context, tenantID, workspaceID, email, role string) error {
	if err := validate(tenantID, workspaceID); err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		return types.ErrInvalidName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO workspace_roles (location_id, workspace_id, user_email, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT (location_id, workspace_id, user_email) DO UPDATE SET role = excluded.role`,
		tenantID, workspaceID, strings.ToLower(strings.TrimSpace(email)), role,
	)
	if err != nil {
		return fmt.Errorf("saving role: %w", err)
	}
	return b.persistRoles(ctx)
}

// AddStaff adds or replaces a staff member of a tenant, matched by email.
// A member without an id gets a generated one.
func (b *Backend) AddStaff(ctx context.Context, tenantID string, m types.StaffMember) error {
	if tenantID == "" {
		return types.ErrInvalidTenant
	}
	if strings.TrimSpace(m.Email) == "" {
		return types.ErrInvalidName
	}
	m = types.NewStaffMember(m.ID, strings.TrimSpace(m.Email), m.Name, "", "")
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	email := strings.ToLower(m.Email)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ordinal int
	err = tx.QueryRowContext(ctx,
		"SELECT ordinal FROM staff WHERE location_id = ? AND email = ?", tenantID, email,
	).Scan(&ordinal)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(ordinal) + 1, 0) FROM staff WHERE location_id = ?", tenantID,
		).Scan(&ordinal); err != nil {
			return fmt.Errorf("allocating staff ordinal: %w", err)
		}
	case err != nil:
		return fmt.Errorf("querying staff: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO staff (location_id, staff_id, email, name, ordinal) VALUES (?, ?, ?, ?, ?)",
		tenantID, m.ID, email, m.Name, ordinal,
	); err != nil {
		return fmt.Errorf("saving staff: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return b.persistStaff(ctx)
}

// ListStaff returns the staff of a tenant in insertion order.
func (b *Backend) ListStaff(ctx context.Context, tenantID string) ([]types.StaffMember, error) {
	if tenantID == "" {
		return nil, types.ErrInvalidTenant
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT staff_id, email, name FROM staff WHERE location_id = ? ORDER BY ordinal", tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying staff: %w", err)
	}
	defer rows.Close()

	staff := []types.StaffMember{}
	for rows.Next() {
		var m types.StaffMember
		if err := rows.Scan(&m.ID, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}

// persistWorkspaces rewrites workspaces.jsonl from SQLite.
// The caller must hold b.mu.
func (b *Backend) persistWorkspaces(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		"SELECT location_id, workspace_id, state_json, updated_at FROM workspace_states ORDER BY location_id, workspace_id")
	if err != nil {
		return fmt.Errorf("querying workspaces for JSONL: %w", err)
	}
	defer rows.Close()

	var out []workspaceJSON
	for rows.Next() {
		var w workspaceJSON
		var doc string
		if err := rows.Scan(&w.LocationID, &w.WorkspaceID, &doc, &w.UpdatedAt); err != nil {
			return err
		}
		w.StateJSON = json.RawMessage(doc)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return persistJSONL(b.config.DataDir, workspacesJSONL, out)
}

// persistRoles rewrites roles.jsonl from SQLite.
// The caller must hold b.mu.
func (b *Backend) persistRoles(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		"SELECT location_id, workspace_id, user_email, role FROM workspace_roles ORDER BY location_id, workspace_id, user_email")
	if err != nil {
		return fmt.Errorf("querying roles for JSONL: %w", err)
	}
	defer rows.Close()

	var out []roleJSON
	for rows.Next() {
		var r roleJSON
		if err := rows.Scan(&r.LocationID, &r.WorkspaceID, &r.UserEmail, &r.Role); err != nil {
			return err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return persistJSONL(b.config.DataDir, rolesJSONL, out)
}

// persistStaff rewrites staff.jsonl from SQLite.
// The caller must hold b.mu.
func (b *Backend) persistStaff(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		"SELECT location_id, staff_id, email, name, ordinal FROM staff ORDER BY location_id, ordinal")
	if err != nil {
		return fmt.Errorf("querying staff for JSONL: %w", err)
	}
	defer rows.Close()

	var out []staffJSON
	for rows.Next() {
		var s staffJSON
		if err := rows.Scan(&s.LocationID, &s.StaffID, &s.Email, &s.Name, &s.Ordinal); err != nil {
			return err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return persistJSONL(b.config.DataDir, staffJSONL, out)
}

func persistJSONL[T any](dataDir, file string, rows []T) error {
	records, err := marshalAll(rows)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", file, err)
	}
	if err := writeJSONL(filepath.Join(dataDir, file), records); err != nil {
		return fmt.Errorf("persist %s: %w", file, err)
	}
	return nil
}
