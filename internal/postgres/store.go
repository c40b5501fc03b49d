// Package postgres stores workspace documents in PostgreSQL, one JSONB row
// per (location, workspace). It is the same table the hosted blob API reads
// and writes, so a CLI pointed at the database and a browser pointed at the
// API see the same state.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/moesafa-mgf/genie-haus/internal/logger"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

const slowQuery = 100 * time.Millisecond

// Storage implements types.RemoteStore, types.StaffDirectory and
// types.AccessAdmin on a pgx pool.
type Storage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Storage) { s.logger = logger.OrNop(l) }
}

// New opens a pool and pings the server. It does not run migrations.
func New(ctx context.Context, connString string, opts ...Option) (*Storage, error) {
	s := &Storage{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s.pool = pool
	s.logger.Info("postgres connected")
	return s, nil
}

// Close releases every pooled connection.
func (s *Storage) Close() {
	s.pool.Close()
	s.logger.Info("postgres connections closed")
}

// HealthCheck pings the server.
func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) observe(op string, start time.Time) {
	if d := time.Since(start); d > slowQuery {
		s.logger.Warn("slow query", zap.String("op", op), zap.Duration("ms", d))
	}
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
// none exists.
func (s *Storage) LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (types.Envelope, error) {
	if err := validate(tenantID, workspaceID); err != nil {
		return types.Envelope{}, err
	}
	start := time.Now()
	defer s.observe("load_state", start)

	role, err := s.role(ctx, tenantID, workspaceID, actorEmail)
	if err != nil {
		return types.Envelope{}, err
	}
	env := types.Envelope{Role: role}

	var (
		doc     []byte
		updated time.Time
	)
	err = s.pool.QueryRow(ctx,
		`SELECT state_json, updated_at
		   FROM workspace_states
		  WHERE location_id = $1 AND workspace_id = $2
		  LIMIT 1`,
		tenantID, workspaceID,
	).Scan(&doc, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return env, nil
	}
	if err != nil {
		s.logger.Error("load state failed", zap.String("workspace", workspaceID), zap.Error(err))
		return types.Envelope{}, fmt.Errorf("loading state: %w", err)
	}
	return decodeEnvelope(env, doc, updated)
}

// SaveState upserts the document and returns the stored copy.
func (s *Storage) SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *types.State) (types.Envelope, error) {
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
	start := time.Now()
	defer s.observe("save_state", start)

	var (
		stored  []byte
		updated time.Time
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO workspace_states (location_id, workspace_id, state_json, updated_at)
		 VALUES ($1, $2, $3::jsonb, now())
		 ON CONFLICT (location_id, workspace_id)
		 DO UPDATE SET
		   state_json = EXCLUDED.state_json,
		   updated_at = now()
		 RETURNING state_json, updated_at`,
		tenantID, workspaceID, string(doc),
	).Scan(&stored, &updated)
	if err != nil {
		s.logger.Error("save state failed", zap.String("workspace", workspaceID), zap.Error(err))
		return types.Envelope{}, fmt.Errorf("saving state: %w", err)
	}

	role, err := s.role(ctx, tenantID, workspaceID, actorEmail)
	if err != nil {
		return types.Envelope{}, err
	}
	return decodeEnvelope(types.Envelope{Role: role}, stored, updated)
}

func decodeEnvelope(env types.Envelope, doc []byte, updated time.Time) (types.Envelope, error) {
	var st types.State
	if err := json.Unmarshal(doc, &st); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}
	at := updated.UTC()
	env.State = &st
	env.UpdatedAt = &at
	return env, nil
}

func (s *Storage) role(ctx context.Context, tenantID, workspaceID, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM workspace_roles
		  WHERE location_id = $1 AND workspace_id = $2 AND user_email = $3
		  LIMIT 1`,
		tenantID, workspaceID, strings.ToLower(email),
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading role: %w", err)
	}
	return role, nil
}

// SetRole records the advisory role of a user in a workspace.
func (s *Storage) SetRole(ctx context.Context, tenantID, workspaceID, email, role string) error {
	if err := validate(tenantID, workspaceID); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return types.ErrInvalidName
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workspace_roles (location_id, workspace_id, user_email, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (location_id, workspace_id, user_email)
		 DO UPDATE SET role = EXCLUDED.role`,
		tenantID, workspaceID, email, role,
	)
	if err != nil {
		return fmt.Errorf("saving role: %w", err)
	}
	return nil
}

// AddStaff adds or replaces a staff member of a tenant, matched by email.
func (s *Storage) AddStaff(ctx context.Context, tenantID string, m types.StaffMember) error {
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO staff (location_id, staff_id, email, name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (location_id, email)
		 DO UPDATE SET staff_id = EXCLUDED.staff_id, name = EXCLUDED.name`,
		tenantID, m.ID, strings.ToLower(m.Email), m.Name,
	)
	if err != nil {
		return fmt.Errorf("saving staff: %w", err)
	}
	return nil
}

// ListStaff returns the staff of a tenant in insertion order.
func (s *Storage) ListStaff(ctx context.Context, tenantID string) ([]types.StaffMember, error) {
	if tenantID == "" {
		return nil, types.ErrInvalidTenant
	}
	start := time.Now()
	defer s.observe("list_staff", start)

	rows, err := s.pool.Query(ctx,
		`SELECT staff_id, email, name FROM staff WHERE location_id = $1 ORDER BY seq`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	defer rows.Close()

	staff := []types.StaffMember{}
	for rows.Next() {
		var m types.StaffMember
		if err := rows.Scan(&m.ID, &m.Email, &m.Name); err != nil {
			return nil, fmt.Errorf("scanning staff: %w", err)
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}
