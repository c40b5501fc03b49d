// Package memstore is an in-memory remote store. It keeps each workspace
// document as encoded JSON so callers observe the same copy semantics as a
// networked store.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

type key struct {
	tenant    string
	workspace string
}

type stored struct {
	doc       []byte
	updatedAt time.Time
}

// Store implements types.RemoteStore and types.StaffDirectory.
type Store struct {
	mu     sync.RWMutex
	states map[key]stored
	roles  map[key]map[string]string
	staff  map[string][]types.StaffMember
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		states: make(map[key]stored),
		roles:  make(map[key]map[string]string),
		staff:  make(map[string][]types.StaffMember),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
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

// LoadState returns the stored document, or a nil State when none exists.
func (s *Store) LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (types.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return types.Envelope{}, err
	}
	if err := validate(tenantID, workspaceID); err != nil {
		return types.Envelope{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := key{tenantID, workspaceID}
	env := types.Envelope{Role: s.roleLocked(k, actorEmail)}
	row, ok := s.states[k]
	if !ok {
		return env, nil
	}
	var st types.State
	if err := json.Unmarshal(row.doc, &st); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}
	at := row.updatedAt
	env.State = &st
	env.UpdatedAt = &at
	return env, nil
}

// SaveState overwrites the stored document.
func (s *Store) SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *types.State) (types.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return types.Envelope{}, err
	}
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
	var echo types.State
	if err := json.Unmarshal(doc, &echo); err != nil {
		return types.Envelope{}, fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{tenantID, workspaceID}
	at := s.now().UTC()
	s.states[k] = stored{doc: doc, updatedAt: at}
	return types.Envelope{State: &echo, Role: s.roleLocked(k, actorEmail), UpdatedAt: &at}, nil
}

// SetRole records the advisory role of a user in a workspace.
func (s *Store) SetRole(ctx context.Context, tenantID, workspaceID, email, role string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(tenantID, workspaceID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{tenantID, workspaceID}
	if s.roles[k] == nil {
		s.roles[k] = make(map[string]string)
	}
	s.roles[k][strings.ToLower(email)] = role
	return nil
}

func (s *Store) roleLocked(k key, email string) string {
	if email == "" {
		return ""
	}
	return s.roles[k][strings.ToLower(email)]
}

// AddStaff adds or replaces a staff member of a tenant, matched by email.
func (s *Store) AddStaff(ctx context.Context, tenantID string, m types.StaffMember) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tenantID == "" {
		return types.ErrInvalidTenant
	}
	m = types.NewStaffMember(m.ID, m.Email, m.Name, "", "")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.staff[tenantID]
	for i := range list {
		if strings.EqualFold(list[i].Email, m.Email) {
			list[i] = m
			return nil
		}
	}
	s.staff[tenantID] = append(list, m)
	return nil
}

// ListStaff returns the staff of a tenant in insertion order.
func (s *Store) ListStaff(ctx context.Context, tenantID string) ([]types.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tenantID == "" {
		return nil, types.ErrInvalidTenant
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.StaffMember{}, s.staff[tenantID]...), nil
}
