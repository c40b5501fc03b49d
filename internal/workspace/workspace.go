// Package workspace is the single mutation surface of the record engine. A
// Workspace owns the schema registry, the record store, the saved grids and
// the per-workspace filter map of one tenant workspace. Every mutating method
// serializes on an internal mutex and, when state changed, notifies the
// change hook the sync controller uses to schedule a push.
package workspace

import (
	"strings"
	"sync"
	"time"

	"github.com/moesafa-mgf/genie-haus/internal/query"
	"github.com/moesafa-mgf/genie-haus/internal/records"
	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// DefaultGridName names the grid created for a workspace without grids.
const DefaultGridName = "Main Grid"

// Workspace is the explicit store object of one (tenant, workspace) pair.
type Workspace struct {
	mu sync.Mutex

	tenantID    string
	workspaceID string

	schema  *schema.Registry
	records *records.Store

	filters       map[string]types.FilterSet
	active        types.FilterSet
	grids         []types.Grid
	currentGridID string
	userColors    map[string]map[string]string
	role          string
	staff         []types.StaffMember

	onChange func()
	newID    func(prefix string) string
}

type options struct {
	terminalStatus string
	now            func() time.Time
	newID          func(prefix string) string
	onChange       func()
}

// Option configures a Workspace.
type Option func(*options)

// WithTerminalStatus sets the status option id that marks a record done.
func WithTerminalStatus(id string) Option {
	return func(o *options) { o.terminalStatus = id }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the id generator for every entity.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(o *options) { o.newID = fn }
}

// WithOnChange registers the hook called after each state change.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// New returns an empty workspace running on the default schema.
func New(tenantID, workspaceID string, opts ...Option) *Workspace {
	o := options{
		terminalStatus: types.DefaultTerminalStatus,
		now:            time.Now,
		newID:          types.NewID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	reg := schema.NewRegistry(nil,
		schema.WithTerminalStatus(o.terminalStatus),
		schema.WithIDGenerator(o.newID),
	)
	w := &Workspace{
		tenantID:    tenantID,
		workspaceID: workspaceID,
		schema:      reg,
		records:     records.NewStore(reg, records.WithClock(o.now), records.WithIDGenerator(o.newID)),
		filters:     map[string]types.FilterSet{},
		active:      types.DefaultFilters(),
		onChange:    o.onChange,
		newID:       o.newID,
	}
	w.ensureDefaultGrid()
	return w
}

// TenantID returns the owning tenant.
func (w *Workspace) TenantID() string { return w.tenantID }

// ID returns the selected workspace id.
func (w *Workspace) ID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workspaceID
}

// SetOnChange replaces the change hook.
func (w *Workspace) SetOnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// mutate runs fn under the lock and fires the change hook when fn reports a
// change. The hook runs after the lock is released.
func (w *Workspace) mutate(fn func() bool) {
	w.mu.Lock()
	changed := fn()
	hook := w.onChange
	w.mu.Unlock()
	if changed && hook != nil {
		hook()
	}
}

// Select switches to another workspace of the same tenant. Records and grids
// are cleared until the next pull; the filter map and schema are kept.
func (w *Workspace) Select(workspaceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.workspaceID = workspaceID
	w.records.Replace(nil)
	w.grids = nil
	w.currentGridID = ""
	w.role = ""
	w.active = w.savedFilters()
	w.ensureDefaultGrid()
}

func (w *Workspace) savedFilters() types.FilterSet {
	if saved, ok := w.filters[w.workspaceID]; ok {
		return withDefaults(saved)
	}
	return types.DefaultFilters()
}

func withDefaults(fs types.FilterSet) types.FilterSet {
	out := fs.Clone()
	if out.Conditions == nil {
		out.Conditions = []types.Condition{}
	}
	return out
}

// ensureDefaultGrid guarantees at least one grid and a valid current grid,
// then makes the current grid's filters active. Callers hold the lock.
func (w *Workspace) ensureDefaultGrid() {
	if len(w.grids) == 0 {
		g := types.Grid{ID: w.newID(types.PrefixGrid), Name: DefaultGridName, Filters: types.DefaultFilters()}
		w.grids = append(w.grids, g)
		w.currentGridID = g.ID
	}
	if w.gridIndex(w.currentGridID) == -1 {
		w.currentGridID = w.grids[0].ID
	}
	w.active = withDefaults(w.grids[w.gridIndex(w.currentGridID)].Filters)
}

func (w *Workspace) gridIndex(id string) int {
	for i, g := range w.grids {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns the full document pushed to the remote store.
func (w *Workspace) Snapshot() *types.State {
	w.mu.Lock()
	defer w.mu.Unlock()

	filters := make(map[string]types.FilterSet, len(w.filters))
	for k, v := range w.filters {
		filters[k] = v.Clone()
	}
	grids := make([]types.Grid, len(w.grids))
	for i, g := range w.grids {
		grids[i] = types.Grid{ID: g.ID, Name: g.Name, Filters: g.Filters.Clone()}
	}
	return &types.State{
		Tasks:         w.records.Snapshot(),
		Columns:       w.schema.Columns(),
		Filters:       filters,
		Activity:      w.records.Activity(),
		Grids:         grids,
		CurrentGridID: w.currentGridID,
		UserColors:    cloneColors(w.userColors),
	}
}

// Install applies a pulled envelope. A document carrying a task list
// replaces the local records, schema, activity, grids and filter map. A
// document without one only merges the activity log, grids and user colours
// it carries. Install never schedules a push.
func (w *Workspace) Install(env types.Envelope) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if env.Role != "" {
		w.role = env.Role
	}
	st := env.State
	if st != nil && st.Tasks != nil {
		w.records.Replace(st.Tasks)
		w.schema.Replace(st.Columns)
		if st.Filters != nil {
			w.filters = make(map[string]types.FilterSet, len(st.Filters))
			for k, v := range st.Filters {
				w.filters[k] = v.Clone()
			}
		}
		if st.Activity != nil {
			w.records.ReplaceActivity(st.Activity)
		}
		w.grids = cloneGrids(st.Grids)
		w.currentGridID = st.CurrentGridID
		if st.UserColors != nil {
			w.userColors = cloneColors(st.UserColors)
		}
		w.records.RecomputeCompletion()
		w.ensureDefaultGrid()
		return
	}

	if st != nil {
		if st.Activity != nil {
			w.records.ReplaceActivity(st.Activity)
		}
		if st.Grids != nil {
			w.grids = cloneGrids(st.Grids)
			w.currentGridID = st.CurrentGridID
		}
		if st.UserColors != nil {
			w.userColors = cloneColors(st.UserColors)
		}
	}
	w.schema.Replace(w.schema.Stored())
	w.active = w.savedFilters()
	if len(w.grids) == 0 || w.gridIndex(w.currentGridID) == -1 {
		w.ensureDefaultGrid()
	}
}

// ReplaceRecords installs the record list echoed by a successful push.
func (w *Workspace) ReplaceRecords(recs []types.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records.Replace(recs)
	w.records.RecomputeCompletion()
}

// SetRole records the advisory role returned by the remote store.
func (w *Workspace) SetRole(role string) {
	if role == "" {
		return
	}
	w.mu.Lock()
	w.role = role
	w.mu.Unlock()
}

// Role returns the advisory role of the actor in this workspace. It gates
// UI affordances only.
func (w *Workspace) Role() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.role
}

// SetUserColor assigns a colour tag to a user within this workspace.
func (w *Workspace) SetUserColor(email, color string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return
	}
	w.mutate(func() bool {
		if w.userColors == nil {
			w.userColors = map[string]map[string]string{}
		}
		m := w.userColors[w.workspaceID]
		if m == nil {
			m = map[string]string{}
			w.userColors[w.workspaceID] = m
		}
		if m[email] == color {
			return false
		}
		m[email] = color
		return true
	})
}

// SetStaff installs the tenant's staff directory.
func (w *Workspace) SetStaff(staff []types.StaffMember) {
	w.mu.Lock()
	w.staff = append([]types.StaffMember(nil), staff...)
	w.mu.Unlock()
}

// Staff returns the installed staff directory.
func (w *Workspace) Staff() []types.StaffMember {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]types.StaffMember(nil), w.staff...)
}

func cloneGrids(in []types.Grid) []types.Grid {
	out := make([]types.Grid, len(in))
	for i, g := range in {
		out[i] = types.Grid{ID: g.ID, Name: g.Name, Filters: g.Filters.Clone()}
	}
	return out
}

func cloneColors(in map[string]map[string]string) map[string]map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for ws, m := range in {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[ws] = cp
	}
	return out
}

// staffNames builds the grouping lookup. Callers hold the lock.
func (w *Workspace) staffNames() query.StaffNames {
	return query.NewStaffNames(w.staff)
}
