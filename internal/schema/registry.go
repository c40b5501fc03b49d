// Package schema holds the ordered column definitions of the active
// workspace and answers what a column id means.
//
// A Registry is not safe for concurrent use; the workspace that owns it
// serializes access.
package schema

import (
	"fmt"
	"strings"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Registry is the ordered column list of one workspace.
type Registry struct {
	columns        []types.Column
	terminalStatus string
	newID          func(prefix string) string
}

// Option configures a Registry.
type Option func(*Registry)

// WithTerminalStatus sets the status option id that marks a record done.
func WithTerminalStatus(id string) Option {
	return func(r *Registry) {
		if id != "" {
			r.terminalStatus = id
		}
	}
}

// WithIDGenerator replaces the id generator (tests use deterministic ids).
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// NewRegistry returns a registry holding the normalized form of columns.
func NewRegistry(columns []types.Column, opts ...Option) *Registry {
	r := &Registry{
		terminalStatus: types.DefaultTerminalStatus,
		newID:          types.NewID,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.columns = Normalize(columns)
	return r
}

// DefaultColumns returns the fixed schema used when a workspace has none.
func DefaultColumns() []types.Column {
	return []types.Column{
		{ID: "title", Label: "Title", Type: types.ColumnText, Role: types.RoleTitle},
		{
			ID:    "status",
			Label: "Status",
			Type:  types.ColumnSingleSelect,
			Role:  types.RoleStatus,
			Options: []types.Option{
				{ID: "todo", Label: "To Do", Color: "gray"},
				{ID: "in_progress", Label: "In Progress", Color: "blue"},
				{ID: "done", Label: "Done", Color: "green"},
			},
		},
		{ID: "assignee", Label: "Assignee", Type: types.ColumnUser, Role: types.RoleAssignee},
		{ID: "updatedAt", Label: "Updated", Type: types.ColumnDate, Role: types.RoleUpdatedAt, ReadOnly: true},
	}
}

// Normalize prepares a column list received from storage for installation.
// The locked flag is cleared because locking is local UI policy. Columns
// without a role inherit one from the legacy built-in ids, unless another
// column already carries that role. Columns with an empty or repeated id
// are dropped, as are repeated option ids within a column.
func Normalize(columns []types.Column) []types.Column {
	out := make([]types.Column, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	claimed := make(map[types.Role]bool)
	for _, c := range columns {
		if c.Role != types.RoleNone {
			claimed[c.Role] = true
		}
	}
	for _, c := range columns {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		c = c.Clone()
		c.Locked = false
		if c.Role == types.RoleNone {
			if role, ok := types.LegacyRoleIDs[c.ID]; ok && !claimed[role] {
				c.Role = role
				claimed[role] = true
			}
		}
		if c.Role == types.RoleUpdatedAt {
			c.ReadOnly = true
		}
		c.Options = dedupeOptions(c.Options)
		out = append(out, c)
	}
	return out
}

func dedupeOptions(opts []types.Option) []types.Option {
	if opts == nil {
		return nil
	}
	seen := make(map[string]bool, len(opts))
	out := make([]types.Option, 0, len(opts))
	for _, o := range opts {
		if o.ID == "" || seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		out = append(out, o)
	}
	return out
}

// Columns returns a copy of the column list, or the default schema when the
// workspace has no columns.
func (r *Registry) Columns() []types.Column {
	src := r.columns
	if len(src) == 0 {
		return DefaultColumns()
	}
	out := make([]types.Column, len(src))
	for i, c := range src {
		out[i] = c.Clone()
	}
	return out
}

// Stored returns the column list exactly as it will be persisted. It is
// empty when the workspace still runs on the default schema.
func (r *Registry) Stored() []types.Column {
	out := make([]types.Column, len(r.columns))
	for i, c := range r.columns {
		out[i] = c.Clone()
	}
	return out
}

// Replace installs a column list received from storage.
func (r *Registry) Replace(columns []types.Column) {
	r.columns = Normalize(columns)
}

// Resolve returns the column with the given id. The second result is false
// when no such column exists; the returned column then carries the id as its
// label and no type, so callers can render it without failing.
func (r *Registry) Resolve(id string) (types.Column, bool) {
	for _, c := range r.Columns() {
		if c.ID == id {
			return c, true
		}
	}
	return types.Column{ID: id, Label: id}, false
}

// ByRole returns the column carrying role.
func (r *Registry) ByRole(role types.Role) (types.Column, bool) {
	if role == types.RoleNone {
		return types.Column{}, false
	}
	for _, c := range r.Columns() {
		if c.Role == role {
			return c, true
		}
	}
	return types.Column{}, false
}

// StatusOptions returns the options of the status column, falling back to
// the default status options.
func (r *Registry) StatusOptions() []types.Option {
	if col, ok := r.ByRole(types.RoleStatus); ok && len(col.Options) > 0 {
		return col.Options
	}
	def := DefaultColumns()[1]
	return def.Options
}

// StatusLabel returns the label of a status option id, or "" if unknown.
func (r *Registry) StatusLabel(id string) string {
	for _, o := range r.StatusOptions() {
		if o.ID == id {
			return o.Label
		}
	}
	return ""
}

// TerminalStatus returns the status option id that marks a record done.
func (r *Registry) TerminalStatus() string {
	return r.terminalStatus
}

// SetTerminalStatus changes the terminal status option id.
func (r *Registry) SetTerminalStatus(id string) {
	if id != "" {
		r.terminalStatus = id
	}
}

// Add appends a new column. Select columns start with two options.
func (r *Registry) Add(label string, t types.ColumnType) (types.Column, []types.Column, error) {
	col, err := r.newColumn(label, t)
	if err != nil {
		return types.Column{}, nil, err
	}
	cols := append(r.Columns(), col)
	r.columns = cols
	return col, r.Columns(), nil
}

// Insert adds a text column named "New Field" (suffixed until unique) to the
// left or right of relativeTo.
func (r *Registry) Insert(relativeTo string, left bool) (types.Column, []types.Column, error) {
	cols := r.Columns()
	idx := indexOf(cols, relativeTo)
	if idx == -1 {
		return types.Column{}, nil, types.ErrColumnNotFound
	}
	label := "New Field"
	for n := 2; hasLabel(cols, label); n++ {
		label = fmt.Sprintf("New Field %d", n)
	}
	col, err := r.newColumn(label, types.ColumnText)
	if err != nil {
		return types.Column{}, nil, err
	}
	at := idx + 1
	if left {
		at = idx
	}
	r.columns = insertAt(cols, at, col)
	return col, r.Columns(), nil
}

// Rename changes a column's label.
func (r *Registry) Rename(id, label string) ([]types.Column, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, types.ErrInvalidName
	}
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return nil, types.ErrColumnNotFound
	}
	cols[idx].Label = label
	r.columns = cols
	return r.Columns(), nil
}

// Retype changes a column's type. Columns that carry a semantic role keep
// their type. Becoming a select type seeds default options; leaving one
// drops the options.
func (r *Registry) Retype(id string, t types.ColumnType) ([]types.Column, error) {
	if !t.Valid() {
		return nil, types.ErrInvalidColumnType
	}
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return nil, types.ErrColumnNotFound
	}
	col := cols[idx]
	if col.Locked || col.Role != types.RoleNone {
		return nil, types.ErrColumnLocked
	}
	col.Type = t
	switch {
	case t.IsSelect() && len(col.Options) == 0:
		col.Options = r.defaultOptions()
	case !t.IsSelect():
		col.Options = nil
	}
	cols[idx] = col
	r.columns = cols
	return r.Columns(), nil
}

// Delete removes a column. Role columns cannot be deleted. Callers must strip the column's stored values
// from every record.
func (r *Registry) Delete(id string) ([]types.Column, error) {
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return nil, types.ErrColumnNotFound
	}
	if cols[idx].Locked || cols[idx].Role != types.RoleNone {
		return nil, types.ErrColumnLocked
	}
	r.columns = append(cols[:idx], cols[idx+1:]...)
	return r.Columns(), nil
}

// Move shifts a column by delta positions. Moves past either end are
// ignored.
func (r *Registry) Move(id string, delta int) ([]types.Column, error) {
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return nil, types.ErrColumnNotFound
	}
	target := idx + delta
	if target < 0 || target >= len(cols) || target == idx {
		return cols, nil
	}
	col := cols[idx]
	cols = append(cols[:idx], cols[idx+1:]...)
	r.columns = insertAt(cols, target, col)
	return r.Columns(), nil
}

// Reorder moves sourceID into targetID's position (drag and drop).
func (r *Registry) Reorder(sourceID, targetID string) ([]types.Column, error) {
	if sourceID == targetID {
		return r.Columns(), nil
	}
	cols := r.Columns()
	from, to := indexOf(cols, sourceID), indexOf(cols, targetID)
	if from == -1 || to == -1 {
		return nil, types.ErrColumnNotFound
	}
	return r.Move(sourceID, to-from)
}

// Duplicate inserts a copy of a column right after it. The copy gets fresh
// column and option ids, is unlocked and carries no role.
func (r *Registry) Duplicate(id string) (types.Column, []types.Column, error) {
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return types.Column{}, nil, types.ErrColumnNotFound
	}
	cp := cols[idx].Clone()
	cp.ID = r.newID(types.PrefixColumn)
	cp.Label = cols[idx].Label + " Copy"
	cp.Locked = false
	cp.Role = types.RoleNone
	cp.ReadOnly = cp.Type.ReadOnly()
	for i := range cp.Options {
		cp.Options[i].ID = r.newID(types.PrefixOption)
	}
	r.columns = insertAt(cols, idx+1, cp)
	return cp, r.Columns(), nil
}

// SetOptions replaces a select column's options with fresh ones built from
// labels. Blank labels are skipped.
func (r *Registry) SetOptions(id string, labels []string) ([]types.Column, error) {
	cols := r.Columns()
	idx := indexOf(cols, id)
	if idx == -1 {
		return nil, types.ErrColumnNotFound
	}
	if !cols[idx].Type.IsSelect() {
		return nil, types.ErrInvalidColumnType
	}
	opts := make([]types.Option, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		opts = append(opts, types.Option{
			ID:    r.newID(types.PrefixOption),
			Label: l,
			Color: types.OptionColors[len(opts)%len(types.OptionColors)],
		})
	}
	cols[idx].Options = opts
	r.columns = cols
	return r.Columns(), nil
}

func (r *Registry) newColumn(label string, t types.ColumnType) (types.Column, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return types.Column{}, types.ErrInvalidName
	}
	if !t.Valid() {
		return types.Column{}, types.ErrInvalidColumnType
	}
	col := types.Column{
		ID:       r.newID(types.PrefixColumn),
		Label:    label,
		Type:     t,
		ReadOnly: t.ReadOnly(),
	}
	if t.IsSelect() {
		col.Options = r.defaultOptions()
	}
	return col, nil
}

func (r *Registry) defaultOptions() []types.Option {
	return []types.Option{
		{ID: r.newID(types.PrefixOption), Label: "Option 1", Color: "blue"},
		{ID: r.newID(types.PrefixOption), Label: "Option 2", Color: "green"},
	}
}

func indexOf(cols []types.Column, id string) int {
	for i, c := range cols {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func hasLabel(cols []types.Column, label string) bool {
	for _, c := range cols {
		if c.Label == label {
			return true
		}
	}
	return false
}

func insertAt(cols []types.Column, at int, col types.Column) []types.Column {
	cols = append(cols, types.Column{})
	copy(cols[at+1:], cols[at:])
	cols[at] = col
	return cols
}
