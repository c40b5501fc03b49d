package workspace

import (
	"strings"

	"github.com/moesafa-mgf/genie-haus/internal/query"
	"github.com/moesafa-mgf/genie-haus/internal/records"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Records returns copies of every record in display order.
func (w *Workspace) Records() []*types.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records.Records()
}

// Record returns a copy of one record.
func (w *Workspace) Record(id string) (*types.Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records.Get(id)
}

// Value returns the value column columnID shows for a record.
func (w *Workspace) Value(rec *types.Record, columnID string) types.FieldValue {
	w.mu.Lock()
	defer w.mu.Unlock()
	col, ok := w.schema.Resolve(columnID)
	if !ok {
		return types.Null()
	}
	pos := -1
	for i, r := range w.records.Records() {
		if r.ID == rec.ID {
			pos = i
			break
		}
	}
	return records.ValueOf(rec, col, pos)
}

// MutateField writes value into a record's column.
func (w *Workspace) MutateField(recordID, columnID string, value types.FieldValue, actor string) (*types.Record, bool) {
	var rec *types.Record
	var changed bool
	w.mutate(func() bool {
		rec, changed = w.records.Upsert(recordID, columnID, value, actor)
		return changed
	})
	return rec, changed
}

// CreateRecord appends a new record owned by actor.
func (w *Workspace) CreateRecord(actor string) *types.Record {
	var rec *types.Record
	w.mutate(func() bool {
		rec = w.records.Create(actor)
		return true
	})
	return rec
}

// DuplicateRecord appends a copy of a record.
func (w *Workspace) DuplicateRecord(recordID, actor string) (*types.Record, bool) {
	var rec *types.Record
	var ok bool
	w.mutate(func() bool {
		rec, ok = w.records.Duplicate(recordID, actor)
		return ok
	})
	return rec, ok
}

// DeleteRecord removes a record. Its activity entries are kept.
func (w *Workspace) DeleteRecord(recordID string) bool {
	var ok bool
	w.mutate(func() bool {
		ok = w.records.Delete(recordID)
		return ok
	})
	return ok
}

// ReorderRecord moves sourceID into targetID's position.
func (w *Workspace) ReorderRecord(sourceID, targetID string) bool {
	var ok bool
	w.mutate(func() bool {
		ok = w.records.Reorder(sourceID, targetID)
		return ok
	})
	return ok
}

// MoveRecord moves a record to a zero-based position.
func (w *Workspace) MoveRecord(recordID string, position int) bool {
	var ok bool
	w.mutate(func() bool {
		ok = w.records.MoveTo(recordID, position)
		return ok
	})
	return ok
}

// AddComment appends a comment to a record.
func (w *Workspace) AddComment(recordID, text, actor string) (types.Comment, error) {
	var c types.Comment
	var err error
	w.mutate(func() bool {
		c, err = w.records.AddComment(recordID, text, actor)
		return err == nil
	})
	return c, err
}

// AssignToSelf makes actor the record's assignee.
func (w *Workspace) AssignToSelf(recordID, actor string) (*types.Record, bool) {
	var rec *types.Record
	var ok bool
	w.mutate(func() bool {
		rec, ok = w.records.AssignToSelf(recordID, actor)
		return ok
	})
	return rec, ok
}

// Columns returns the ordered column list, defaults included.
func (w *Workspace) Columns() []types.Column {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.schema.Columns()
}

// ResolveColumn returns the column with the given id.
func (w *Workspace) ResolveColumn(id string) (types.Column, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.schema.Resolve(id)
}

// FindColumn resolves a column by id, or failing that by case-insensitive
// label.
func (w *Workspace) FindColumn(ref string) (types.Column, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if col, ok := w.schema.Resolve(ref); ok {
		return col, true
	}
	for _, c := range w.schema.Columns() {
		if strings.EqualFold(c.Label, ref) {
			return c, true
		}
	}
	return types.Column{}, false
}

// StatusOptions returns the status column's options.
func (w *Workspace) StatusOptions() []types.Option {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.schema.StatusOptions()
}

// AddColumn appends a column.
func (w *Workspace) AddColumn(label string, t types.ColumnType) (types.Column, []types.Column, error) {
	var col types.Column
	var cols []types.Column
	var err error
	w.mutate(func() bool {
		col, cols, err = w.schema.Add(label, t)
		return err == nil
	})
	return col, cols, err
}

// InsertColumn adds a "New Field" column beside relativeTo.
func (w *Workspace) InsertColumn(relativeTo string, left bool) (types.Column, []types.Column, error) {
	var col types.Column
	var cols []types.Column
	var err error
	w.mutate(func() bool {
		col, cols, err = w.schema.Insert(relativeTo, left)
		return err == nil
	})
	return col, cols, err
}

// RenameColumn changes a column's label.
func (w *Workspace) RenameColumn(id, label string) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) { return w.schema.Rename(id, label) })
}

// RetypeColumn changes a column's type.
func (w *Workspace) RetypeColumn(id string, t types.ColumnType) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) { return w.schema.Retype(id, t) })
}

// DeleteColumn removes a column and strips its values from every record.
// Grids that reference it keep their conditions, which then match nothing.
func (w *Workspace) DeleteColumn(id string) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) {
		cols, err := w.schema.Delete(id)
		if err != nil {
			return nil, err
		}
		w.records.StripField(id)
		return cols, nil
	})
}

// ReorderColumn moves sourceID into targetID's position.
func (w *Workspace) ReorderColumn(sourceID, targetID string) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) { return w.schema.Reorder(sourceID, targetID) })
}

// MoveColumn shifts a column by delta positions.
func (w *Workspace) MoveColumn(id string, delta int) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) { return w.schema.Move(id, delta) })
}

// DuplicateColumn inserts a copy of a column after it. Values are not
// copied.
func (w *Workspace) DuplicateColumn(id string) (types.Column, []types.Column, error) {
	var col types.Column
	var cols []types.Column
	var err error
	w.mutate(func() bool {
		col, cols, err = w.schema.Duplicate(id)
		return err == nil
	})
	return col, cols, err
}

// SetColumnOptions replaces a select column's options.
func (w *Workspace) SetColumnOptions(id string, labels []string) ([]types.Column, error) {
	return w.columnOp(func() ([]types.Column, error) { return w.schema.SetOptions(id, labels) })
}

func (w *Workspace) columnOp(fn func() ([]types.Column, error)) ([]types.Column, error) {
	var cols []types.Column
	var err error
	w.mutate(func() bool {
		cols, err = fn()
		return err == nil
	})
	return cols, err
}

// Filters returns the active filter set.
func (w *Workspace) Filters() types.FilterSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.Clone()
}

// SetFilters makes fs the active filter set and stores it in the current
// grid and the per-workspace filter map.
func (w *Workspace) SetFilters(fs types.FilterSet) {
	w.mutate(func() bool {
		w.active = withDefaults(fs)
		w.filters[w.workspaceID] = w.active.Clone()
		if i := w.gridIndex(w.currentGridID); i != -1 {
			w.grids[i].Filters = w.active.Clone()
		}
		return true
	})
}

// Grids returns the saved grids.
func (w *Workspace) Grids() []types.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneGrids(w.grids)
}

// CurrentGrid returns the selected grid.
func (w *Workspace) CurrentGrid() types.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	g := w.grids[w.gridIndex(w.currentGridID)]
	return types.Grid{ID: g.ID, Name: g.Name, Filters: g.Filters.Clone()}
}

// SaveGrid stores fs as a new named grid and selects it.
func (w *Workspace) SaveGrid(name string, fs types.FilterSet) (types.Grid, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Grid{}, types.ErrInvalidName
	}
	var g types.Grid
	w.mutate(func() bool {
		g = types.Grid{ID: w.newID(types.PrefixGrid), Name: name, Filters: withDefaults(fs)}
		w.grids = append(w.grids, g)
		w.selectGrid(g.ID)
		return true
	})
	return g, nil
}

// SelectGrid makes a saved grid current and its filters active.
func (w *Workspace) SelectGrid(id string) bool {
	var ok bool
	w.mutate(func() bool {
		ok = w.selectGrid(id)
		return ok
	})
	return ok
}

func (w *Workspace) selectGrid(id string) bool {
	i := w.gridIndex(id)
	if i == -1 {
		return false
	}
	w.currentGridID = id
	w.active = withDefaults(w.grids[i].Filters)
	w.filters[w.workspaceID] = w.active.Clone()
	return true
}

// Query filters and groups the records with fs.
func (w *Workspace) Query(fs types.FilterSet) []query.Group {
	w.mu.Lock()
	defer w.mu.Unlock()
	return query.Apply(w.records.Records(), w.schema, fs, w.staffNames())
}

// View filters and groups the records with the active filter set.
func (w *Workspace) View() []query.Group {
	return w.Query(w.Filters())
}

// Board returns the filtered records bucketed by status.
func (w *Workspace) Board() []query.Lane {
	w.mu.Lock()
	defer w.mu.Unlock()
	filtered := query.Filter(w.records.Records(), w.schema, w.active)
	return query.Board(filtered, w.schema.StatusOptions())
}

// Dashboard aggregates every record, ignoring filters.
func (w *Workspace) Dashboard() query.DashboardData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return query.Dashboard(w.records.Records())
}

// ActivityFeed returns up to limit entries, newest first.
func (w *Workspace) ActivityFeed(recordID string, limit int) []types.ActivityEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records.ActivityFeed(recordID, limit)
}

// FieldLabel resolves an activity entry's field id to a column label.
func (w *Workspace) FieldLabel(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	col, _ := w.schema.Resolve(id)
	return col.Label
}
