package workspace

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

const actor = "a@x.com"

func newTestWorkspace(t *testing.T, changes *int) *Workspace {
	t.Helper()
	n := 0
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return New("loc_1", "ws_1",
		WithIDGenerator(func(prefix string) string {
			n++
			return fmt.Sprintf("%s_%d", prefix, n)
		}),
		WithClock(func() time.Time { return clock }),
		WithOnChange(func() {
			if changes != nil {
				*changes++
			}
		}),
	)
}

func TestNewWorkspaceHasMainGrid(t *testing.T) {
	w := newTestWorkspace(t, nil)

	grids := w.Grids()
	require.Len(t, grids, 1)
	assert.Equal(t, DefaultGridName, grids[0].Name)
	assert.Equal(t, grids[0].ID, w.CurrentGrid().ID)
	assert.True(t, w.Filters().IsZero())
	assert.Len(t, w.Columns(), 4)
}

func TestMutationsFireChangeHook(t *testing.T) {
	var changes int
	w := newTestWorkspace(t, &changes)

	rec := w.CreateRecord(actor)
	assert.Equal(t, 1, changes)

	_, changed := w.MutateField(rec.ID, "title", types.Text("Call"), actor)
	assert.True(t, changed)
	_, changed = w.MutateField(rec.ID, "title", types.Text("Call"), actor)
	assert.False(t, changed)
	assert.Equal(t, 2, changes, "no-op mutation must not schedule a push")

	_, _, err := w.AddColumn("", types.ColumnText)
	assert.ErrorIs(t, err, types.ErrInvalidName)
	assert.False(t, w.DeleteRecord("t_missing"))
	assert.Equal(t, 2, changes, "rejected mutations must not schedule a push")

	_, err = w.AddComment(rec.ID, "note", actor)
	require.NoError(t, err)
	assert.True(t, w.ReorderRecord(rec.ID, rec.ID))
	assert.Equal(t, 4, changes)
}

func TestDeleteColumnStripsValuesAndGridStillFilters(t *testing.T) {
	w := newTestWorkspace(t, nil)
	col, _, err := w.AddColumn("Notes", types.ColumnText)
	require.NoError(t, err)
	rec := w.CreateRecord(actor)
	w.MutateField(rec.ID, col.ID, types.Text("x"), actor)

	_, err = w.SaveGrid("With notes", types.FilterSet{
		Conditions: []types.Condition{{Field: col.ID, Operator: types.OpNotEmpty}},
	})
	require.NoError(t, err)
	require.Len(t, w.View()[0].Records, 1)

	_, err = w.DeleteColumn(col.ID)
	require.NoError(t, err)

	got, _ := w.Record(rec.ID)
	_, present := got.Fields[col.ID]
	assert.False(t, present)
	assert.Empty(t, w.View())
	assert.Len(t, w.Records(), 1)

	rec, _ = w.Record(rec.ID)
	_, err = w.DeleteColumn("status")
	assert.ErrorIs(t, err, types.ErrColumnLocked)
	got, _ = w.Record(rec.ID)
	assert.Equal(t, rec.Status, got.Status)
	_, ok := w.ResolveColumn("status")
	assert.True(t, ok)
}

func TestGrids(t *testing.T) {
	w := newTestWorkspace(t, nil)
	main := w.CurrentGrid()

	mine := types.FilterSet{AssigneeEmail: actor}
	g, err := w.SaveGrid(" Mine ", mine)
	require.NoError(t, err)
	assert.Equal(t, "Mine", g.Name)
	assert.Equal(t, g.ID, w.CurrentGrid().ID)
	assert.Equal(t, actor, w.Filters().AssigneeEmail)

	_, err = w.SaveGrid("  ", mine)
	assert.ErrorIs(t, err, types.ErrInvalidName)

	require.True(t, w.SelectGrid(main.ID))
	assert.True(t, w.Filters().IsZero())
	assert.False(t, w.SelectGrid("grid_missing"))

	w.SetFilters(types.FilterSet{Status: "todo", GroupBy: types.GroupByStatus})
	assert.Equal(t, "todo", w.CurrentGrid().Filters.Status)
	snap := w.Snapshot()
	assert.Equal(t, "todo", snap.Filters["ws_1"].Status)
	assert.Equal(t, main.ID, snap.CurrentGridID)
}

func TestSnapshotInstallRoundTrip(t *testing.T) {
	src := newTestWorkspace(t, nil)
	col, _, _ := src.AddColumn("Tags", types.ColumnMultiSelect)
	a := src.CreateRecord(actor)
	src.MutateField(a.ID, col.ID, types.List("high", "low"), actor)
	src.MutateField(a.ID, "status", types.Text("done"), actor)
	src.CreateRecord("b@x.com")
	src.SetUserColor("B@X.com", "teal")
	_, err := src.SaveGrid("Tags", types.FilterSet{GroupBy: types.GroupByField(col.ID)})
	require.NoError(t, err)

	snap := src.Snapshot()

	dst := newTestWorkspace(t, nil)
	dst.Install(types.Envelope{State: snap, Role: "admin"})

	assert.Equal(t, src.Records(), dst.Records())
	assert.Equal(t, src.Columns(), dst.Columns())
	assert.Equal(t, src.Grids(), dst.Grids())
	assert.Equal(t, src.Filters(), dst.Filters())
	assert.Equal(t, src.ActivityFeed("", 0), dst.ActivityFeed("", 0))
	assert.Equal(t, snap, dst.Snapshot())
	assert.Equal(t, "admin", dst.Role())
}

func TestInstallUnlocksColumnsAndInfersRoles(t *testing.T) {
	w := newTestWorkspace(t, nil)
	w.Install(types.Envelope{State: &types.State{
		Tasks: []types.Record{},
		Columns: []types.Column{
			{ID: "title", Label: "Name", Type: types.ColumnText, Locked: true},
			{ID: "status", Label: "Stage", Type: types.ColumnSingleSelect, Locked: true,
				Options: []types.Option{{ID: "open", Label: "Open"}, {ID: "done", Label: "Closed"}}},
		},
	}})

	cols := w.Columns()
	require.Len(t, cols, 2)
	assert.False(t, cols[0].Locked)
	assert.Equal(t, types.RoleStatus, cols[1].Role)

	rec := w.CreateRecord(actor)
	assert.Equal(t, "open", rec.Status)
}

func TestInstallWithoutTasksMergesOnly(t *testing.T) {
	w := newTestWorkspace(t, nil)
	col, _, _ := w.AddColumn("Notes", types.ColumnText)
	w.CreateRecord(actor)

	w.Install(types.Envelope{State: &types.State{
		Activity: []types.ActivityEntry{{ID: "act_x", TaskID: "t_old", Field: "title"}},
		Grids:    []types.Grid{{ID: "grid_remote", Name: "Remote"}},
	}})

	assert.Len(t, w.Records(), 1, "records are kept")
	_, ok := w.ResolveColumn(col.ID)
	assert.True(t, ok, "columns are kept")
	assert.Equal(t, "act_x", w.ActivityFeed("", 0)[0].ID)
	assert.Equal(t, "grid_remote", w.CurrentGrid().ID)

	w.Install(types.Envelope{})
	assert.Len(t, w.Records(), 1)
}

func TestInstallRestoresCompletionInvariant(t *testing.T) {
	w := newTestWorkspace(t, nil)
	w.Install(types.Envelope{State: &types.State{Tasks: []types.Record{
		{ID: "t_1", Status: "done"},
		{ID: "t_2", Status: "todo", CompletedAt: &time.Time{}},
	}}})

	recs := w.Records()
	assert.NotNil(t, recs[0].CompletedAt)
	assert.Nil(t, recs[1].CompletedAt)
}

func TestSelectClearsRecords(t *testing.T) {
	w := newTestWorkspace(t, nil)
	w.CreateRecord(actor)
	w.SetFilters(types.FilterSet{Status: "todo"})

	w.Select("ws_2")
	assert.Equal(t, "ws_2", w.ID())
	assert.Empty(t, w.Records())
	assert.True(t, w.Filters().IsZero())

	w.Select("ws_1")
	assert.Len(t, w.Grids(), 1)
}

func TestViewsUseStaffAndBoard(t *testing.T) {
	w := newTestWorkspace(t, nil)
	w.SetStaff([]types.StaffMember{{ID: "u1", Email: actor, Name: "Ada"}})
	a := w.CreateRecord(actor)
	w.CreateRecord("b@x.com")
	w.MutateField(a.ID, "status", types.Text("in_progress"), actor)

	groups := w.Query(types.FilterSet{GroupBy: types.GroupByAssignee})
	require.Len(t, groups, 2)
	assert.Equal(t, "Ada", groups[0].Label)

	lanes := w.Board()
	require.Len(t, lanes, 3)
	assert.Len(t, lanes[0].Records, 1)
	assert.Len(t, lanes[1].Records, 1)

	assert.Equal(t, 2, w.Dashboard().CreatedByDay["2024-03-01"][actor]+w.Dashboard().CreatedByDay["2024-03-01"]["b@x.com"])
	assert.Equal(t, "Status", w.FieldLabel("status"))
	col, ok := w.FindColumn("STATUS")
	assert.True(t, ok)
	assert.Equal(t, "status", col.ID)
}
