package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func seqIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func newTestRegistry(cols []types.Column) *Registry {
	return NewRegistry(cols, WithIDGenerator(seqIDs()))
}

func labels(cols []types.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}

func TestColumnsFallBackToDefaults(t *testing.T) {
	r := newTestRegistry(nil)

	cols := r.Columns()
	assert.Equal(t, []string{"Title", "Status", "Assignee", "Updated"}, labels(cols))
	assert.Empty(t, r.Stored())

	status, ok := r.ByRole(types.RoleStatus)
	require.True(t, ok)
	assert.Equal(t, "status", status.ID)
	assert.Equal(t, "done", r.TerminalStatus())
	assert.Equal(t, "In Progress", r.StatusLabel("in_progress"))
}

func TestNormalize(t *testing.T) {
	in := []types.Column{
		{ID: "status", Label: "Stage", Type: types.ColumnSingleSelect, Locked: true,
			Options: []types.Option{{ID: "a", Label: "A"}, {ID: "a", Label: "dup"}, {ID: "b", Label: "B"}}},
		{ID: "status", Label: "Duplicate"},
		{ID: "", Label: "No id"},
		{ID: "owner", Label: "Owner", Type: types.ColumnUser, Role: types.RoleAssignee},
		{ID: "assignee", Label: "Old assignee", Type: types.ColumnUser},
		{ID: "updatedAt", Label: "Updated", Type: types.ColumnDate},
	}

	out := Normalize(in)
	require.Len(t, out, 4)

	assert.False(t, out[0].Locked)
	assert.Equal(t, types.RoleStatus, out[0].Role)
	assert.Equal(t, []types.Option{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}}, out[0].Options)

	assert.Equal(t, types.RoleAssignee, out[1].Role)
	assert.Equal(t, types.RoleNone, out[2].Role, "role already claimed by owner")
	assert.Equal(t, types.RoleUpdatedAt, out[3].Role)
	assert.True(t, out[3].ReadOnly)

	assert.True(t, in[0].Locked, "input must not be modified")
}

func TestResolveUnknownColumn(t *testing.T) {
	r := newTestRegistry(nil)

	col, ok := r.Resolve("fld_gone")
	assert.False(t, ok)
	assert.Equal(t, "fld_gone", col.Label)
	assert.Equal(t, types.ColumnType(""), col.Type)
}

func TestAddColumn(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		typ         types.ColumnType
		wantErr     error
		wantOptions []string
	}{
		{name: "text column", label: "Notes", typ: types.ColumnText},
		{name: "select gets default options", label: "Priority", typ: types.ColumnSingleSelect, wantOptions: []string{"Option 1", "Option 2"}},
		{name: "derived column is read-only", label: "Row", typ: types.ColumnAutonumber},
		{name: "empty label rejected", label: "  ", typ: types.ColumnText, wantErr: types.ErrInvalidName},
		{name: "unknown type rejected", label: "X", typ: "spreadsheet", wantErr: types.ErrInvalidColumnType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(nil)
			col, cols, err := r.Add(tt.label, tt.typ)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, r.Stored(), "state must not change on validation error")
				return
			}
			require.NoError(t, err)
			assert.Len(t, cols, 5)
			assert.Equal(t, col, cols[4])
			assert.Equal(t, tt.typ.ReadOnly(), col.ReadOnly)
			var got []string
			for _, o := range col.Options {
				got = append(got, o.Label)
			}
			assert.Equal(t, tt.wantOptions, got)
		})
	}
}

func TestInsertColumn(t *testing.T) {
	r := newTestRegistry(nil)

	_, _, err := r.Insert("status", true)
	require.NoError(t, err)
	_, cols, err := r.Insert("status", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "New Field", "Status", "New Field 2", "Assignee", "Updated"}, labels(cols))

	_, _, err = r.Insert("missing", true)
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestRenameColumn(t *testing.T) {
	r := newTestRegistry(nil)

	cols, err := r.Rename("status", "Stage")
	require.NoError(t, err)
	assert.Equal(t, "Stage", cols[1].Label)

	status, ok := r.ByRole(types.RoleStatus)
	require.True(t, ok)
	assert.Equal(t, "Stage", status.Label)

	_, err = r.Rename("status", "")
	assert.ErrorIs(t, err, types.ErrInvalidName)
}

func TestRetypeColumn(t *testing.T) {
	r := newTestRegistry(nil)
	col, _, err := r.Add("Tags", types.ColumnText)
	require.NoError(t, err)

	cols, err := r.Retype(col.ID, types.ColumnMultiSelect)
	require.NoError(t, err)
	assert.Len(t, cols[4].Options, 2)

	cols, err = r.Retype(col.ID, types.ColumnNumber)
	require.NoError(t, err)
	assert.Nil(t, cols[4].Options)

	_, err = r.Retype("status", types.ColumnText)
	assert.ErrorIs(t, err, types.ErrColumnLocked)

	_, err = r.Retype(col.ID, "bogus")
	assert.ErrorIs(t, err, types.ErrInvalidColumnType)
}

func TestDeleteColumn(t *testing.T) {
	r := newTestRegistry([]types.Column{
		{ID: "title", Label: "Title", Type: types.ColumnText},
		{ID: "fld_a", Label: "A", Type: types.ColumnText},
	})

	cols, err := r.Delete("fld_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title"}, labels(cols))

	_, err = r.Delete("fld_a")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestDeleteRoleColumn(t *testing.T) {
	r := newTestRegistry(nil)
	for _, id := range []string{"title", "status", "assignee", "updatedAt"} {
		_, err := r.Delete(id)
		assert.ErrorIs(t, err, types.ErrColumnLocked, id)
	}
	assert.Len(t, r.Columns(), 4)
}

func TestMoveAndReorder(t *testing.T) {
	r := newTestRegistry(nil)

	cols, err := r.Move("assignee", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Assignee", "Status", "Updated"}, labels(cols))

	cols, err = r.Move("title", -1)
	require.NoError(t, err)
	assert.Equal(t, "Title", cols[0].Label, "moving past the start is ignored")

	cols, err = r.Reorder("updatedAt", "title")
	require.NoError(t, err)
	assert.Equal(t, []string{"Updated", "Title", "Assignee", "Status"}, labels(cols))

	_, err = r.Reorder("nope", "title")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestDuplicateColumn(t *testing.T) {
	r := newTestRegistry(nil)

	cp, cols, err := r.Duplicate("status")
	require.NoError(t, err)

	assert.Equal(t, "Status Copy", cp.Label)
	assert.Equal(t, types.RoleNone, cp.Role)
	assert.Equal(t, cp, cols[2])
	require.Len(t, cp.Options, 3)
	assert.Equal(t, "To Do", cp.Options[0].Label)
	assert.NotEqual(t, "todo", cp.Options[0].ID)

	status, _ := r.ByRole(types.RoleStatus)
	assert.Equal(t, "todo", status.Options[0].ID, "source options untouched")
}

func TestSetOptions(t *testing.T) {
	r := newTestRegistry(nil)

	cols, err := r.SetOptions("status", []string{"Open", " ", "Closed"})
	require.NoError(t, err)
	opts := cols[1].Options
	require.Len(t, opts, 2)
	assert.Equal(t, "Open", opts[0].Label)
	assert.Equal(t, "gray", opts[0].Color)
	assert.Equal(t, "blue", opts[1].Color)
	assert.Equal(t, opts, r.StatusOptions())

	_, err = r.SetOptions("title", []string{"x"})
	assert.ErrorIs(t, err, types.ErrInvalidColumnType)
}

func TestStatusOptionsFallBack(t *testing.T) {
	r := newTestRegistry([]types.Column{{ID: "title", Label: "Title", Type: types.ColumnText}})

	opts := r.StatusOptions()
	require.Len(t, opts, 3)
	assert.Equal(t, "todo", opts[0].ID)

	r.SetTerminalStatus("closed")
	assert.Equal(t, "closed", r.TerminalStatus())
	r.SetTerminalStatus("")
	assert.Equal(t, "closed", r.TerminalStatus())
}
