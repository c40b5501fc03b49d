package records

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

const actor = "a@x.com"

type fixture struct {
	reg   *schema.Registry
	store *Store
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	n := 0
	ids := func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
	f.reg = schema.NewRegistry(nil, schema.WithIDGenerator(ids))
	f.store = NewStore(f.reg,
		WithIDGenerator(ids),
		WithClock(func() time.Time { return f.clock }),
	)
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

// assertCompletionInvariant checks that completedAt is set exactly when the
// status is terminal.
func assertCompletionInvariant(t *testing.T, s *Store) {
	t.Helper()
	for _, r := range s.Records() {
		terminal := r.Status == s.schema.TerminalStatus()
		assert.Equal(t, terminal, r.CompletedAt != nil, "record %s status %q", r.ID, r.Status)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := f.store.Create(actor)
	assert.Equal(t, DefaultTitle, rec.Title)
	assert.Equal(t, "todo", rec.Status)
	assert.Equal(t, actor, rec.AssigneeEmail)
	assert.Equal(t, actor, rec.CreatedBy)
	assert.Equal(t, f.clock, rec.CreatedAt)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.store.Activity())
}

func TestUpsertStatusToDone(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	_, changed := f.store.Upsert(rec.ID, "status", types.Text("in_progress"), actor)
	require.True(t, changed)
	f.advance(time.Minute)

	got, changed := f.store.Upsert(rec.ID, "status", types.Text("done"), "b@x.com")
	require.True(t, changed)

	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, f.clock, *got.CompletedAt)
	assert.Equal(t, f.clock, got.UpdatedAt)
	assert.Equal(t, "b@x.com", got.UpdatedBy)

	log := f.store.Activity()
	require.Len(t, log, 2)
	last := log[1]
	assert.Equal(t, "status", last.Field)
	assert.Equal(t, rec.ID, last.TaskID)
	assert.Equal(t, "in_progress", last.Before.AsText())
	assert.Equal(t, "done", last.After.AsText())
	assertCompletionInvariant(t, f.store)

	got, _ = f.store.Upsert(rec.ID, "status", types.Text("todo"), actor)
	assert.Nil(t, got.CompletedAt)
	assertCompletionInvariant(t, f.store)
}

func TestUpsertRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)

	got, changed := f.store.Upsert(rec.ID, "status", types.Text("blocked"), actor)
	assert.False(t, changed)
	assert.Equal(t, rec.Status, got.Status)
	assert.Empty(t, f.store.Activity())

	_, changed = f.store.Upsert(rec.ID, "status", types.Null(), actor)
	assert.True(t, changed, "clearing the status is allowed")
	got, ok := f.store.Get(rec.ID)
	require.True(t, ok)
	assert.Empty(t, got.Status)
}

func TestUpsertIsIdempotent(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	col, _, err := f.reg.Add("Notes", types.ColumnText)
	require.NoError(t, err)

	_, changed := f.store.Upsert(rec.ID, col.ID, types.Text("hello"), actor)
	assert.True(t, changed)
	f.advance(time.Minute)
	got, changed := f.store.Upsert(rec.ID, col.ID, types.Text("hello"), actor)
	assert.False(t, changed)

	assert.Len(t, f.store.Activity(), 1)
	assert.NotEqual(t, f.clock, got.UpdatedAt, "no-op must not touch the record")

	num, _, err := f.reg.Add("Estimate", types.ColumnNumber)
	require.NoError(t, err)
	for range 2 {
		_, changed = f.store.Upsert(rec.ID, num.ID, types.ParseValue(types.ColumnNumber, "NaN"), actor)
		assert.False(t, changed, "non-finite numbers coerce to empty")
	}
	assert.Len(t, f.store.Activity(), 1)
	_, err = json.Marshal(f.store.Records())
	assert.NoError(t, err)
}

func TestUpsertEmptyToEmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	col, _, err := f.reg.Add("Tags", types.ColumnMultiSelect)
	require.NoError(t, err)

	_, changed := f.store.Upsert(rec.ID, col.ID, types.Text(""), actor)
	assert.False(t, changed)
	_, changed = f.store.Upsert(rec.ID, col.ID, types.List(), actor)
	assert.False(t, changed)
	assert.Empty(t, f.store.Activity())
}

func TestUpsertRoutesByRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.Rename("title", "Name")
	require.NoError(t, err)
	// Roles survive moving the title column away from its legacy position.
	_, err = f.reg.Move("title", 2)
	require.NoError(t, err)
	rec := f.store.Create(actor)

	got, changed := f.store.Upsert(rec.ID, "title", types.Text("  Call back "), actor)
	require.True(t, changed)
	assert.Equal(t, "Call back", got.Title)
	assert.Empty(t, got.Fields)

	got, _ = f.store.Upsert(rec.ID, "assignee", types.Null(), actor)
	assert.Equal(t, "", got.AssigneeEmail)
	entry := f.store.Activity()[1]
	assert.Equal(t, actor, entry.Before.AsText())
	assert.True(t, entry.After.IsNull())
}

func TestUpsertCoercesCustomFields(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	num, _, _ := f.reg.Add("Estimate", types.ColumnNumber)
	tags, _, _ := f.reg.Add("Tags", types.ColumnMultiSelect)

	got, _ := f.store.Upsert(rec.ID, num.ID, types.Text("3.5"), actor)
	n, ok := got.Field(num.ID).AsNumber()
	require.True(t, ok)
	assert.Equal(t, 3.5, n)

	got, _ = f.store.Upsert(rec.ID, tags.ID, types.Text("high, low"), actor)
	assert.Equal(t, []string{"high", "low"}, got.Field(tags.ID).AsList())

	got, changed := f.store.Upsert(rec.ID, num.ID, types.Text("abc"), actor)
	assert.True(t, changed)
	_, present := got.Fields[num.ID]
	assert.False(t, present, "unparseable number clears the field")
}

func TestUpsertIgnoresUnwritableColumns(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	auto, _, _ := f.reg.Add("Row", types.ColumnAutonumber)

	for _, id := range []string{"updatedAt", auto.ID, "fld_missing"} {
		_, changed := f.store.Upsert(rec.ID, id, types.Text("x"), actor)
		assert.False(t, changed, id)
	}
	_, changed := f.store.Upsert("t_missing", "title", types.Text("x"), actor)
	assert.False(t, changed)
	assert.Empty(t, f.store.Activity())
}

func TestDuplicate(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	col, _, _ := f.reg.Add("Notes", types.ColumnText)
	f.store.Upsert(rec.ID, col.ID, types.Text("n"), actor)
	f.store.Upsert(rec.ID, "status", types.Text("done"), actor)
	_, err := f.store.AddComment(rec.ID, "first", actor)
	require.NoError(t, err)
	f.advance(time.Hour)

	cp, ok := f.store.Duplicate(rec.ID, "b@x.com")
	require.True(t, ok)

	assert.NotEqual(t, rec.ID, cp.ID)
	assert.Equal(t, DefaultTitle+" Copy", cp.Title)
	assert.Equal(t, "n", cp.Field(col.ID).AsText())
	require.Len(t, cp.Comments, 1)
	assert.Equal(t, f.clock, cp.CreatedAt)
	require.NotNil(t, cp.CompletedAt)
	assert.Equal(t, f.clock, *cp.CompletedAt, "completion restamped")
	assertCompletionInvariant(t, f.store)

	f.store.Upsert(cp.ID, col.ID, types.Text("changed"), actor)
	orig, _ := f.store.Get(rec.ID)
	assert.Equal(t, "n", orig.Field(col.ID).AsText())

	_, ok = f.store.Duplicate("t_missing", actor)
	assert.False(t, ok)
}

func TestDeleteKeepsActivity(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	f.store.Upsert(rec.ID, "title", types.Text("x"), actor)

	assert.True(t, f.store.Delete(rec.ID))
	assert.False(t, f.store.Delete(rec.ID))
	assert.Zero(t, f.store.Len())
	assert.Len(t, f.store.ActivityFeed(rec.ID, 0), 1)
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	a := f.store.Create(actor)
	b := f.store.Create(actor)
	c := f.store.Create(actor)

	order := func() []string {
		var ids []string
		for _, r := range f.store.Records() {
			ids = append(ids, r.ID)
		}
		return ids
	}

	require.True(t, f.store.Reorder(c.ID, a.ID))
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, order())

	require.True(t, f.store.MoveTo(c.ID, 99))
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, order())

	assert.False(t, f.store.Reorder("t_missing", a.ID))
	assert.Empty(t, f.store.Activity(), "reordering is not logged")
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)

	_, err := f.store.AddComment(rec.ID, "   ", actor)
	assert.ErrorIs(t, err, types.ErrInvalidContent)
	_, err = f.store.AddComment("t_missing", "hi", actor)
	assert.ErrorIs(t, err, types.ErrNotFound)

	c, err := f.store.AddComment(rec.ID, " hi ", actor)
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Text)
	got, _ := f.store.Get(rec.ID)
	assert.Equal(t, []types.Comment{c}, got.Comments)
}

func TestAssignToSelf(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create("owner@x.com")

	got, changed := f.store.AssignToSelf(rec.ID, actor)
	require.True(t, changed)
	assert.Equal(t, actor, got.AssigneeEmail)
	assert.Equal(t, "assignee", f.store.Activity()[0].Field)

	_, changed = f.store.AssignToSelf(rec.ID, "")
	assert.False(t, changed)
}

func TestStripField(t *testing.T) {
	f := newFixture(t)
	a := f.store.Create(actor)
	f.store.Create(actor)
	col, _, _ := f.reg.Add("Notes", types.ColumnText)
	f.store.Upsert(a.ID, col.ID, types.Text("x"), actor)

	assert.Equal(t, 1, f.store.StripField(col.ID))
	got, _ := f.store.Get(a.ID)
	assert.True(t, got.Field(col.ID).IsNull())
}

func TestActivityFeedNewestFirst(t *testing.T) {
	f := newFixture(t)
	rec := f.store.Create(actor)
	for _, title := range []string{"a", "b", "c"} {
		f.store.Upsert(rec.ID, "title", types.Text(title), actor)
	}

	feed := f.store.ActivityFeed("", 2)
	require.Len(t, feed, 2)
	assert.Equal(t, "c", feed[0].After.AsText())
	assert.Equal(t, "b", feed[1].After.AsText())
}

func TestReplaceAndSnapshot(t *testing.T) {
	f := newFixture(t)
	done := f.clock
	recs := []types.Record{{ID: "t_1", Title: "x", Status: "done", CompletedAt: &done}}

	f.store.Replace(recs)
	recs[0].Title = "mutated"

	snap := f.store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "x", snap[0].Title)

	f.reg.SetTerminalStatus("todo")
	f.store.RecomputeCompletion()
	got, _ := f.store.Get("t_1")
	assert.Nil(t, got.CompletedAt)
}

func TestValueOfDerivedColumns(t *testing.T) {
	rec := &types.Record{
		ID:        "t_1",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		CreatedBy: actor,
		Fields:    map[string]types.FieldValue{"fld_x": types.Text("v")},
	}

	n, _ := ValueOf(rec, types.Column{Type: types.ColumnAutonumber}, 4).AsNumber()
	assert.Equal(t, 5.0, n)
	assert.Equal(t, "2024-01-02T03:04:05Z", ValueOf(rec, types.Column{Type: types.ColumnCreatedTime}, 0).AsText())
	assert.Equal(t, "2024-01-02T03:04:05Z", ValueOf(rec, types.Column{Role: types.RoleUpdatedAt}, 0).AsText(), "falls back to createdAt")
	assert.True(t, ValueOf(rec, types.Column{Type: types.ColumnLastModifiedBy}, 0).IsNull())
	assert.Equal(t, actor, ValueOf(rec, types.Column{Type: types.ColumnCreatedBy}, 0).AsText())
	assert.Equal(t, "v", ValueOf(rec, types.Column{ID: "fld_x", Type: types.ColumnText}, 0).AsText())
}
