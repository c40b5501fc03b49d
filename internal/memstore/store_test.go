package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func TestLoadMissingWorkspace(t *testing.T) {
	s := New()

	env, err := s.LoadState(context.Background(), "loc", "ws", "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, env.State)
	assert.Nil(t, env.UpdatedAt)
}

func TestSaveThenLoad(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return at }))
	ctx := context.Background()
	require.NoError(t, s.SetRole(ctx, "loc", "ws", "A@X.com", "admin"))

	st := &types.State{
		Tasks:   []types.Record{{ID: "t_1", Title: "x", Fields: map[string]types.FieldValue{"tags": types.List("a")}}},
		Columns: []types.Column{{ID: "title", Label: "Title", Type: types.ColumnText}},
	}
	saved, err := s.SaveState(ctx, "loc", "ws", "a@x.com", st)
	require.NoError(t, err)
	assert.Equal(t, "admin", saved.Role)
	assert.Equal(t, at, *saved.UpdatedAt)

	st.Tasks[0].Title = "mutated after save"

	env, err := s.LoadState(ctx, "loc", "ws", "b@x.com")
	require.NoError(t, err)
	require.NotNil(t, env.State)
	assert.Equal(t, "x", env.State.Tasks[0].Title)
	assert.Equal(t, []string{"a"}, env.State.Tasks[0].Field("tags").AsList())
	assert.Equal(t, "", env.Role)
	assert.Nil(t, env.State.Activity)
}

func TestValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.LoadState(ctx, "", "ws", "")
	assert.ErrorIs(t, err, types.ErrInvalidTenant)
	_, err = s.SaveState(ctx, "loc", "", "", &types.State{})
	assert.ErrorIs(t, err, types.ErrInvalidWorkspace)
	_, err = s.SaveState(ctx, "loc", "ws", "", nil)
	assert.ErrorIs(t, err, types.ErrMalformedState)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.LoadState(cancelled, "loc", "ws", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaff(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.AddStaff(ctx, "loc", types.StaffMember{ID: "u1", Email: "a@x.com"}))
	require.NoError(t, s.AddStaff(ctx, "loc", types.StaffMember{ID: "u1", Email: "A@x.com", Name: "Ada"}))
	require.NoError(t, s.AddStaff(ctx, "other", types.StaffMember{ID: "u2", Email: "b@x.com", Name: "Bo"}))

	staff, err := s.ListStaff(ctx, "loc")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Ada", staff[0].Name)

	assert.ErrorIs(t, s.AddStaff(ctx, "", types.StaffMember{}), types.ErrInvalidTenant)
}
