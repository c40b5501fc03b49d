package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func TestNewBackendLifecycle(t *testing.T) {
	store := NewBackend()
	ctx := context.Background()

	_, err := store.LoadState(ctx, "loc", "ws", "")
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer store.Detach()

	saved, err := store.SaveState(ctx, "loc", "ws", "", &types.State{Tasks: []types.Record{{ID: "t_1"}}})
	require.NoError(t, err)
	require.NotNil(t, saved.State)
	assert.Len(t, saved.State.Tasks, 1)
}
