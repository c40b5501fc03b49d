package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@host:5432/db", "pgx5://u:p@host:5432/db"},
		{"postgresql://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"pgx5://host/db", "pgx5://host/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in))
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/001_workspace_states.up.sql")
	assert.Contains(t, names, "migrations/002_roles_staff.down.sql")
	assert.Len(t, names, 4)
}
