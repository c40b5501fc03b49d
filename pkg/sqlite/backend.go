// Package sqlite exposes the local SQLite workspace store to programs outside
// this module.
package sqlite

import (
	"github.com/moesafa-mgf/genie-haus/internal/sqlite"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// NewBackend creates a detached SQLite store. Attach it before use:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/genie",
//	})
//	defer store.Detach()
func NewBackend() types.LocalStore {
	return sqlite.NewBackend()
}
