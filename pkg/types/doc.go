// Package types defines the entity types of the record engine (columns,
// records, activity entries, grids and filter sets), the persisted workspace
// document, the boundary interfaces to the remote store and staff directory,
// and the standard errors shared by every package.
package types
