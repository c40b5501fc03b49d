package types

import "errors"

// Lookup errors.
var (
	ErrNotFound       = errors.New("entity not found")
	ErrNoWorkspace    = errors.New("no workspace selected")
	ErrColumnNotFound = errors.New("column not found")
)

// Validation errors returned at the mutation boundary. State is never
// modified when one of these is returned.
var (
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidContent    = errors.New("content must not be empty")
	ErrInvalidColumnType = errors.New("invalid column type")
	ErrColumnLocked      = errors.New("column is locked")
	ErrReadOnlyColumn    = errors.New("column is read-only")
)

// Remote store errors.
var (
	ErrInvalidTenant    = errors.New("tenant id must not be empty")
	ErrInvalidWorkspace = errors.New("workspace id must not be empty")
	ErrMalformedState   = errors.New("malformed workspace state")
	ErrStoreDetached    = errors.New("store is detached")
	ErrAlreadyAttached  = errors.New("store is already attached")
)
