package types

import (
	"errors"
	"time"
)

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
	BackendMemory   = "memory"
)

// Sync cadence defaults.
const (
	DefaultPushDebounce   = 500 * time.Millisecond
	DefaultPullInterval   = 5 * time.Second
	DefaultTerminalStatus = "done"
)

// Config selects the remote store and tunes the sync controller.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	RemoteURL   string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`

	PushDebounce   time.Duration `json:"push_debounce" yaml:"push_debounce"`
	PullInterval   time.Duration `json:"pull_interval" yaml:"pull_interval"`
	TerminalStatus string        `json:"terminal_status" yaml:"terminal_status"`
}

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrDatabaseURLMissing  = errors.New("postgres backend requires database_url")
	ErrRemoteURLMissing    = errors.New("http backend requires remote_url")
	ErrPushDebounceInvalid = errors.New("push debounce must be positive")
	ErrPullIntervalInvalid = errors.New("pull interval must be positive")
	ErrTerminalStatusEmpty = errors.New("terminal status must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendHTTP:     true,
	BackendMemory:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}
	if c.Backend == BackendHTTP && c.RemoteURL == "" {
		return ErrRemoteURLMissing
	}
	if c.PushDebounce <= 0 {
		return ErrPushDebounceInvalid
	}
	if c.PullInterval <= 0 {
		return ErrPullIntervalInvalid
	}
	if c.TerminalStatus == "" {
		return ErrTerminalStatusEmpty
	}
	return nil
}

// WithDefaults fills zero sync settings with the package defaults.
func (c Config) WithDefaults() Config {
	if c.PushDebounce == 0 {
		c.PushDebounce = DefaultPushDebounce
	}
	if c.PullInterval == 0 {
		c.PullInterval = DefaultPullInterval
	}
	if c.TerminalStatus == "" {
		c.TerminalStatus = DefaultTerminalStatus
	}
	return c
}
