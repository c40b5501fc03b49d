// Package config loads genie settings from config.yaml, GENIE_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/moesafa-mgf/genie-haus/internal/paths"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "GENIE"
)

// Config keys.
const (
	KeyBackend        = "backend"
	KeyDataDir        = "data_dir"
	KeyDatabaseURL    = "database_url"
	KeyRemoteURL      = "remote_url"
	KeyTenant         = "tenant"
	KeyWorkspace      = "workspace"
	KeyActor          = "actor"
	KeyPushDebounce   = "sync.push_debounce"
	KeyPullInterval   = "sync.pull_interval"
	KeyTerminalStatus = "terminal_status"
	KeyLogDevelopment = "log.development"
	KeyListen         = "server.listen"
	KeyAllowedOrigins = "server.allowed_origins"
)

// Defaults.
const (
	DefaultBackend = types.BackendSQLite
	DefaultListen  = ":8080"
)

// Settings is the resolved configuration of one CLI invocation.
type Settings struct {
	Store          types.Config
	Tenant         string
	Workspace      string
	Actor          string
	LogDevelopment bool
	Listen         string
	AllowedOrigins []string
}

// ErrTenantMissing is returned by RequireTarget when no tenant is configured.
var ErrTenantMissing = errors.New("tenant is not configured (set tenant in config.yaml, GENIE_TENANT or --tenant)")

// ErrWorkspaceMissing is returned by RequireTarget when no workspace is configured.
var ErrWorkspaceMissing = errors.New("workspace is not configured (set workspace in config.yaml, GENIE_WORKSPACE or --workspace)")

// RequireTarget checks that a tenant and workspace are set.
func (s Settings) RequireTarget() error {
	if s.Tenant == "" {
		return ErrTenantMissing
	}
	if s.Workspace == "" {
		return ErrWorkspaceMissing
	}
	return nil
}

// fileDefaults is the shape of the config.yaml written on first run.
type fileDefaults struct {
	Backend        string `yaml:"backend"`
	Tenant         string `yaml:"tenant"`
	Workspace      string `yaml:"workspace"`
	Actor          string `yaml:"actor"`
	TerminalStatus string `yaml:"terminal_status"`
	Sync           struct {
		PushDebounce string `yaml:"push_debounce"`
		PullInterval string `yaml:"pull_interval"`
	} `yaml:"sync"`
	Log struct {
		Development bool `yaml:"development"`
	} `yaml:"log"`
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
}

const defaultHeader = `# genie configuration
#
# backend: sqlite | postgres | http | memory
# data_dir (sqlite), database_url (postgres) and remote_url (http) select
# where workspace documents live. Every key can be overridden with a GENIE_
# environment variable, e.g. GENIE_SYNC_PULL_INTERVAL=10s.

`

// DefaultYAML renders the default config.yaml.
func DefaultYAML() ([]byte, error) {
	var d fileDefaults
	d.Backend = DefaultBackend
	d.TerminalStatus = types.DefaultTerminalStatus
	d.Sync.PushDebounce = types.DefaultPushDebounce.String()
	d.Sync.PullInterval = types.DefaultPullInterval.String()
	d.Server.Listen = DefaultListen

	body, err := yaml.Marshal(&d)
	if err != nil {
		return nil, err
	}
	return append([]byte(defaultHeader), body...), nil
}

// Load reads config.yaml from configDir. It creates the directory and a
// default config.yaml on first run. A config.yaml removed after that is not
// an error.
func Load(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, DefaultBackend)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyRemoteURL, "")
	v.SetDefault(KeyTenant, "")
	v.SetDefault(KeyWorkspace, "")
	v.SetDefault(KeyActor, "")
	v.SetDefault(KeyPushDebounce, types.DefaultPushDebounce)
	v.SetDefault(KeyPullInterval, types.DefaultPullInterval)
	v.SetDefault(KeyTerminalStatus, types.DefaultTerminalStatus)
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyListen, DefaultListen)
	v.SetDefault(KeyAllowedOrigins, []string{"*"})
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	content, err := DefaultYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// Resolve turns a loaded viper instance into validated Settings. dataDirFlag
// is the --data-dir flag value, which outranks every other source.
func Resolve(v *viper.Viper, dataDirFlag string) (Settings, error) {
	s := Settings{
		Store: types.Config{
			Backend:        strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
			DatabaseURL:    v.GetString(KeyDatabaseURL),
			RemoteURL:      v.GetString(KeyRemoteURL),
			PushDebounce:   v.GetDuration(KeyPushDebounce),
			PullInterval:   v.GetDuration(KeyPullInterval),
			TerminalStatus: v.GetString(KeyTerminalStatus),
		},
		Tenant:         strings.TrimSpace(v.GetString(KeyTenant)),
		Workspace:      strings.TrimSpace(v.GetString(KeyWorkspace)),
		Actor:          strings.TrimSpace(v.GetString(KeyActor)),
		LogDevelopment: v.GetBool(KeyLogDevelopment),
		Listen:         v.GetString(KeyListen),
		AllowedOrigins: v.GetStringSlice(KeyAllowedOrigins),
	}

	if s.Store.Backend == types.BackendSQLite {
		dir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(KeyDataDir))
		if err != nil {
			return Settings{}, fmt.Errorf("resolve data dir: %w", err)
		}
		s.Store.DataDir = dir
	}

	s.Store = s.Store.WithDefaults()
	if err := s.Store.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}
