// Package paths resolves the configuration and data directories of genie.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the platform base directories.
const AppName = "genie"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "GENIE_CONFIG_DIR"
	EnvDataDir   = "GENIE_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// base returns the per-user base directory. On Linux it honours xdgEnv and
// falls back to ~/<linuxFallback...>; elsewhere it is os.UserConfigDir.
func base(xdgEnv string, linuxFallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		return platformDir.userConfigDir()
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return xdg, nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, linuxFallback...)...), nil
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/genie (fallback ~/.config/genie)
// macOS:   ~/Library/Application Support/genie
// Windows: %APPDATA%/genie
func DefaultConfigDir() (string, error) {
	dir, err := base("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/genie (fallback ~/.local/share/genie)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	dir, err := base("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// GENIE_CONFIG_DIR, then DefaultConfigDir. Overrides are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory: flag, then GENIE_DATA_DIR, then
// the data_dir value from config.yaml, then DefaultDataDir.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, os.Getenv(EnvDataDir), configValue} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	return DefaultDataDir()
}
