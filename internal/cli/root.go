// Package cli implements the genie command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moesafa-mgf/genie-haus/internal/config"
	"github.com/moesafa-mgf/genie-haus/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
	backend   string
	tenant    string
	workspace string
	actor     string
}

var flags rootFlags

// flagKeys maps the persistent flags that override config.yaml to their keys.
var flagKeys = map[string]string{
	"backend":   config.KeyBackend,
	"tenant":    config.KeyTenant,
	"workspace": config.KeyWorkspace,
	"actor":     config.KeyActor,
}

// NewRootCmd creates the top-level "genie" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "genie",
		Short: "Spreadsheet-style task workspaces for CRM locations",
		Long: "Genie manages task records with a user-editable column schema,\n" +
			"filtered and grouped views, and a shared workspace document synced\n" +
			"to a remote store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory for the sqlite backend")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log sync activity to stderr")
	pf.StringVar(&flags.backend, "backend", "", "store backend: sqlite, postgres, http or memory")
	pf.StringVar(&flags.tenant, "tenant", "", "tenant (CRM location) id")
	pf.StringVarP(&flags.workspace, "workspace", "w", "", "workspace id")
	pf.StringVar(&flags.actor, "actor", "", "email recorded on changes")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newTaskCmd())
	root.AddCommand(newColumnCmd())
	root.AddCommand(newGridCmd())
	root.AddCommand(newActivityCmd())
	root.AddCommand(newStaffCmd())
	root.AddCommand(newRoleCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "genie:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// cliError carries the exit code of a failed command.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

// userError reports bad input: unknown ids, invalid values, missing config.
func userError(format string, args ...any) error {
	return &cliError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// sysError reports a failure of the environment: storage, network, files.
func sysError(format string, args ...any) error {
	return &cliError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by a command to a process exit code.
// Errors cobra raises itself (unknown flags, wrong arity) are user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}

// loadViper resolves the config directory and loads config.yaml with the
// persistent flags bound over it.
func loadViper(cmd *cobra.Command) (*viper.Viper, string, error) {
	dir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, "", sysError("resolve config dir: %w", err)
	}
	v, err := config.Load(dir)
	if err != nil {
		return nil, "", sysError("load config: %w", err)
	}
	pf := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, pf.Lookup(name)); err != nil {
			return nil, "", sysError("bind --%s: %w", name, err)
		}
	}
	return v, dir, nil
}

// loadSettings returns the resolved settings of this invocation.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	v, _, err := loadViper(cmd)
	if err != nil {
		return config.Settings{}, err
	}
	return resolveSettings(v)
}

func resolveSettings(v *viper.Viper) (config.Settings, error) {
	s, err := config.Resolve(v, flags.dataDir)
	if err != nil {
		return config.Settings{}, userError("%w", err)
	}
	return s, nil
}
