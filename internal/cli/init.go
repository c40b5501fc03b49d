package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize genie configuration and storage",
		Long: "Create the configuration directory with a default config.yaml, then\n" +
			"open the configured backend once so its storage exists. For postgres\n" +
			"this applies pending migrations.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	v, dir, err := loadViper(cmd)
	if err != nil {
		return err
	}
	settings, err := resolveSettings(v)
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), settings, nopLogger())
	if err != nil {
		return err
	}
	if err := st.close(); err != nil {
		return sysError("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Genie initialized (config: %s, backend: %s)\n", dir, settings.Store.Backend)
	if settings.Store.DataDir != "" {
		fmt.Fprintf(out, "data: %s\n", settings.Store.DataDir)
	}
	return nil
}
