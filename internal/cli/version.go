package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the genie release, overridden at link time with
// -ldflags "-X github.com/moesafa-mgf/genie-haus/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/moesafa-mgf/genie-haus"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the genie version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "genie v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
