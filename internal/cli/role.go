package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moesafa-mgf/genie-haus/internal/config"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage advisory workspace roles",
	}
	cmd.AddCommand(newRoleSetCmd())
	return cmd
}

func newRoleSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <email> <role>",
		Short: "Set the role a user sees in the current workspace",
		Long: "Set the role returned to a user when they load the current workspace.\n" +
			"Roles only shape the interface; the store never enforces them.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, role := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if email == "" || role == "" {
				return userError("email and role must not be empty")
			}
			return withAdmin(cmd, func(ctx context.Context, s config.Settings, st *storeHandle) error {
				if err := s.RequireTarget(); err != nil {
					return userError("%w", err)
				}
				if st.admin == nil {
					return userError("backend %q cannot edit roles", s.Store.Backend)
				}
				if err := st.admin.SetRole(ctx, s.Tenant, s.Workspace, email, role); err != nil {
					return sysError("set role: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s in %s\n", email, role, s.Workspace)
				return nil
			})
		},
	}
}
