package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moesafa-mgf/genie-haus/internal/config"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// withAdmin opens the configured store for role and staff maintenance. No
// workspace is pulled.
func withAdmin(cmd *cobra.Command, fn func(ctx context.Context, s config.Settings, st *storeHandle) error) (err error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.Tenant == "" {
		return userError("%w", config.ErrTenantMissing)
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, settings, nopLogger())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.close(); err == nil && cerr != nil {
			err = sysError("close store: %w", cerr)
		}
	}()
	return fn(ctx, settings, st)
}

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage the tenant's staff directory",
	}
	cmd.AddCommand(newStaffAddCmd(), newStaffListCmd())
	return cmd
}

func newStaffAddCmd() *cobra.Command {
	var (
		id    string
		name  string
		first string
		last  string
	)
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add or update a staff member",
		Long: "Add or update a staff member. The display name falls back to\n" +
			"\"first last\", then the email.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			if email == "" {
				return userError("email must not be empty")
			}
			return withAdmin(cmd, func(ctx context.Context, s config.Settings, st *storeHandle) error {
				if st.admin == nil {
					return userError("backend %q cannot edit the staff directory", s.Store.Backend)
				}
				m := types.NewStaffMember(id, email, name, first, last)
				if err := st.admin.AddStaff(ctx, s.Tenant, m); err != nil {
					return sysError("add staff: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", m.Name, m.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "CRM user id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	return cmd
}

func newStaffListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the staff directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, s config.Settings, st *storeHandle) error {
				staff, err := st.staff.ListStaff(ctx, s.Tenant)
				if err != nil {
					return sysError("list staff: %w", err)
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"ok":         true,
						"locationId": s.Tenant,
						"count":      len(staff),
						"staff":      staff,
					})
				}
				tw := newTable(cmd.OutOrStdout())
				row(tw, "ID", "EMAIL", "NAME")
				for _, m := range staff {
					row(tw, m.ID, m.Email, m.Name)
				}
				return tw.Flush()
			})
		},
	}
}
