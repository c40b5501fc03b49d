package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func newColumnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "column",
		Aliases: []string{"columns", "col"},
		Short:   "Edit the workspace column schema",
	}
	cmd.AddCommand(
		newColumnListCmd(),
		newColumnAddCmd(),
		newColumnInsertCmd(),
		newColumnRenameCmd(),
		newColumnRetypeCmd(),
		newColumnDeleteCmd(),
		newColumnMoveCmd(),
		newColumnDupCmd(),
		newColumnOptionsCmd(),
	)
	return cmd
}

func printColumns(w io.Writer, cols []types.Column) error {
	if flags.jsonMode {
		return printJSON(w, cols)
	}
	tw := newTable(w)
	row(tw, "ID", "LABEL", "TYPE", "ROLE", "OPTIONS")
	for _, c := range cols {
		labels := make([]string, 0, len(c.Options))
		for _, o := range c.Options {
			labels = append(labels, o.Label)
		}
		row(tw, c.ID, c.Label, string(c.Type), string(c.Role), strings.Join(labels, ", "))
	}
	return tw.Flush()
}

// columnError maps a schema error to a user error.
func columnError(op string, err error) error {
	return userError("%s: %w", op, err)
}

func parseColumnType(s string) (types.ColumnType, error) {
	t := types.ColumnType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", userError("%w: %q", types.ErrInvalidColumnType, s)
	}
	return t, nil
}

func newColumnListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List columns in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				return printColumns(cmd.OutOrStdout(), s.ws.Columns())
			})
		},
	}
}

func newColumnAddCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseColumnType(typ)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				col, _, err := s.ws.AddColumn(args[0], t)
				if err != nil {
					return columnError("add column", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), col.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(types.ColumnText), "column type")
	return cmd
}

func newColumnInsertCmd() *cobra.Command {
	var left bool
	cmd := &cobra.Command{
		Use:   "insert <column>",
		Short: `Insert a "New Field" text column beside another column`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				rel, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				col, _, err := s.ws.InsertColumn(rel.ID, left)
				if err != nil {
					return columnError("insert column", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", col.ID, col.Label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&left, "left", false, "insert to the left instead of the right")
	return cmd
}

func newColumnRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <column> <label>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				cols, err := s.ws.RenameColumn(col.ID, args[1])
				if err != nil {
					return columnError("rename column", err)
				}
				return printColumns(cmd.OutOrStdout(), cols)
			})
		},
	}
}

func newColumnRetypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retype <column> <type>",
		Short: "Change a column's type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseColumnType(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				cols, err := s.ws.RetypeColumn(col.ID, t)
				if err != nil {
					return columnError("retype column", err)
				}
				return printColumns(cmd.OutOrStdout(), cols)
			})
		},
	}
}

func newColumnDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <column>",
		Aliases: []string{"rm"},
		Short:   "Delete a column and strip its values from every task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				cols, err := s.ws.DeleteColumn(col.ID)
				if err != nil {
					return columnError("delete column", err)
				}
				return printColumns(cmd.OutOrStdout(), cols)
			})
		},
	}
}

func newColumnMoveCmd() *cobra.Command {
	var (
		by     int
		before string
	)
	cmd := &cobra.Command{
		Use:   "move <column>",
		Short: "Reorder a column",
		Long: "Move a column by a signed number of places (--by) or into the position\n" +
			"of another column (--before).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (by != 0) == (before != "") {
				return userError("exactly one of --by or --before is required")
			}
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				var cols []types.Column
				if by != 0 {
					cols, err = s.ws.MoveColumn(col.ID, by)
				} else {
					target, ferr := findColumn(s.ws, before)
					if ferr != nil {
						return ferr
					}
					cols, err = s.ws.ReorderColumn(col.ID, target.ID)
				}
				if err != nil {
					return columnError("move column", err)
				}
				return printColumns(cmd.OutOrStdout(), cols)
			})
		},
	}
	cmd.Flags().IntVar(&by, "by", 0, "places to move; negative moves left")
	cmd.Flags().StringVar(&before, "before", "", "column whose position to take")
	return cmd
}

func newColumnDupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dup <column>",
		Short: "Duplicate a column definition (values are not copied)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				dup, _, err := s.ws.DuplicateColumn(col.ID)
				if err != nil {
					return columnError("duplicate column", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dup.ID, dup.Label)
				return nil
			})
		},
	}
}

func newColumnOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options <column> <label>...",
		Short: "Replace the options of a select column",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				col, err := findColumn(s.ws, args[0])
				if err != nil {
					return err
				}
				if !col.Type.IsSelect() {
					return userError("column %q is not a select column", col.Label)
				}
				cols, err := s.ws.SetColumnOptions(col.ID, args[1:])
				if err != nil {
					return columnError("set options", err)
				}
				return printColumns(cmd.OutOrStdout(), cols)
			})
		},
	}
}
