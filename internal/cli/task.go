package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moesafa-mgf/genie-haus/internal/query"
	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks", "t"},
		Short:   "Create, list and edit task records",
	}
	cmd.AddCommand(
		newTaskAddCmd(),
		newTaskListCmd(),
		newTaskShowCmd(),
		newTaskSetCmd(),
		newTaskDeleteCmd(),
		newTaskDupCmd(),
		newTaskMoveCmd(),
		newTaskCommentCmd(),
		newTaskAssignMeCmd(),
	)
	return cmd
}

// findRecord returns the record with id or a user error.
func findRecord(ws *workspace.Workspace, id string) (*types.Record, error) {
	rec, ok := ws.Record(id)
	if !ok {
		return nil, userError("task %q not found", id)
	}
	return rec, nil
}

// findColumn returns the column referenced by id or label or a user error.
func findColumn(ws *workspace.Workspace, ref string) (types.Column, error) {
	col, ok := ws.FindColumn(ref)
	if !ok {
		return types.Column{}, userError("column %q not found", ref)
	}
	return col, nil
}

// writeField writes input into one column of a record.
func writeField(ws *workspace.Workspace, id string, col types.Column, input, actor string) error {
	if !col.Writable() {
		return userError("column %q is read-only", col.Label)
	}
	value := cellValue(col, input)
	if col.Role == types.RoleStatus && strings.TrimSpace(input) != "" {
		status, err := statusID(ws, strings.TrimSpace(input))
		if err != nil {
			return err
		}
		value = types.Text(status)
	}
	ws.MutateField(id, col.ID, value, actor)
	return nil
}

// parseAssignments splits repeated "column=value" flags.
func parseAssignments(ws *workspace.Workspace, items []string) ([]types.Column, []string, error) {
	cols := make([]types.Column, 0, len(items))
	values := make([]string, 0, len(items))
	for _, item := range items {
		ref, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, nil, userError("invalid --set %q (expected column=value)", item)
		}
		col, err := findColumn(ws, strings.TrimSpace(ref))
		if err != nil {
			return nil, nil, err
		}
		if !col.Writable() {
			return nil, nil, userError("column %q is read-only", col.Label)
		}
		cols = append(cols, col)
		values = append(values, value)
	}
	return cols, values, nil
}

func newTaskAddCmd() *cobra.Command {
	var (
		status   string
		assignee string
		sets     []string
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Long: "Create a task owned by the actor. It starts in the first status and is\n" +
			"assigned to the actor unless --status or --assignee say otherwise.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				actor, err := s.actor()
				if err != nil {
					return err
				}
				cols, values, err := parseAssignments(s.ws, sets)
				if err != nil {
					return err
				}
				statusOpt := ""
				if status != "" {
					if statusOpt, err = statusID(s.ws, status); err != nil {
						return err
					}
				}

				rec := s.ws.CreateRecord(actor)
				if len(args) == 1 {
					if col, ok := roleColumn(s.ws, types.RoleTitle); ok {
						s.ws.MutateField(rec.ID, col.ID, types.Text(args[0]), actor)
					}
				}
				if statusOpt != "" {
					if col, ok := roleColumn(s.ws, types.RoleStatus); ok {
						s.ws.MutateField(rec.ID, col.ID, types.Text(statusOpt), actor)
					}
				}
				if cmd.Flags().Changed("assignee") {
					if col, ok := roleColumn(s.ws, types.RoleAssignee); ok {
						s.ws.MutateField(rec.ID, col.ID, types.Text(strings.TrimSpace(assignee)), actor)
					}
				}
				for i, col := range cols {
					s.ws.MutateField(rec.ID, col.ID, cellValue(col, values[i]), actor)
				}

				rec, _ = s.ws.Record(rec.ID)
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "initial status (id or label)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee email (empty to leave unassigned)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value, repeatable")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		ff        filterFlags
		board     bool
		dashboard bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks through the current grid or ad hoc filters",
		Long: "List tasks. Without view flags the current grid's filters and grouping\n" +
			"apply. Any view flag replaces them for this listing only.\n\n" +
			"Examples:\n" +
			"  genie task list --status \"In Progress\" --group-by assignee\n" +
			"  genie task list --where \"Priority is High\" --where \"Due before 2024-06-01\"\n" +
			"  genie task list --board",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				out := cmd.OutOrStdout()
				switch {
				case dashboard:
					return printDashboard(out, s.ws.Dashboard())
				case board:
					return printBoard(out, s.ws, s.ws.Board())
				}

				groups := s.ws.View()
				if ff.set() {
					fs, err := ff.build(s.ws)
					if err != nil {
						return err
					}
					groups = s.ws.Query(fs)
				}
				return printGroups(out, s.ws, groups)
			})
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&board, "board", false, "show one lane per status")
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "show created and completed counts per day")
	cmd.MarkFlagsMutuallyExclusive("board", "dashboard")
	return cmd
}

type groupJSON struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Records []*types.Record `json:"tasks"`
}

func printGroups(w io.Writer, ws *workspace.Workspace, groups []query.Group) error {
	if flags.jsonMode {
		out := make([]groupJSON, 0, len(groups))
		for _, g := range groups {
			out = append(out, groupJSON{Key: g.Key, Label: g.Label, Records: g.Records})
		}
		return printJSON(w, out)
	}
	if len(groups) == 0 {
		fmt.Fprintln(w, "No tasks")
		return nil
	}
	for i, g := range groups {
		if g.Label != "" {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s (%d)\n", g.Label, len(g.Records))
		}
		writeRecords(w, ws, g.Records)
	}
	return nil
}

type laneJSON struct {
	Status  types.Option    `json:"status"`
	Records []*types.Record `json:"tasks"`
}

func printBoard(w io.Writer, ws *workspace.Workspace, lanes []query.Lane) error {
	if flags.jsonMode {
		out := make([]laneJSON, 0, len(lanes))
		for _, l := range lanes {
			out = append(out, laneJSON{Status: l.Status, Records: l.Records})
		}
		return printJSON(w, out)
	}
	for i, l := range lanes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", l.Status.Label, len(l.Records))
		for _, r := range l.Records {
			fmt.Fprintf(w, "  %s  %s  %s\n", r.ID, r.Title, r.AssigneeEmail)
		}
	}
	return nil
}

func printDashboard(w io.Writer, d query.DashboardData) error {
	if flags.jsonMode {
		return printJSON(w, map[string]query.DayCounts{
			"created":   d.CreatedByDay,
			"completed": d.CompletedByDay,
		})
	}
	tw := newTable(w)
	row(tw, "DAY", "KIND", "ASSIGNEE", "COUNT")
	for _, series := range []struct {
		kind   string
		counts query.DayCounts
	}{{"created", d.CreatedByDay}, {"completed", d.CompletedByDay}} {
		for _, day := range series.counts.Days() {
			for _, who := range sortedKeys(series.counts[day]) {
				row(tw, day, series.kind, who, fmt.Sprint(series.counts[day][who]))
			}
		}
	}
	return tw.Flush()
}

func newTaskShowCmd() *cobra.Command {
	var activity int
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field, comment and recent activity of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				rec, err := findRecord(s.ws, args[0])
				if err != nil {
					return err
				}
				feed := s.ws.ActivityFeed(rec.ID, activity)
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, map[string]any{
						"task":     rec,
						"activity": feed,
					})
				}

				tw := newTable(out)
				row(tw, "ID", rec.ID)
				for _, col := range s.ws.Columns() {
					row(tw, col.Label, displayValue(s.ws, rec, col))
				}
				row(tw, "Created", formatTime(rec.CreatedAt)+" "+rec.CreatedBy)
				if rec.CompletedAt != nil {
					row(tw, "Completed", formatTime(*rec.CompletedAt))
				}
				tw.Flush()

				if len(rec.Comments) > 0 {
					fmt.Fprintf(out, "\nComments (%d)\n", len(rec.Comments))
					for _, c := range rec.Comments {
						fmt.Fprintf(out, "  [%s] %s: %s\n", formatTime(c.Timestamp), c.User, c.Text)
					}
				}
				if len(feed) > 0 {
					fmt.Fprintln(out, "\nActivity")
					writeActivity(out, s.ws, feed)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&activity, "activity", 10, "number of activity entries to show (0 for all)")
	return cmd
}

func newTaskSetCmd() *cobra.Command {
	var clearField bool
	cmd := &cobra.Command{
		Use:   "set <id> <column> [value]",
		Short: "Set one field of a task",
		Long: "Set one field of a task. The column is an id or label. Select columns\n" +
			"take option labels; multi-select values are comma separated.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 && !clearField {
				return userError("value required (or pass --clear)")
			}
			return withSession(cmd, func(s *session) error {
				if _, err := findRecord(s.ws, args[0]); err != nil {
					return err
				}
				col, err := findColumn(s.ws, args[1])
				if err != nil {
					return err
				}
				input := ""
				if len(args) == 3 {
					input = args[2]
				}
				if clearField {
					if !col.Writable() {
						return userError("column %q is read-only", col.Label)
					}
					s.ws.MutateField(args[0], col.ID, types.Null(), s.settings.Actor)
				} else if err := writeField(s.ws, args[0], col, input, s.settings.Actor); err != nil {
					return err
				}
				rec, _ := s.ws.Record(args[0])
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s = %s\n", rec.ID, col.Label, displayValue(s.ws, rec, col))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearField, "clear", false, "clear the field")
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete tasks (their activity is kept)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				for _, id := range args {
					if !s.ws.DeleteRecord(id) {
						return userError("task %q not found", id)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

func newTaskDupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dup <id>",
		Short: "Duplicate a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				rec, ok := s.ws.DuplicateRecord(args[0], s.settings.Actor)
				if !ok {
					return userError("task %q not found", args[0])
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}
}

func newTaskMoveCmd() *cobra.Command {
	var (
		to     int
		before string
	)
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Reorder a task",
		Long: "Move a task to a zero-based position (--to) or into the position of\n" +
			"another task (--before).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toSet := cmd.Flags().Changed("to")
			if toSet == (before != "") {
				return userError("exactly one of --to or --before is required")
			}
			return withSession(cmd, func(s *session) error {
				var ok bool
				if toSet {
					ok = s.ws.MoveRecord(args[0], to)
				} else {
					if _, err := findRecord(s.ws, before); err != nil {
						return err
					}
					ok = s.ws.ReorderRecord(args[0], before)
				}
				if !ok {
					if _, err := findRecord(s.ws, args[0]); err != nil {
						return err
					}
				}
				writeRecords(cmd.OutOrStdout(), s.ws, s.ws.Records())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "zero-based target position")
	cmd.Flags().StringVar(&before, "before", "", "id of the task whose position to take")
	return cmd
}

func newTaskCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Add a comment to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				if _, err := findRecord(s.ws, args[0]); err != nil {
					return err
				}
				c, err := s.ws.AddComment(args[0], strings.Join(args[1:], " "), s.settings.Actor)
				if err != nil {
					return userError("add comment: %w", err)
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), c)
				}
				fmt.Fprintln(cmd.OutOrStdout(), c.ID)
				return nil
			})
		},
	}
}

func newTaskAssignMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign-me <id>",
		Short: "Assign a task to the actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				actor, err := s.actor()
				if err != nil {
					return err
				}
				if _, err := findRecord(s.ws, args[0]); err != nil {
					return err
				}
				rec, _ := s.ws.AssignToSelf(args[0], actor)
				if rec == nil {
					rec, _ = s.ws.Record(args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s assigned to %s\n", rec.ID, rec.AssigneeEmail)
				return nil
			})
		},
	}
}
