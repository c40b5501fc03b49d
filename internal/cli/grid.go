package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "grid",
		Aliases: []string{"grids"},
		Short:   "Manage saved views (filters and grouping)",
	}
	cmd.AddCommand(
		newGridListCmd(),
		newGridSaveCmd(),
		newGridSelectCmd(),
		newGridExportCmd(),
		newGridImportCmd(),
	)
	return cmd
}

// findGrid resolves a grid by id or case-insensitive name.
func findGrid(ws *workspace.Workspace, ref string) (types.Grid, error) {
	for _, g := range ws.Grids() {
		if g.ID == ref || strings.EqualFold(g.Name, ref) {
			return g, nil
		}
	}
	return types.Grid{}, userError("grid %q not found", ref)
}

// describeFilters renders a filter set on one line.
func describeFilters(ws *workspace.Workspace, fs types.FilterSet) string {
	var parts []string
	if fs.AssigneeEmail != "" {
		parts = append(parts, "assignee="+fs.AssigneeEmail)
	}
	if fs.Status != "" {
		parts = append(parts, "status="+statusLabel(ws, fs.Status))
	}
	if fs.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", fs.Text))
	}
	if fs.DateFrom != "" || fs.DateTo != "" {
		parts = append(parts, "updated="+fs.DateFrom+".."+fs.DateTo)
	}
	for _, c := range fs.Conditions {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s %s", ws.FieldLabel(c.Field), c.Operator, c.Value)))
	}
	if fs.GroupBy != "" {
		g := fs.GroupBy
		if id, ok := types.GroupByColumn(g); ok {
			g = ws.FieldLabel(id)
		}
		parts = append(parts, "group by "+g)
	}
	return strings.Join(parts, "; ")
}

func newGridListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved grids; * marks the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				grids := s.ws.Grids()
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, grids)
				}
				current := s.ws.CurrentGrid().ID
				tw := newTable(out)
				row(tw, "", "ID", "NAME", "FILTERS")
				for _, g := range grids {
					mark := ""
					if g.ID == current {
						mark = "*"
					}
					row(tw, mark, g.ID, g.Name, describeFilters(s.ws, g.Filters))
				}
				return tw.Flush()
			})
		},
	}
}

func newGridSaveCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a grid and make it current",
		Long: "Save the given view flags as a named grid. Without view flags the\n" +
			"current grid's filters are saved under the new name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				fs := s.ws.Filters()
				if ff.set() {
					var err error
					if fs, err = ff.build(s.ws); err != nil {
						return err
					}
				}
				g, err := s.ws.SaveGrid(args[0], fs)
				if err != nil {
					return userError("save grid: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), g.ID)
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func newGridSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <grid>",
		Short: "Make a saved grid current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				g, err := findGrid(s.ws, args[0])
				if err != nil {
					return err
				}
				s.ws.SelectGrid(g.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "current grid: %s\n", g.Name)
				return nil
			})
		},
	}
}

// gridFile is the YAML document written by "grid export".
type gridFile struct {
	Workspace string      `yaml:"workspace"`
	Grids     []gridEntry `yaml:"grids"`
}

type gridEntry struct {
	Name       string          `yaml:"name"`
	Assignee   string          `yaml:"assignee,omitempty"`
	Status     string          `yaml:"status,omitempty"`
	Text       string          `yaml:"text,omitempty"`
	DateFrom   string          `yaml:"date_from,omitempty"`
	DateTo     string          `yaml:"date_to,omitempty"`
	GroupBy    string          `yaml:"group_by,omitempty"`
	Conditions []conditionYAML `yaml:"conditions,omitempty"`
}

type conditionYAML struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value,omitempty"`
}

func toEntry(g types.Grid) gridEntry {
	e := gridEntry{
		Name:     g.Name,
		Assignee: g.Filters.AssigneeEmail,
		Status:   g.Filters.Status,
		Text:     g.Filters.Text,
		DateFrom: g.Filters.DateFrom,
		DateTo:   g.Filters.DateTo,
		GroupBy:  g.Filters.GroupBy,
	}
	for _, c := range g.Filters.Conditions {
		e.Conditions = append(e.Conditions, conditionYAML{Field: c.Field, Operator: string(c.Operator), Value: c.Value})
	}
	return e
}

func (e gridEntry) filters() types.FilterSet {
	fs := types.DefaultFilters()
	fs.AssigneeEmail = e.Assignee
	fs.Status = e.Status
	fs.Text = e.Text
	fs.DateFrom = e.DateFrom
	fs.DateTo = e.DateTo
	fs.GroupBy = e.GroupBy
	for _, c := range e.Conditions {
		op := types.Operator(c.Operator)
		if op == "" {
			op = types.OpContains
		}
		fs.Conditions = append(fs.Conditions, types.Condition{Field: c.Field, Operator: op, Value: c.Value})
	}
	return fs
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sysError("write %s: %w", path, err)
	}
	return nil
}

func newGridExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved grids as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				doc := gridFile{Workspace: s.ws.ID()}
				for _, g := range s.ws.Grids() {
					doc.Grids = append(doc.Grids, toEntry(g))
				}
				data, err := yaml.Marshal(&doc)
				if err != nil {
					return sysError("marshal grids: %w", err)
				}
				return writeOutput(cmd.OutOrStdout(), output, data)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func newGridImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Save every grid of an exported YAML file as a new grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return userError("read %s: %w", args[0], err)
			}
			var doc gridFile
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return userError("parse %s: %w", args[0], err)
			}
			return withSession(cmd, func(s *session) error {
				for _, e := range doc.Grids {
					g, err := s.ws.SaveGrid(e.Name, e.filters())
					if err != nil {
						return userError("import grid %q: %w", e.Name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", g.ID, g.Name)
				}
				return nil
			})
		},
	}
}
