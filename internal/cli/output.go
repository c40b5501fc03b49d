package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// row writes tab-separated cells followed by a newline.
func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

const timeLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// roleColumn returns the column carrying role.
func roleColumn(ws *workspace.Workspace, role types.Role) (types.Column, bool) {
	for _, c := range ws.Columns() {
		if c.Role == role {
			return c, true
		}
	}
	return types.Column{}, false
}

// displayValue renders a record's cell, showing option labels for select
// columns.
func displayValue(ws *workspace.Workspace, rec *types.Record, col types.Column) string {
	v := ws.Value(rec, col.ID)
	if !col.Type.IsSelect() {
		return v.String()
	}
	ids := v.AsList()
	if ids == nil && !v.IsEmpty() {
		ids = []string{v.String()}
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if o, ok := col.Option(id); ok {
			labels = append(labels, o.Label)
		} else {
			labels = append(labels, id)
		}
	}
	return strings.Join(labels, ", ")
}

// statusLabel returns the label of a status id, or the id itself.
func statusLabel(ws *workspace.Workspace, id string) string {
	for _, o := range ws.StatusOptions() {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

// writeRecords prints the summary table of recs.
func writeRecords(w io.Writer, ws *workspace.Workspace, recs []*types.Record) {
	tw := newTable(w)
	row(tw, "ID", "TITLE", "STATUS", "ASSIGNEE", "UPDATED")
	for _, r := range recs {
		row(tw, r.ID, r.Title, statusLabel(ws, r.Status), r.AssigneeEmail, formatTime(r.UpdatedAt))
	}
	tw.Flush()
}

// writeActivity prints activity entries with field ids resolved to labels.
func writeActivity(w io.Writer, ws *workspace.Workspace, entries []types.ActivityEntry) {
	tw := newTable(w)
	row(tw, "TIME", "TASK", "FIELD", "BEFORE", "AFTER", "USER")
	for _, e := range entries {
		row(tw, formatTime(e.Timestamp), e.TaskID, ws.FieldLabel(e.Field), e.Before.String(), e.After.String(), e.User)
	}
	tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
