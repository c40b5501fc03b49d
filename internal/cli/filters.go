package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// filterFlags are the view flags shared by "task list" and "grid save".
type filterFlags struct {
	assignee string
	status   string
	text     string
	from     string
	to       string
	groupBy  string
	where    []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.assignee, "assignee", "", "only records assigned to this email")
	fs.StringVar(&f.status, "status", "", "only records with this status (id or label)")
	fs.StringVar(&f.text, "text", "", "case-insensitive search over title and field values")
	fs.StringVar(&f.from, "from", "", "updated on or after this day (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "updated on or before this day (YYYY-MM-DD)")
	fs.StringVar(&f.groupBy, "group-by", "", "group by status, assignee, none or a column")
	fs.StringArrayVar(&f.where, "where", nil, `condition "<column> <operator> [value]", repeatable`)
}

// set reports whether any view flag was given.
func (f *filterFlags) set() bool {
	return f.assignee != "" || f.status != "" || f.text != "" || f.from != "" ||
		f.to != "" || f.groupBy != "" || len(f.where) > 0
}

// build turns the flags into a filter set with column references resolved
// to ids.
func (f *filterFlags) build(ws *workspace.Workspace) (types.FilterSet, error) {
	fs := types.DefaultFilters()
	fs.AssigneeEmail = strings.TrimSpace(f.assignee)
	fs.Text = f.text
	fs.DateFrom = f.from
	fs.DateTo = f.to

	if f.status != "" {
		id, err := statusID(ws, f.status)
		if err != nil {
			return types.FilterSet{}, err
		}
		fs.Status = id
	}

	groupBy, err := parseGroupBy(ws, f.groupBy)
	if err != nil {
		return types.FilterSet{}, err
	}
	fs.GroupBy = groupBy

	for _, expr := range f.where {
		c, err := parseCondition(ws, expr)
		if err != nil {
			return types.FilterSet{}, err
		}
		fs.Conditions = append(fs.Conditions, c)
	}
	return fs, nil
}

// statusID resolves a status option by id or case-insensitive label.
func statusID(ws *workspace.Workspace, ref string) (string, error) {
	for _, o := range ws.StatusOptions() {
		if o.ID == ref || strings.EqualFold(o.Label, ref) {
			return o.ID, nil
		}
	}
	return "", userError("unknown status %q", ref)
}

// parseGroupBy maps a --group-by value to a group-by key.
func parseGroupBy(ws *workspace.Workspace, ref string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(ref)) {
	case "", "none":
		return types.GroupByNone, nil
	case types.GroupByStatus:
		return types.GroupByStatus, nil
	case types.GroupByAssignee:
		return types.GroupByAssignee, nil
	}
	col, ok := ws.FindColumn(ref)
	if !ok {
		return "", userError("unknown group-by column %q", ref)
	}
	return types.GroupByField(col.ID), nil
}

var operators = map[string]types.Operator{
	string(types.OpContains): types.OpContains,
	string(types.OpIs):       types.OpIs,
	string(types.OpIsNot):    types.OpIsNot,
	string(types.OpIsEmpty):  types.OpIsEmpty,
	string(types.OpNotEmpty): types.OpNotEmpty,
	string(types.OpOn):       types.OpOn,
	string(types.OpBefore):   types.OpBefore,
	string(types.OpAfter):    types.OpAfter,
	"=":                      types.OpIs,
	"!=":                     types.OpIsNot,
	"~":                      types.OpContains,
}

// parseCondition reads "<column> <operator> [value]". The column may be a
// multi-word label; the first operator token ends it.
func parseCondition(ws *workspace.Workspace, expr string) (types.Condition, error) {
	tokens := strings.Fields(expr)
	for i, tok := range tokens {
		op, ok := operators[strings.ToLower(tok)]
		if !ok || i == 0 {
			continue
		}
		ref := strings.Join(tokens[:i], " ")
		col, found := ws.FindColumn(ref)
		if !found {
			return types.Condition{}, userError("unknown column %q in condition %q", ref, expr)
		}
		value := strings.Join(tokens[i+1:], " ")
		if col.Type.IsSelect() {
			value = optionID(col, value)
		}
		return types.Condition{Field: col.ID, Operator: op, Value: value}, nil
	}
	return types.Condition{}, userError("condition %q has no operator (contains, is, is_not, is_empty, not_empty, on, before, after)", expr)
}

// optionID maps an option label to its id. Unknown labels pass through.
func optionID(col types.Column, ref string) string {
	for _, o := range col.Options {
		if o.ID == ref || strings.EqualFold(o.Label, ref) {
			return o.ID
		}
	}
	return ref
}

// cellValue parses user input for a column. Select columns accept option
// labels; multi-select input is comma separated.
func cellValue(col types.Column, input string) types.FieldValue {
	switch col.Type {
	case types.ColumnSingleSelect:
		return types.Text(optionID(col, strings.TrimSpace(input)))
	case types.ColumnMultiSelect:
		items := types.ParseValue(col.Type, input).AsList()
		for i, it := range items {
			items[i] = optionID(col, it)
		}
		return types.List(items...)
	}
	return types.ParseValue(col.Type, input)
}
