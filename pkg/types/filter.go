package types

import (
	"encoding/json"
	"strings"
)

// Operator is the comparison a condition applies.
type Operator string

// Condition operators.
const (
	OpContains Operator = "contains"
	OpIs       Operator = "is"
	OpIsNot    Operator = "is_not"
	OpIsEmpty  Operator = "is_empty"
	OpNotEmpty Operator = "not_empty"
	OpOn       Operator = "on"
	OpBefore   Operator = "before"
	OpAfter    Operator = "after"
)

// Condition is one (field, operator, value) filter clause. Conditions in a
// filter set are ANDed.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// UnmarshalJSON accepts the older "columnId" spelling of the field key and
// defaults a missing operator to contains.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var aux struct {
		Field    string   `json:"field"`
		ColumnID string   `json:"columnId"`
		Operator Operator `json:"operator"`
		Value    any      `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Field = aux.Field
	if c.Field == "" {
		c.Field = aux.ColumnID
	}
	c.Operator = aux.Operator
	if c.Operator == "" {
		c.Operator = OpContains
	}
	switch v := aux.Value.(type) {
	case nil:
		c.Value = ""
	case string:
		c.Value = v
	default:
		c.Value = FieldValueOf(v).String()
	}
	return nil
}

// FieldValueOf converts a decoded JSON value into a FieldValue.
func FieldValueOf(v any) FieldValue {
	b, err := json.Marshal(v)
	if err != nil {
		return Null()
	}
	var out FieldValue
	if err := out.UnmarshalJSON(b); err != nil {
		return Null()
	}
	return out
}

// Group-by keys. A field grouping is written as GroupByFieldPrefix + column id.
const (
	GroupByNone        = ""
	GroupByStatus      = "status"
	GroupByAssignee    = "assignee"
	GroupByFieldPrefix = "field:"
)

// GroupByField returns the group-by key for a custom column.
func GroupByField(columnID string) string {
	return GroupByFieldPrefix + columnID
}

// GroupByColumn extracts the column id from a "field:<id>" key.
func GroupByColumn(groupBy string) (string, bool) {
	if !strings.HasPrefix(groupBy, GroupByFieldPrefix) {
		return "", false
	}
	return strings.TrimPrefix(groupBy, GroupByFieldPrefix), true
}

// FilterSet is the active filter and grouping configuration. The four scalar
// filters predate Conditions and are still honored for older saved grids.
type FilterSet struct {
	AssigneeEmail string      `json:"assigneeEmail"`
	Status        string      `json:"status"`
	Text          string      `json:"text"`
	DateFrom      string      `json:"dateFrom"`
	DateTo        string      `json:"dateTo"`
	GroupBy       string      `json:"groupBy"`
	Conditions    []Condition `json:"conditions"`
}

// DefaultFilters returns an empty filter set with a non-nil condition list.
func DefaultFilters() FilterSet {
	return FilterSet{Conditions: []Condition{}}
}

// Clone returns a deep copy of f.
func (f FilterSet) Clone() FilterSet {
	out := f
	out.Conditions = append([]Condition{}, f.Conditions...)
	return out
}

// IsZero reports whether f neither filters nor groups.
func (f FilterSet) IsZero() bool {
	return f.AssigneeEmail == "" && f.Status == "" && f.Text == "" &&
		f.DateFrom == "" && f.DateTo == "" && f.GroupBy == "" && len(f.Conditions) == 0
}

// Grid is a named, saved filter/group preset.
type Grid struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Filters FilterSet `json:"filters"`
}
