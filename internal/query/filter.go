// Package query evaluates filter sets and grouping rules over a record list.
// Every function is pure: inputs are never modified and the record order of
// the input is preserved in the output.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/moesafa-mgf/genie-haus/internal/records"
	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Filter returns the records that pass fs, in input order. The legacy scalar
// filters are applied first, then every condition; conditions are ANDed.
func Filter(recs []*types.Record, reg *schema.Registry, fs types.FilterSet) []*types.Record {
	out := make([]*types.Record, 0, len(recs))
	for i, rec := range recs {
		if !matchesLegacy(rec, fs) {
			continue
		}
		if !matchesConditions(rec, i, reg, fs.Conditions) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesLegacy(rec *types.Record, fs types.FilterSet) bool {
	if fs.AssigneeEmail != "" && rec.AssigneeEmail != fs.AssigneeEmail {
		return false
	}
	if fs.Status != "" && rec.Status != fs.Status {
		return false
	}
	if fs.Text != "" && !containsText(rec, strings.ToLower(fs.Text)) {
		return false
	}
	if fs.DateFrom == "" && fs.DateTo == "" {
		return true
	}
	stamp := rec.UpdatedAt
	if stamp.IsZero() {
		stamp = rec.CreatedAt
	}
	if stamp.IsZero() {
		return false
	}
	day := calendarDay(stamp)
	if fs.DateFrom != "" {
		from, ok := parseDay(fs.DateFrom)
		if !ok || day.Before(from) {
			return false
		}
	}
	if fs.DateTo != "" {
		to, ok := parseDay(fs.DateTo)
		if !ok || day.After(to) {
			return false
		}
	}
	return true
}

// containsText searches the title and every stored field value.
func containsText(rec *types.Record, q string) bool {
	if strings.Contains(strings.ToLower(rec.Title), q) {
		return true
	}
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rec.Fields[k].String())
	}
	return strings.Contains(strings.ToLower(strings.Join(parts, " ")), q)
}

func matchesConditions(rec *types.Record, position int, reg *schema.Registry, conds []types.Condition) bool {
	for _, c := range conds {
		col, ok := resolve(reg, c.Field)
		if !ok {
			return false
		}
		if !Evaluate(records.ValueOf(rec, col, position), col, c) {
			return false
		}
	}
	return true
}

// resolve looks a condition field up in the registry. The legacy built-in
// ids keep resolving to the record slots when the schema no longer lists
// them, so older saved grids stay usable.
func resolve(reg *schema.Registry, field string) (types.Column, bool) {
	if col, ok := reg.Resolve(field); ok {
		return col, true
	}
	if role, ok := types.LegacyRoleIDs[field]; ok {
		col := types.Column{ID: field, Label: field, Type: types.ColumnText, Role: role}
		if role == types.RoleUpdatedAt {
			col.Type = types.ColumnDate
		}
		return col, true
	}
	return types.Column{}, false
}

// Evaluate applies one condition to a value read from column col.
func Evaluate(raw types.FieldValue, col types.Column, c types.Condition) bool {
	op := c.Operator
	if op == "" {
		op = types.OpContains
	}
	switch op {
	case types.OpIsEmpty:
		return raw.IsEmpty()
	case types.OpNotEmpty:
		return !raw.IsEmpty()
	}

	if col.Type.IsDate() || col.Role == types.RoleUpdatedAt {
		switch op {
		case types.OpOn, types.OpBefore, types.OpAfter:
			return compareDates(raw, c.Value, op)
		}
	}

	if raw.Kind() == types.KindList {
		items := raw.AsList()
		switch op {
		case types.OpContains:
			q := strings.ToLower(c.Value)
			for _, item := range items {
				if strings.Contains(strings.ToLower(item), q) {
					return true
				}
			}
			return false
		case types.OpIs:
			return contains(items, c.Value)
		case types.OpIsNot:
			return !contains(items, c.Value)
		}
	}

	lhs := strings.ToLower(raw.String())
	rhs := strings.ToLower(c.Value)
	switch op {
	case types.OpContains:
		return strings.Contains(lhs, rhs)
	case types.OpIs:
		return lhs == rhs
	case types.OpIsNot:
		return lhs != rhs
	}
	return false
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func compareDates(raw types.FieldValue, operand string, op types.Operator) bool {
	if raw.IsEmpty() {
		return false
	}
	lhs, ok := parseDay(raw.String())
	if !ok {
		return false
	}
	rhs, ok := parseDay(operand)
	if !ok {
		return false
	}
	switch op {
	case types.OpOn:
		return lhs.Equal(rhs)
	case types.OpBefore:
		return !lhs.After(rhs)
	case types.OpAfter:
		return !lhs.Before(rhs)
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// parseDay parses s and truncates it to its UTC calendar day.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDay(t), true
		}
	}
	return time.Time{}, false
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
