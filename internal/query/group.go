package query

import (
	"strconv"
	"strings"

	"github.com/moesafa-mgf/genie-haus/internal/records"
	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Group sentinels. Sentinel buckets never merge with a record value that
// happens to spell the same key.
const (
	NoStatusKey   = "(none)"
	NoValueKey    = "__none"
	NoStatusLabel = "No status"
	NoValueLabel  = "No value"
	UnassignedKey = "__none"
	Unassigned    = "Unassigned"
)

// Group is one bucket of a grouped view. An ungrouped view is a single group
// with an empty key and label.
type Group struct {
	Key     string
	Label   string
	Records []*types.Record
}

// StaffNames maps an email to a display name.
type StaffNames map[string]string

// NewStaffNames indexes a staff directory by email.
func NewStaffNames(staff []types.StaffMember) StaffNames {
	out := make(StaffNames, len(staff))
	for _, m := range staff {
		if m.Email != "" {
			out[m.Email] = m.Name
		}
	}
	return out
}

// GroupRecords buckets recs by groupBy. Groups appear in the order their first
// record appears; records keep their input order within a group. An empty
// input yields no groups.
func GroupRecords(recs []*types.Record, reg *schema.Registry, groupBy string, staff StaffNames) []Group {
	if len(recs) == 0 {
		return nil
	}
	keyOf, ok := grouper(reg, groupBy, staff)
	if !ok {
		return []Group{{Records: append([]*types.Record(nil), recs...)}}
	}

	var groups []Group
	index := make(map[bucket]int)
	for i, rec := range recs {
		b, label := keyOf(rec, i)
		gi, seen := index[b]
		if !seen {
			gi = len(groups)
			index[b] = gi
			groups = append(groups, Group{Key: b.key, Label: label})
		}
		groups[gi].Records = append(groups[gi].Records, rec)
	}
	return groups
}

// bucket identifies a group. none marks the sentinel bucket for records
// without a value.
type bucket struct {
	key  string
	none bool
}

func valueBucket(key string) bucket { return bucket{key: key} }

func noneBucket(key string) bucket { return bucket{key: key, none: true} }

type keyFunc func(rec *types.Record, position int) (bucket, string)

func grouper(reg *schema.Registry, groupBy string, staff StaffNames) (keyFunc, bool) {
	switch groupBy {
	case types.GroupByNone:
		return nil, false
	case types.GroupByStatus:
		return func(rec *types.Record, _ int) (bucket, string) {
			if rec.Status == "" {
				return noneBucket(NoStatusKey), NoStatusLabel
			}
			label := reg.StatusLabel(rec.Status)
			if label == "" {
				label = NoStatusLabel
			}
			return valueBucket(rec.Status), label
		}, true
	case types.GroupByAssignee:
		return func(rec *types.Record, _ int) (bucket, string) {
			if rec.AssigneeEmail == "" {
				return noneBucket(UnassignedKey), Unassigned
			}
			if name := staff[rec.AssigneeEmail]; name != "" {
				return valueBucket(rec.AssigneeEmail), name
			}
			return valueBucket(rec.AssigneeEmail), Unassigned
		}, true
	}

	columnID, ok := types.GroupByColumn(groupBy)
	if !ok {
		return nil, false
	}
	col, known := reg.Resolve(columnID)
	base := col.Label
	if !known {
		base = "Field"
	}
	return func(rec *types.Record, position int) (bucket, string) {
		if !known {
			return noneBucket(NoValueKey), base + ": " + NoValueLabel
		}
		v := records.ValueOf(rec, col, position)
		if v.IsEmpty() {
			return noneBucket(NoValueKey), base + ": " + NoValueLabel
		}
		if v.Kind() == types.KindList {
			items := v.AsList()
			quoted := make([]string, len(items))
			display := make([]string, len(items))
			for i, item := range items {
				quoted[i] = strconv.Quote(item)
				display[i] = optionLabel(col, item)
			}
			return valueBucket(strings.Join(quoted, ",")), base + ": " + strings.Join(display, ", ")
		}
		return valueBucket(v.String()), base + ": " + optionLabel(col, v.String())
	}, true
}

func optionLabel(col types.Column, value string) string {
	if o, ok := col.Option(value); ok && o.Label != "" {
		return o.Label
	}
	return value
}
