package query

import (
	"sort"

	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Apply filters recs with fs and groups the result by fs.GroupBy.
func Apply(recs []*types.Record, reg *schema.Registry, fs types.FilterSet, staff StaffNames) []Group {
	return GroupRecords(Filter(recs, reg, fs), reg, fs.GroupBy, staff)
}

// Lane is one board column.
type Lane struct {
	Status  types.Option
	Records []*types.Record
}

// Board buckets recs into one lane per status option, in option order.
// Records whose status is empty or not an option land in the first lane.
func Board(recs []*types.Record, options []types.Option) []Lane {
	if len(options) == 0 {
		return nil
	}
	lanes := make([]Lane, len(options))
	index := make(map[string]int, len(options))
	for i, o := range options {
		lanes[i].Status = o
		index[o.ID] = i
	}
	for _, rec := range recs {
		i, ok := index[rec.Status]
		if !ok {
			i = 0
		}
		lanes[i].Records = append(lanes[i].Records, rec)
	}
	return lanes
}

// DayCounts maps a "2006-01-02" day to per-assignee counts.
type DayCounts map[string]map[string]int

// Days returns the days present in d, ascending.
func (d DayCounts) Days() []string {
	out := make([]string, 0, len(d))
	for day := range d {
		out = append(out, day)
	}
	sort.Strings(out)
	return out
}

// DashboardData holds the per-day aggregates of the dashboard view.
type DashboardData struct {
	CreatedByDay   DayCounts
	CompletedByDay DayCounts
}

// Dashboard counts records created and completed per UTC day and assignee.
// Records without an assignee are counted as "Unassigned".
func Dashboard(recs []*types.Record) DashboardData {
	data := DashboardData{
		CreatedByDay:   DayCounts{},
		CompletedByDay: DayCounts{},
	}
	for _, r := range recs {
		assignee := r.AssigneeEmail
		if assignee == "" {
			assignee = Unassigned
		}
		if !r.CreatedAt.IsZero() {
			data.CreatedByDay.add(r.CreatedAt.UTC().Format("2006-01-02"), assignee)
		}
		if r.CompletedAt != nil {
			data.CompletedByDay.add(r.CompletedAt.UTC().Format("2006-01-02"), assignee)
		}
	}
	return data
}

func (d DayCounts) add(day, assignee string) {
	if d[day] == nil {
		d[day] = map[string]int{}
	}
	d[day][assignee]++
}
