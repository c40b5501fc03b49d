package records

import (
	"time"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// ValueOf returns the value column col shows for rec. Role columns read the
// record's slots and derived columns read its metadata. position is the
// record's index in the full list; autonumber columns show position+1.
func ValueOf(rec *types.Record, col types.Column, position int) types.FieldValue {
	switch col.Role {
	case types.RoleTitle:
		return textOrNull(rec.Title)
	case types.RoleStatus:
		return textOrNull(rec.Status)
	case types.RoleAssignee:
		return textOrNull(rec.AssigneeEmail)
	case types.RoleUpdatedAt:
		if rec.UpdatedAt.IsZero() {
			return timeValue(rec.CreatedAt)
		}
		return timeValue(rec.UpdatedAt)
	}

	switch col.Type {
	case types.ColumnAutonumber:
		if position < 0 {
			return types.Null()
		}
		return types.Number(float64(position + 1))
	case types.ColumnCreatedTime:
		return timeValue(rec.CreatedAt)
	case types.ColumnLastModifiedTime:
		return timeValue(rec.UpdatedAt)
	case types.ColumnCreatedBy:
		return textOrNull(rec.CreatedBy)
	case types.ColumnLastModifiedBy:
		return textOrNull(rec.UpdatedBy)
	}
	return rec.Field(col.ID)
}

func timeValue(t time.Time) types.FieldValue {
	if t.IsZero() {
		return types.Null()
	}
	return types.Text(t.UTC().Format(time.RFC3339))
}
