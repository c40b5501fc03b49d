package types

import "time"

// Record is one task row. Title, status and assignee live in first-class
// slots; every other writable column stores its value in Fields keyed by
// column id.
type Record struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Status        string                `json:"status"`
	AssigneeEmail string                `json:"assigneeEmail"`
	Fields        map[string]FieldValue `json:"fields"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	CompletedAt   *time.Time            `json:"completedAt"`
	CreatedBy     string                `json:"createdBy,omitempty"`
	UpdatedBy     string                `json:"updatedBy,omitempty"`
	Comments      []Comment             `json:"comments"`
}

// Field returns the stored value for a custom column, Null when absent.
func (r *Record) Field(columnID string) FieldValue {
	if r.Fields == nil {
		return Null()
	}
	return r.Fields[columnID]
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := *r
	if r.Fields != nil {
		out.Fields = make(map[string]FieldValue, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v.Clone()
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	if r.Comments != nil {
		out.Comments = append([]Comment(nil), r.Comments...)
	}
	return &out
}

// Comment is an append-only note on a record.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityEntry is an immutable audit entry describing one field transition.
type ActivityEntry struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	Field     string     `json:"field"`
	Before    FieldValue `json:"before"`
	After     FieldValue `json:"after"`
	User      string     `json:"user"`
	Timestamp time.Time  `json:"timestamp"`
}

// StaffMember is a CRM user that can be assigned records.
type StaffMember struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
