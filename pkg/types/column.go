package types

// ColumnType determines what values a column's cells hold.
type ColumnType string

// Editable column types.
const (
	ColumnText         ColumnType = "text"
	ColumnLongText     ColumnType = "long_text"
	ColumnCheckbox     ColumnType = "checkbox"
	ColumnSingleSelect ColumnType = "single_select"
	ColumnMultiSelect  ColumnType = "multi_select"
	ColumnUser         ColumnType = "user"
	ColumnDate         ColumnType = "date"
	ColumnNumber       ColumnType = "number"
	ColumnAttachment   ColumnType = "attachment"
)

// Derived (read-only) column types. Their values are computed from record
// metadata or are not stored at all.
const (
	ColumnAutonumber       ColumnType = "autonumber"
	ColumnCreatedTime      ColumnType = "created_time"
	ColumnLastModifiedTime ColumnType = "last_modified_time"
	ColumnCreatedBy        ColumnType = "created_by"
	ColumnLastModifiedBy   ColumnType = "last_modified_by"
	ColumnFormula          ColumnType = "formula"
	ColumnRollup           ColumnType = "rollup"
	ColumnCount            ColumnType = "count"
	ColumnLookup           ColumnType = "lookup"
	ColumnButton           ColumnType = "button"
	ColumnBarcode          ColumnType = "barcode"
)

var editableTypes = map[ColumnType]bool{
	ColumnText:         true,
	ColumnLongText:     true,
	ColumnCheckbox:     true,
	ColumnSingleSelect: true,
	ColumnMultiSelect:  true,
	ColumnUser:         true,
	ColumnDate:         true,
	ColumnNumber:       true,
	ColumnAttachment:   true,
}

var derivedTypes = map[ColumnType]bool{
	ColumnAutonumber:       true,
	ColumnCreatedTime:      true,
	ColumnLastModifiedTime: true,
	ColumnCreatedBy:        true,
	ColumnLastModifiedBy:   true,
	ColumnFormula:          true,
	ColumnRollup:           true,
	ColumnCount:            true,
	ColumnLookup:           true,
	ColumnButton:           true,
	ColumnBarcode:          true,
}

// Valid reports whether t is a recognized column type.
func (t ColumnType) Valid() bool {
	return editableTypes[t] || derivedTypes[t]
}

// ReadOnly reports whether cells of this type are derived and never written.
func (t ColumnType) ReadOnly() bool {
	return derivedTypes[t]
}

// IsSelect reports whether the type carries an option list.
func (t ColumnType) IsSelect() bool {
	return t == ColumnSingleSelect || t == ColumnMultiSelect
}

// IsDate reports whether values of this type are compared as calendar dates.
func (t ColumnType) IsDate() bool {
	return t == ColumnDate || t == ColumnCreatedTime || t == ColumnLastModifiedTime
}

// Role is the semantic role a column plays. Built-in behavior (title slot,
// status lifecycle, assignee slot, modification time) is bound to roles,
// never to column ids.
type Role string

// Semantic roles. RoleNone marks an ordinary custom column.
const (
	RoleNone      Role = ""
	RoleTitle     Role = "title"
	RoleStatus    Role = "status"
	RoleAssignee  Role = "assignee"
	RoleUpdatedAt Role = "updated_at"
)

// LegacyRoleIDs maps the column ids older documents used for built-in
// columns to the role they carried implicitly.
var LegacyRoleIDs = map[string]Role{
	"title":     RoleTitle,
	"status":    RoleStatus,
	"assignee":  RoleAssignee,
	"updatedAt": RoleUpdatedAt,
}

// Option is one choice of a select column.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Column is one typed field definition shared by every record of a
// workspace.
type Column struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Type     ColumnType `json:"type"`
	Role     Role       `json:"role,omitempty"`
	Options  []Option   `json:"options,omitempty"`
	Locked   bool       `json:"locked,omitempty"`
	ReadOnly bool       `json:"readonly,omitempty"`
}

// Option returns the option with the given id.
func (c Column) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Writable reports whether records can store a value for this column.
func (c Column) Writable() bool {
	return !c.ReadOnly && !c.Type.ReadOnly() && c.Role != RoleUpdatedAt
}

// Clone returns a deep copy of c.
func (c Column) Clone() Column {
	out := c
	if c.Options != nil {
		out.Options = append([]Option(nil), c.Options...)
	}
	return out
}

// OptionColors is the palette cycled through when options are generated.
var OptionColors = []string{"gray", "blue", "green", "red", "yellow", "purple", "pink", "teal"}
