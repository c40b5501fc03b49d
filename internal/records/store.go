// Package records holds the ordered record collection of the active
// workspace together with its append-only activity log.
//
// Operations on an unknown record id are no-ops reported through a false
// result; they never return an error.
package records

import (
	"strings"
	"time"

	"github.com/moesafa-mgf/genie-haus/internal/schema"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// DefaultTitle is the title given to new records.
const DefaultTitle = "New Task"

// Store is the live record collection. It is not safe for concurrent use.
type Store struct {
	schema   *schema.Registry
	records  []*types.Record
	activity []types.ActivityEntry
	now      func() time.Time
	newID    func(prefix string) string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore returns an empty store whose field semantics come from reg.
func NewStore(reg *schema.Registry, opts ...Option) *Store {
	s := &Store{
		schema: reg,
		now:    time.Now,
		newID:  types.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

func (s *Store) index(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns deep copies of every record in display order.
func (s *Store) Records() []*types.Record {
	out := make([]*types.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (*types.Record, bool) {
	i := s.index(id)
	if i == -1 {
		return nil, false
	}
	return s.records[i].Clone(), true
}

// Replace installs a record list received from storage.
func (s *Store) Replace(recs []types.Record) {
	s.records = make([]*types.Record, 0, len(recs))
	for i := range recs {
		s.records = append(s.records, recs[i].Clone())
	}
}

// Snapshot returns the record list in its persisted form.
func (s *Store) Snapshot() []types.Record {
	out := make([]types.Record, len(s.records))
	for i, r := range s.records {
		out[i] = *r.Clone()
	}
	return out
}

// Activity returns the activity log in append order.
func (s *Store) Activity() []types.ActivityEntry {
	return append([]types.ActivityEntry{}, s.activity...)
}

// ReplaceActivity installs an activity log received from storage.
func (s *Store) ReplaceActivity(entries []types.ActivityEntry) {
	s.activity = append([]types.ActivityEntry{}, entries...)
}

// ActivityFeed returns up to limit entries, newest first. A limit of zero or
// less returns every entry. When recordID is set only that record's entries
// are returned.
func (s *Store) ActivityFeed(recordID string, limit int) []types.ActivityEntry {
	var out []types.ActivityEntry
	for i := len(s.activity) - 1; i >= 0; i-- {
		e := s.activity[i]
		if recordID != "" && e.TaskID != recordID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Create appends a new record owned by actor. Its status is the first status
// option and its assignee is the actor.
func (s *Store) Create(actor string) *types.Record {
	now := s.stamp()
	rec := &types.Record{
		ID:            s.newID(types.PrefixTask),
		Title:         DefaultTitle,
		AssigneeEmail: actor,
		Fields:        map[string]types.FieldValue{},
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
	if opts := s.schema.StatusOptions(); len(opts) > 0 {
		rec.Status = opts[0].ID
	}
	s.syncCompletion(rec, now)
	s.records = append(s.records, rec)
	return rec.Clone()
}

// Upsert writes value into the record's slot for columnID. Title, status and
// assignee columns write the record's first-class slots; other writable
// columns write the field map. Unknown and read-only columns are ignored.
//
// The second result is false when nothing changed: the record or column is
// unknown, or the new value equals the old one. A change appends one
// activity entry and stamps the record as updated by actor.
func (s *Store) Upsert(recordID, columnID string, value types.FieldValue, actor string) (*types.Record, bool) {
	i := s.index(recordID)
	if i == -1 {
		return nil, false
	}
	rec := s.records[i]
	col, ok := s.schema.Resolve(columnID)
	if !ok || !col.Writable() {
		return rec.Clone(), false
	}

	before := ValueOf(rec, col, i)
	after := coerce(col, value)
	if before.Equal(after) || (before.IsEmpty() && after.IsEmpty()) {
		return rec.Clone(), false
	}
	if col.Role == types.RoleStatus && !after.IsEmpty() && !s.isStatus(after.String()) {
		return rec.Clone(), false
	}

	now := s.stamp()
	switch col.Role {
	case types.RoleTitle:
		rec.Title = after.String()
	case types.RoleStatus:
		rec.Status = after.String()
	case types.RoleAssignee:
		rec.AssigneeEmail = after.String()
	default:
		if rec.Fields == nil {
			rec.Fields = map[string]types.FieldValue{}
		}
		if after.IsNull() {
			delete(rec.Fields, col.ID)
		} else {
			rec.Fields[col.ID] = after
		}
	}
	s.track(rec, col.ID, before, after, actor, now)
	s.touch(rec, actor, now)
	if col.Role == types.RoleStatus {
		s.syncCompletion(rec, now)
	}
	return rec.Clone(), true
}

// AssignToSelf makes actor the record's assignee.
func (s *Store) AssignToSelf(recordID, actor string) (*types.Record, bool) {
	if actor == "" {
		return nil, false
	}
	col, ok := s.schema.ByRole(types.RoleAssignee)
	if !ok {
		col = types.Column{ID: "assignee", Role: types.RoleAssignee, Type: types.ColumnUser}
	}
	return s.Upsert(recordID, col.ID, types.Text(actor), actor)
}

// Duplicate appends a deep copy of a record with a new id and a " Copy"
// title suffix. Completion is recomputed from the copied status.
func (s *Store) Duplicate(recordID, actor string) (*types.Record, bool) {
	i := s.index(recordID)
	if i == -1 {
		return nil, false
	}
	src := s.records[i]
	now := s.stamp()

	cp := src.Clone()
	cp.ID = s.newID(types.PrefixTask)
	title := src.Title
	if title == "" {
		title = "Untitled"
	}
	cp.Title = title + " Copy"
	cp.CreatedAt = now
	cp.CreatedBy = actor
	cp.CompletedAt = nil
	s.touch(cp, actor, now)
	s.syncCompletion(cp, now)

	s.records = append(s.records, cp)
	return cp.Clone(), true
}

// Delete removes a record. Activity entries that reference it are kept.
func (s *Store) Delete(recordID string) bool {
	i := s.index(recordID)
	if i == -1 {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return true
}

// Reorder moves sourceID into targetID's position. It is not logged.
func (s *Store) Reorder(sourceID, targetID string) bool {
	to := s.index(targetID)
	if to == -1 {
		return false
	}
	return s.MoveTo(sourceID, to)
}

// MoveTo moves a record to position to, clamped to the list bounds.
func (s *Store) MoveTo(recordID string, to int) bool {
	from := s.index(recordID)
	if from == -1 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(s.records) {
		to = len(s.records) - 1
	}
	if from == to {
		return true
	}
	rec := s.records[from]
	s.records = append(s.records[:from], s.records[from+1:]...)
	s.records = append(s.records, nil)
	copy(s.records[to+1:], s.records[to:])
	s.records[to] = rec
	return true
}

// AddComment appends a comment to a record. Blank text is rejected with
// types.ErrInvalidContent; an unknown record yields types.ErrNotFound.
func (s *Store) AddComment(recordID, text, actor string) (types.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Comment{}, types.ErrInvalidContent
	}
	i := s.index(recordID)
	if i == -1 {
		return types.Comment{}, types.ErrNotFound
	}
	c := types.Comment{
		ID:        s.newID(types.PrefixComment),
		Text:      text,
		User:      actor,
		Timestamp: s.stamp(),
	}
	s.records[i].Comments = append(s.records[i].Comments, c)
	return c, nil
}

// StripField removes every stored value for columnID.
func (s *Store) StripField(columnID string) int {
	n := 0
	for _, r := range s.records {
		if _, ok := r.Fields[columnID]; ok {
			delete(r.Fields, columnID)
			n++
		}
	}
	return n
}

// RecomputeCompletion re-applies the completion rule to every record, used
// after the terminal status changes.
func (s *Store) RecomputeCompletion() {
	now := s.stamp()
	for _, r := range s.records {
		s.syncCompletion(r, now)
	}
}

func (s *Store) track(rec *types.Record, field string, before, after types.FieldValue, actor string, now time.Time) {
	s.activity = append(s.activity, types.ActivityEntry{
		ID:        s.newID(types.PrefixActivity),
		TaskID:    rec.ID,
		Field:     field,
		Before:    before,
		After:     after,
		User:      actor,
		Timestamp: now,
	})
}

func (s *Store) touch(rec *types.Record, actor string, now time.Time) {
	rec.UpdatedAt = now
	if actor != "" {
		rec.UpdatedBy = actor
	}
}

// syncCompletion keeps CompletedAt set exactly while the status is terminal.
func (s *Store) syncCompletion(rec *types.Record, now time.Time) {
	if rec.Status != "" && rec.Status == s.schema.TerminalStatus() {
		if rec.CompletedAt == nil {
			t := now
			rec.CompletedAt = &t
		}
		return
	}
	rec.CompletedAt = nil
}

// isStatus reports whether id is one of the status column's option ids.
func (s *Store) isStatus(id string) bool {
	for _, o := range s.schema.StatusOptions() {
		if o.ID == id {
			return true
		}
	}
	return false
}

func coerce(col types.Column, v types.FieldValue) types.FieldValue {
	switch col.Role {
	case types.RoleTitle, types.RoleStatus, types.RoleAssignee:
		return textOrNull(strings.TrimSpace(v.String()))
	}
	return types.CoerceValue(col.Type, v)
}

func textOrNull(s string) types.FieldValue {
	if s == "" {
		return types.Null()
	}
	return types.Text(s)
}
