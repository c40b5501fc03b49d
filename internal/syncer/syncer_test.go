package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moesafa-mgf/genie-haus/internal/memstore"
	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

const (
	tenant = "loc_1"
	actor  = "a@x.com"
)

// manualScheduler records scheduled tasks; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// pending returns the live timers with duration d.
func (s *manualScheduler) pending(d time.Duration) []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if t.d == d && !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every live timer with duration d.
func (s *manualScheduler) fire(d time.Duration) int {
	timers := s.pending(d)
	for _, t := range timers {
		t.fired = true
		t.f()
	}
	return len(timers)
}

// countingStore wraps a memstore, counts calls and can inject failures.
type countingStore struct {
	*memstore.Store
	mu       sync.Mutex
	saves    int
	loads    int
	failNext error
	onSave   func(*types.State)
}

func (s *countingStore) takeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *countingStore) LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (types.Envelope, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return types.Envelope{}, err
	}
	return s.Store.LoadState(ctx, tenantID, workspaceID, actorEmail)
}

func (s *countingStore) SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *types.State) (types.Envelope, error) {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return types.Envelope{}, err
	}
	if s.onSave != nil {
		s.onSave(state)
	}
	return s.Store.SaveState(ctx, tenantID, workspaceID, actorEmail, state)
}

type harness struct {
	sched *manualScheduler
	store *countingStore
	ws    *workspace.Workspace
	ctrl  *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	n := 0
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	h := &harness{
		sched: &manualScheduler{},
		store: &countingStore{Store: memstore.New(memstore.WithClock(func() time.Time { return clock }))},
	}
	h.ws = workspace.New(tenant, "",
		workspace.WithIDGenerator(func(prefix string) string {
			n++
			return fmt.Sprintf("%s_%d", prefix, n)
		}),
		workspace.WithClock(func() time.Time { return clock }),
	)
	h.ctrl = New(h.ws, h.store, actor, WithScheduler(h.sched), WithStaffDirectory(h.store))
	return h
}

func TestPushDebounceCollapsesBursts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(context.Background(), "ws_1"))

	rec := h.ws.CreateRecord(actor)
	h.ws.MutateField(rec.ID, "title", types.Text("a"), actor)
	h.ws.MutateField(rec.ID, "title", types.Text("ab"), actor)

	assert.True(t, h.ctrl.Pending())
	assert.Len(t, h.sched.pending(types.DefaultPushDebounce), 1, "earlier timers superseded")
	assert.Equal(t, 0, h.store.saves)

	assert.Equal(t, 1, h.sched.fire(types.DefaultPushDebounce))
	assert.Equal(t, 1, h.store.saves)
	assert.False(t, h.ctrl.Pending())
	assert.Equal(t, StatusOK, h.ctrl.Status())
}

func TestNoopMutationDoesNotSchedulePush(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(context.Background(), "ws_1"))
	rec := h.ws.CreateRecord(actor)
	require.NoError(t, h.ctrl.Flush(context.Background()))

	h.ws.MutateField(rec.ID, "title", types.Text(rec.Title), actor)
	assert.False(t, h.ctrl.Pending())
	assert.Empty(t, h.sched.pending(types.DefaultPushDebounce))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))

	col, _, err := h.ws.AddColumn("Tags", types.ColumnMultiSelect)
	require.NoError(t, err)
	a := h.ws.CreateRecord(actor)
	h.ws.MutateField(a.ID, col.ID, types.List("high"), actor)
	h.ws.MutateField(a.ID, "status", types.Text("done"), actor)
	h.ws.CreateRecord("b@x.com")
	_, err = h.ws.AddComment(a.ID, "note", actor)
	require.NoError(t, err)

	before := h.ws.Snapshot()
	require.NoError(t, h.ctrl.Flush(ctx))
	require.NoError(t, h.ctrl.Pull(ctx))

	assert.Equal(t, before, h.ws.Snapshot())

	other := newHarness(t)
	other.store = h.store
	other.ctrl = New(other.ws, h.store, "b@x.com", WithScheduler(other.sched))
	require.NoError(t, other.ctrl.Select(ctx, "ws_1"))
	assert.Equal(t, before.Tasks, other.ws.Snapshot().Tasks)
	assert.Equal(t, before.Columns, other.ws.Columns())
}

func TestPullReplacesLocalState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.store.SaveState(ctx, tenant, "ws_1", actor, &types.State{
		Tasks: []types.Record{{ID: "t_remote", Title: "remote"}},
	})
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))
	h.ws.CreateRecord(actor)
	require.Len(t, h.ws.Records(), 2)

	require.NoError(t, h.ctrl.Pull(ctx))
	recs := h.ws.Records()
	require.Len(t, recs, 1, "remote is authoritative on pull")
	assert.Equal(t, "t_remote", recs[0].ID)
	assert.Len(t, h.ws.Columns(), 4, "default schema when remote has none")
}

func TestPullWithoutTasksMerges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, err := h.store.SaveState(ctx, tenant, "ws_1", actor, &types.State{
		Grids: []types.Grid{{ID: "grid_remote", Name: "Remote"}},
	})
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))
	h.ws.CreateRecord(actor)
	require.NoError(t, h.ctrl.Pull(ctx))

	assert.Len(t, h.ws.Records(), 1, "local records kept")
	assert.Equal(t, "grid_remote", h.ws.CurrentGrid().ID)
}

func TestPushEchoReplacesRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))
	rec := h.ws.CreateRecord(actor)

	// Simulate server-side normalization of the stored document.
	h.store.onSave = func(st *types.State) {
		st.Tasks[0].Title = "normalized"
	}
	require.NoError(t, h.ctrl.Flush(ctx))

	got, ok := h.ws.Record(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "normalized", got.Title)
}

func TestFailuresSetErrorStatusAndRecover(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))

	var seen []Status
	unsubscribe := h.ctrl.Subscribe(func(s Status) { seen = append(seen, s) })

	boom := errors.New("network down")
	h.store.failNext = boom
	h.ws.CreateRecord(actor)
	h.sched.fire(types.DefaultPushDebounce)

	assert.Equal(t, StatusError, h.ctrl.Status())
	assert.ErrorIs(t, h.ctrl.LastError(), boom)
	assert.Equal(t, []Status{StatusSyncing, StatusError}, seen)

	// Local mutation keeps working and the next push succeeds.
	rec := h.ws.CreateRecord(actor)
	h.sched.fire(types.DefaultPushDebounce)
	assert.Equal(t, StatusOK, h.ctrl.Status())
	assert.NoError(t, h.ctrl.LastError())

	env, err := h.store.LoadState(ctx, tenant, "ws_1", actor)
	require.NoError(t, err)
	require.Len(t, env.State.Tasks, 2)
	assert.Equal(t, rec.ID, env.State.Tasks[1].ID)

	unsubscribe()
	h.store.failNext = boom
	assert.ErrorIs(t, h.ctrl.Pull(ctx), boom)
	assert.Len(t, seen, 4, "unsubscribed listener not called")
}

func TestIntervalPull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))
	loads := h.store.loads

	h.ctrl.Start(ctx)
	assert.Equal(t, 1, h.sched.fire(types.DefaultPullInterval))
	assert.Equal(t, 1, h.sched.fire(types.DefaultPullInterval), "pull re-armed")
	assert.Equal(t, loads+2, h.store.loads)

	cancel()
	assert.Equal(t, 1, h.sched.fire(types.DefaultPullInterval))
	assert.Equal(t, loads+2, h.store.loads, "no pull after cancellation")
	assert.Empty(t, h.sched.pending(types.DefaultPullInterval))
}

func TestStopCancelsTimers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(context.Background(), "ws_1"))
	h.ctrl.Start(context.Background())
	h.ws.CreateRecord(actor)

	h.ctrl.Stop()
	assert.Empty(t, h.sched.pending(types.DefaultPullInterval))
	assert.Empty(t, h.sched.pending(types.DefaultPushDebounce))
	assert.True(t, h.ctrl.Pending(), "changes stay pending for Flush")

	require.NoError(t, h.ctrl.Flush(context.Background()))
	assert.Equal(t, 1, h.store.saves)
}

func TestSelectLoadsStaffAndRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.store.AddStaff(ctx, tenant, types.StaffMember{ID: "u1", Email: actor, Name: "Ada"}))
	require.NoError(t, h.store.SetRole(ctx, tenant, "ws_1", actor, "admin"))

	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))

	assert.Equal(t, "admin", h.ws.Role())
	require.Len(t, h.ws.Staff(), 1)
	assert.Equal(t, "Ada", h.ws.Staff()[0].Name)
}

func TestSelectFlushesPreviousWorkspace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Select(ctx, "ws_1"))
	h.ws.CreateRecord(actor)

	require.NoError(t, h.ctrl.Select(ctx, "ws_2"))
	assert.Empty(t, h.ws.Records())

	env, err := h.store.LoadState(ctx, tenant, "ws_1", actor)
	require.NoError(t, err)
	require.NotNil(t, env.State)
	assert.Len(t, env.State.Tasks, 1)
}

func TestPushWithoutWorkspace(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.ctrl.Push(context.Background()), types.ErrInvalidWorkspace)
	assert.ErrorIs(t, h.ctrl.Select(context.Background(), ""), types.ErrInvalidWorkspace)
	assert.Equal(t, StatusIdle, h.ctrl.Status())
}

func TestFlushOnlyPushesOnFlush(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memstore.New()}
	ws := workspace.New(tenant, "")
	ctrl := New(ws, store, actor, WithScheduler(FlushOnly{}))
	require.NoError(t, ctrl.Select(ctx, "ws_1"))

	ws.CreateRecord(actor)
	assert.True(t, ctrl.Pending())
	assert.Equal(t, 0, store.saves)

	require.NoError(t, ctrl.Flush(ctx))
	assert.Equal(t, 1, store.saves)
	assert.False(t, ctrl.Pending())
}
