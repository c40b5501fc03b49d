// Package syncer keeps a workspace eventually consistent with a remote blob
// store. Local mutations schedule a debounced full-document push; a pull runs
// on workspace selection and on a fixed interval while started. There is no
// conflict detection: the last write wins.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moesafa-mgf/genie-haus/internal/logger"
	"github.com/moesafa-mgf/genie-haus/internal/workspace"
	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// Status is the observable sync state.
type Status string

// Sync states.
const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
)

// Controller reconciles one Workspace with a RemoteStore.
type Controller struct {
	ws     *workspace.Workspace
	store  types.RemoteStore
	staff  types.StaffDirectory
	actor  string
	sched  Scheduler
	logger *zap.Logger

	pushDebounce time.Duration
	pullInterval time.Duration

	mu        sync.Mutex
	pushTimer Handle
	pullTimer Handle
	dirty     bool
	runCtx    context.Context
	status    Status
	lastErr   error
	subs      map[int]func(Status)
	nextSub   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the runtime timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger.OrNop(l) }
}

// WithPushDebounce sets the quiet period before a push.
func WithPushDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pushDebounce = d
		}
	}
}

// WithPullInterval sets the pull cadence.
func WithPullInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pullInterval = d
		}
	}
}

// WithStaffDirectory sets the directory loaded on workspace selection.
func WithStaffDirectory(d types.StaffDirectory) Option {
	return func(c *Controller) { c.staff = d }
}

// New returns an idle controller and registers it as ws's change hook.
func New(ws *workspace.Workspace, store types.RemoteStore, actor string, opts ...Option) *Controller {
	c := &Controller{
		ws:           ws,
		store:        store,
		actor:        actor,
		sched:        TimerScheduler{},
		logger:       zap.NewNop(),
		pushDebounce: types.DefaultPushDebounce,
		pullInterval: types.DefaultPullInterval,
		status:       StatusIdle,
		subs:         make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(c)
	}
	ws.SetOnChange(c.SchedulePush)
	return c
}

// Status returns the current sync state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the error of the last failed pull or push, or nil after
// a success.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers fn for status transitions and returns a function that
// removes it. fn runs synchronously on the goroutine that changed the state.
func (c *Controller) Subscribe(fn func(Status)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) setStatus(s Status, err error) {
	c.mu.Lock()
	c.status = s
	if s != StatusSyncing {
		c.lastErr = err
	}
	subs := make([]func(Status), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (c *Controller) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.Background()
}

// SchedulePush (re)arms the push debounce. A pending push is superseded.
func (c *Controller) SchedulePush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
	if c.pushTimer != nil {
		c.pushTimer.Stop()
	}
	c.pushTimer = c.sched.AfterFunc(c.pushDebounce, func() {
		_ = c.Push(c.context())
	})
}

// Pending reports whether a push is scheduled but has not started.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush runs a scheduled push immediately. It is a no-op when nothing is
// pending.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pushTimer != nil {
		c.pushTimer.Stop()
		c.pushTimer = nil
	}
	dirty := c.dirty
	c.mu.Unlock()
	if !dirty {
		return nil
	}
	return c.Push(ctx)
}

func (c *Controller) target() (string, string, error) {
	tenant, ws := c.ws.TenantID(), c.ws.ID()
	if tenant == "" {
		return "", "", types.ErrInvalidTenant
	}
	if ws == "" {
		return "", "", types.ErrInvalidWorkspace
	}
	return tenant, ws, nil
}

// Push writes the full workspace snapshot. Task lists echoed by the store
// replace the local records. Failures set the error status; the next
// scheduled attempt supersedes them.
func (c *Controller) Push(ctx context.Context) error {
	tenant, wsID, err := c.target()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.dirty = false
	c.pushTimer = nil
	c.mu.Unlock()

	c.setStatus(StatusSyncing, nil)
	start := time.Now()
	snap := c.ws.Snapshot()
	c.logger.Debug("push started",
		zap.String("tenant", tenant),
		zap.String("workspace", wsID),
		zap.Int("tasks", len(snap.Tasks)),
	)

	env, err := c.store.SaveState(ctx, tenant, wsID, c.actor, snap)
	if err != nil {
		c.logger.Warn("push failed",
			zap.String("tenant", tenant),
			zap.String("workspace", wsID),
			zap.Error(err),
		)
		c.setStatus(StatusError, err)
		return err
	}
	c.ws.SetRole(env.Role)
	if env.State != nil && env.State.Tasks != nil && c.ws.ID() == wsID {
		c.ws.ReplaceRecords(env.State.Tasks)
	}
	c.logger.Info("push complete",
		zap.String("workspace", wsID),
		zap.Int("tasks", len(snap.Tasks)),
		zap.Duration("ms", time.Since(start)),
	)
	c.setStatus(StatusOK, nil)
	return nil
}

// Pull fetches the remote document and installs it. A document with a task
// list replaces local state; one without only merges what it carries.
func (c *Controller) Pull(ctx context.Context) error {
	tenant, wsID, err := c.target()
	if err != nil {
		return err
	}
	c.setStatus(StatusSyncing, nil)
	start := time.Now()

	env, err := c.store.LoadState(ctx, tenant, wsID, c.actor)
	if err != nil {
		c.logger.Warn("pull failed",
			zap.String("tenant", tenant),
			zap.String("workspace", wsID),
			zap.Error(err),
		)
		c.setStatus(StatusError, err)
		return err
	}
	if c.ws.ID() != wsID {
		// The workspace changed while the request was in flight.
		c.setStatus(StatusOK, nil)
		return nil
	}
	c.ws.Install(env)

	tasks := -1
	if env.State != nil && env.State.Tasks != nil {
		tasks = len(env.State.Tasks)
	}
	c.logger.Debug("pull complete",
		zap.String("workspace", wsID),
		zap.Int("tasks", tasks),
		zap.Duration("ms", time.Since(start)),
	)
	c.setStatus(StatusOK, nil)
	return nil
}

// Select switches the workspace, loads the staff directory and pulls. The
// pending push of the previous workspace is flushed first.
func (c *Controller) Select(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return types.ErrInvalidWorkspace
	}
	if c.ws.ID() != "" && c.ws.ID() != workspaceID {
		if err := c.Flush(ctx); err != nil && !errors.Is(err, types.ErrInvalidWorkspace) {
			c.logger.Warn("flush before switch failed", zap.Error(err))
		}
	}
	c.ws.Select(workspaceID)
	c.loadStaff(ctx)
	return c.Pull(ctx)
}

func (c *Controller) loadStaff(ctx context.Context) {
	if c.staff == nil {
		return
	}
	staff, err := c.staff.ListStaff(ctx, c.ws.TenantID())
	if err != nil {
		c.logger.Warn("staff directory unavailable", zap.Error(err))
		return
	}
	c.ws.SetStaff(staff)
}

// Start arms the interval pull. Timer-driven pulls and pushes use ctx; they
// stop rescheduling once ctx is done or Stop is called.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()
	c.armPull()
}

func (c *Controller) armPull() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runCtx == nil || c.runCtx.Err() != nil {
		return
	}
	if c.pullTimer != nil {
		c.pullTimer.Stop()
	}
	c.pullTimer = c.sched.AfterFunc(c.pullInterval, c.tick)
}

func (c *Controller) tick() {
	ctx := c.context()
	if ctx.Err() != nil {
		return
	}
	_ = c.Pull(ctx)
	c.armPull()
}

// Stop cancels the interval pull and any pending push timer. A push already
// in flight is not cancelled. Pending changes stay pending for Flush.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pullTimer != nil {
		c.pullTimer.Stop()
		c.pullTimer = nil
	}
	if c.pushTimer != nil {
		c.pushTimer.Stop()
		c.pushTimer = nil
	}
	c.runCtx = nil
}
